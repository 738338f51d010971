package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoster(others int) Roster {
	roster := Roster{Self: Participant{ID: "user-self", DisplayName: "You"}}
	for i := 0; i < others; i++ {
		roster.Others = append(roster.Others, newRosterMember(ContactCandidate{
			ID:        string(rune('a' + i)),
			GivenName: "Friend",
		}, roster.Size()))
	}
	return roster
}

func testSnapshot(date time.Time, movePct, exercisePct, standPct float64) RingSnapshot {
	return RingSnapshot{
		Date:     date,
		Move:     RingMetric{Title: RingMove, Value: movePct * 5, Goal: 500},
		Exercise: RingMetric{Title: RingExercise, Value: exercisePct * 0.3, Goal: 30},
		Stand:    RingMetric{Title: RingStand, Value: standPct * 0.12, Goal: 12},
	}
}

func TestNewChallenge_Validation(t *testing.T) {
	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 6)

	tests := []struct {
		name    string
		cap     float64
		start   time.Time
		end     time.Time
		roster  Roster
		wantErr bool
	}{
		{"valid week", 600, start, end, testRoster(3), false},
		{"single day window", 600, start, start.Add(23 * time.Hour), testRoster(0), false},
		{"zero cap", 0, start, end, testRoster(3), true},
		{"negative cap", -100, start, end, testRoster(3), true},
		{"end before start", 600, end, start, testRoster(3), true},
		{"full roster", 600, start, end, testRoster(7), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChallenge("Week", "desc", tt.cap, tt.start, tt.end, tt.roster)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidChallenge)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewChallenge_BlankStringsGetDefaults(t *testing.T) {
	start := time.Now()
	c, err := NewChallenge("  ", "", 600, start, start.AddDate(0, 0, 7), testRoster(1))
	require.NoError(t, err)

	assert.Equal(t, DefaultChallengeTitle, c.Title)
	assert.Equal(t, DefaultChallengeDescription, c.Description)
	assert.NotEmpty(t, c.ID)
}

func TestPhase_ExactlyOneHolds(t *testing.T) {
	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	c, err := NewChallenge("Week", "", 600, start, end, testRoster(2))
	require.NoError(t, err)

	tests := []struct {
		name  string
		today time.Time
		want  Phase
	}{
		{"day before start", start.AddDate(0, 0, -1), PhaseUpcoming},
		{"moments before start day", start.Add(-time.Second), PhaseUpcoming},
		{"start day inclusive", start, PhaseActive},
		{"late on start day", start.Add(23 * time.Hour), PhaseActive},
		{"mid window", start.AddDate(0, 0, 3), PhaseActive},
		{"end day inclusive", end.Add(23 * time.Hour), PhaseActive},
		{"day after end", end.AddDate(0, 0, 1), PhaseCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Phase(tt.today))
			assert.Equal(t, tt.want == PhaseActive, c.IsActive(tt.today))
			assert.Equal(t, tt.want == PhaseCompleted, c.IsCompleted(tt.today))
		})
	}
}

func TestCanInvite_StrictlyBeforeStartDay(t *testing.T) {
	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 6)
	c, err := NewChallenge("Week", "", 600, start, end, testRoster(2))
	require.NoError(t, err)

	assert.True(t, c.CanInvite(start.AddDate(0, 0, -1)))
	assert.False(t, c.CanInvite(start), "start day itself closes the invite window")
	assert.False(t, c.CanInvite(start.AddDate(0, 0, 3)))
	assert.False(t, c.CanInvite(end.AddDate(0, 0, 1)))

	full, err := NewChallenge("Full", "", 600, start, end, testRoster(7))
	require.NoError(t, err)
	assert.False(t, full.CanInvite(start.AddDate(0, 0, -1)), "a full roster has no seats")
	assert.Equal(t, 0, full.MaxAdditionalInvitees())
}

func TestInvite_Rules(t *testing.T) {
	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 6)
	dayBefore := start.AddDate(0, 0, -1)

	t.Run("no-op once started", func(t *testing.T) {
		c, err := NewChallenge("Week", "", 600, start, end, testRoster(2))
		require.NoError(t, err)

		updated := c.Invite([]ContactCandidate{{ID: "new-1", GivenName: "Nora"}}, start)
		assert.Equal(t, c.Roster.Size(), updated.Roster.Size())
	})

	t.Run("duplicate contact skipped", func(t *testing.T) {
		c, err := NewChallenge("Week", "", 600, start, end, testRoster(2))
		require.NoError(t, err)
		existing := c.Roster.Others[0].ContactID

		updated := c.Invite([]ContactCandidate{{ID: existing, GivenName: "Twin"}}, dayBefore)
		assert.Equal(t, c.Roster.Size(), updated.Roster.Size())
	})

	t.Run("over-capacity candidates dropped silently", func(t *testing.T) {
		c, err := NewChallenge("Week", "", 600, start, end, testRoster(5))
		require.NoError(t, err)

		candidates := []ContactCandidate{
			{ID: "x1", GivenName: "A"},
			{ID: "x2", GivenName: "B"},
			{ID: "x3", GivenName: "C"},
			{ID: "x4", GivenName: "D"},
		}
		updated := c.Invite(candidates, dayBefore)
		assert.Equal(t, MaxParticipants, updated.Roster.Size())
	})

	t.Run("original value untouched", func(t *testing.T) {
		c, err := NewChallenge("Week", "", 600, start, end, testRoster(2))
		require.NoError(t, err)
		before := c.Roster.Size()

		_ = c.Invite([]ContactCandidate{{ID: "new-2", GivenName: "Pat"}}, dayBefore)
		assert.Equal(t, before, c.Roster.Size())
	})
}

func TestLeaderboard_StableDescending(t *testing.T) {
	start := time.Now().AddDate(0, 0, -1)
	end := start.AddDate(0, 0, 7)

	roster := testRoster(3)
	roster.Others[0].AccumulatedPoints = 450
	roster.Others[1].AccumulatedPoints = 450
	roster.Others[2].AccumulatedPoints = 900
	roster.Self.AccumulatedPoints = 100

	c, err := NewChallenge("Week", "", 600, start, end, roster)
	require.NoError(t, err)

	first := c.TotalLeaderboard()
	require.Len(t, first, 4)

	assert.Equal(t, roster.Others[2].ID, first[0].ID)
	assert.Equal(t, roster.Others[0].ID, first[1].ID, "equal scores keep roster order")
	assert.Equal(t, roster.Others[1].ID, first[2].ID)
	assert.Equal(t, roster.Self.ID, first[3].ID)

	// Repeated ranking never reshuffles ties
	for i := 0; i < 5; i++ {
		again := c.TotalLeaderboard()
		assert.Equal(t, first, again)
	}
}

func TestParticipantScore_DailyCap(t *testing.T) {
	start := time.Now().AddDate(0, 0, -10)
	end := start.AddDate(0, 0, 30)

	roster := testRoster(0)
	roster.Self.AccumulatedPoints = 2200
	snap := testSnapshot(time.Now(), 300, 200, 150) // raw 650
	roster.Self = roster.Self.WithSnapshot(snap)

	c, err := NewChallenge("Month", "", 600, start, end, roster)
	require.NoError(t, err)

	assert.InDelta(t, 650.0, roster.Self.TodaysRawPoints(), 1e-6)
	assert.InDelta(t, 600.0, c.ParticipantScore(roster.Self, HorizonDay), 1e-6)
	assert.InDelta(t, 2800.0, c.ParticipantScore(roster.Self, HorizonTotal), 1e-6)
}

func TestApplySnapshot_OnlyCurrentUser(t *testing.T) {
	start := time.Now().AddDate(0, 0, -1)
	end := start.AddDate(0, 0, 7)

	mine, err := NewChallenge("Mine", "", 600, start, end, testRoster(2))
	require.NoError(t, err)

	theirsRoster := testRoster(2)
	theirsRoster.Self.ID = "someone-else"
	theirs, err := NewChallenge("Theirs", "", 600, start, end, theirsRoster)
	require.NoError(t, err)

	snap := testSnapshot(time.Now(), 80, 90, 100)
	updated := ApplySnapshot([]Challenge{mine, theirs}, "user-self", snap)

	require.Len(t, updated, 2)
	require.NotNil(t, updated[0].Roster.Self.TodaysSnapshot)
	assert.InDelta(t, 270.0, updated[0].Roster.Self.TodaysRawPoints(), 1e-6)

	assert.Nil(t, updated[1].Roster.Self.TodaysSnapshot)
	for _, other := range updated[0].Roster.Others {
		assert.Nil(t, other.TodaysSnapshot)
	}
}

func TestRollover(t *testing.T) {
	start := time.Now().AddDate(0, 0, -5)
	end := start.AddDate(0, 0, 30)
	today := StartOfDay(time.Now())
	yesterday := today.AddDate(0, 0, -1)

	t.Run("stale snapshot folds at cap", func(t *testing.T) {
		roster := testRoster(1)
		roster.Self.AccumulatedPoints = 1000
		roster.Self = roster.Self.WithSnapshot(testSnapshot(yesterday, 300, 200, 150)) // raw 650

		c, err := NewChallenge("Month", "", 600, start, end, roster)
		require.NoError(t, err)

		rolled, changed := c.Rollover(today)
		require.True(t, changed)
		assert.InDelta(t, 1600.0, rolled.Roster.Self.AccumulatedPoints, 1e-6)
		assert.Nil(t, rolled.Roster.Self.TodaysSnapshot)
	})

	t.Run("today's snapshot stays put", func(t *testing.T) {
		roster := testRoster(0)
		roster.Self = roster.Self.WithSnapshot(testSnapshot(today.Add(9*time.Hour), 50, 50, 50))

		c, err := NewChallenge("Month", "", 600, start, end, roster)
		require.NoError(t, err)

		rolled, changed := c.Rollover(today)
		assert.False(t, changed)
		assert.NotNil(t, rolled.Roster.Self.TodaysSnapshot)
	})

	t.Run("second sweep is a no-op", func(t *testing.T) {
		roster := testRoster(0)
		roster.Self = roster.Self.WithSnapshot(testSnapshot(yesterday, 100, 100, 100))

		c, err := NewChallenge("Month", "", 600, start, end, roster)
		require.NoError(t, err)

		rolled, changed := c.Rollover(today)
		require.True(t, changed)

		again, changed := rolled.Rollover(today)
		assert.False(t, changed)
		assert.Equal(t, rolled.Roster.Self.AccumulatedPoints, again.Roster.Self.AccumulatedPoints)
	})
}
