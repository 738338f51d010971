package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Defaults applied when a challenge is created with blank display strings
const (
	DefaultChallengeTitle       = "Ring Challenge"
	DefaultChallengeDescription = "Close your rings and climb the board."
)

// Phase is a challenge's temporal classification
type Phase string

const (
	PhaseUpcoming  Phase = "upcoming"
	PhaseActive    Phase = "active"
	PhaseCompleted Phase = "completed"
)

// Horizon selects which leaderboard to rank by
type Horizon string

const (
	HorizonDay   Horizon = "day"
	HorizonTotal Horizon = "total"
)

// Challenge is one time-boxed competition. All mutations are value-in,
// value-out; the struct itself holds no shared state.
type Challenge struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	MaxDailyPoints float64   `json:"max_daily_points"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Roster         Roster    `json:"roster"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewChallenge validates and builds a challenge. Malformed date ordering and
// non-positive caps are construction-time errors; nothing downstream of here
// re-checks them.
func NewChallenge(title, description string, maxDailyPoints float64, start, end time.Time, roster Roster) (Challenge, error) {
	if maxDailyPoints <= 0 {
		return Challenge{}, ErrInvalidChallenge
	}
	if StartOfDay(end).Before(StartOfDay(start)) {
		return Challenge{}, ErrInvalidChallenge
	}
	if roster.Size() < 1 || roster.Size() > MaxParticipants {
		return Challenge{}, ErrInvalidChallenge
	}

	if strings.TrimSpace(title) == "" {
		title = DefaultChallengeTitle
	}
	if strings.TrimSpace(description) == "" {
		description = DefaultChallengeDescription
	}

	now := time.Now()
	return Challenge{
		ID:             uuid.New().String(),
		Title:          title,
		Description:    description,
		MaxDailyPoints: maxDailyPoints,
		StartDate:      start,
		EndDate:        end,
		Roster:         roster,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// StartOfDay truncates a time to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Phase classifies the challenge against today's calendar day. The interval
// is inclusive on both ends; exactly one phase holds for any valid challenge.
func (c Challenge) Phase(today time.Time) Phase {
	day := StartOfDay(today)
	if day.Before(StartOfDay(c.StartDate)) {
		return PhaseUpcoming
	}
	if day.After(StartOfDay(c.EndDate)) {
		return PhaseCompleted
	}
	return PhaseActive
}

// IsActive reports whether today falls inside the challenge window
func (c Challenge) IsActive(today time.Time) bool {
	return c.Phase(today) == PhaseActive
}

// IsCompleted reports whether the challenge window has passed
func (c Challenge) IsCompleted(today time.Time) bool {
	return c.Phase(today) == PhaseCompleted
}

// CanInvite reports whether new participants may still join. Invitations are
// accepted strictly before the start day; no late joiners.
func (c Challenge) CanInvite(today time.Time) bool {
	if c.IsCompleted(today) {
		return false
	}
	if !StartOfDay(today).Before(StartOfDay(c.StartDate)) {
		return false
	}
	return c.Roster.Size() < MaxParticipants
}

// MaxAdditionalInvitees returns the remaining roster capacity
func (c Challenge) MaxAdditionalInvitees() int {
	remaining := MaxParticipants - c.Roster.Size()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ParticipantScore returns one participant's points for the given horizon,
// capped at the challenge's daily limit.
func (c Challenge) ParticipantScore(p Participant, horizon Horizon) float64 {
	if horizon == HorizonDay {
		return p.TodaysPoints(c.MaxDailyPoints)
	}
	return p.TotalPoints(c.MaxDailyPoints)
}

// Leaderboard returns a fresh slice of participants sorted descending by
// score. The sort is stable: equal scores keep their roster order.
func (c Challenge) Leaderboard(horizon Horizon) []Participant {
	ranked := c.Roster.Participants()
	sort.SliceStable(ranked, func(i, j int) bool {
		return c.ParticipantScore(ranked[i], horizon) > c.ParticipantScore(ranked[j], horizon)
	})
	return ranked
}

// DayLeaderboard ranks by today's capped points
func (c Challenge) DayLeaderboard() []Participant {
	return c.Leaderboard(HorizonDay)
}

// TotalLeaderboard ranks by accumulated plus today's capped points
func (c Challenge) TotalLeaderboard() []Participant {
	return c.Leaderboard(HorizonTotal)
}

// Invite admits candidates into the roster, preserving the at-most-8
// invariant. Once the challenge has started the call is a no-op. Candidates
// whose directory reference already matches a participant are skipped, and
// candidates beyond the remaining capacity are silently dropped.
func (c Challenge) Invite(candidates []ContactCandidate, today time.Time) Challenge {
	if !c.CanInvite(today) {
		return c
	}

	roster := c.Roster.clone()
	remaining := c.MaxAdditionalInvitees()
	for _, candidate := range candidates {
		if remaining == 0 {
			break
		}
		if candidate.ID == "" || roster.hasContact(candidate.ID) {
			continue
		}
		roster.Others = append(roster.Others, newRosterMember(candidate, roster.Size()))
		remaining--
	}

	c.Roster = roster
	c.UpdatedAt = time.Now()
	return c
}

// ApplySnapshot routes a freshly captured snapshot to the current user in
// every challenge they belong to. Other participants are never targets; a
// challenge without the current user comes back unchanged.
func ApplySnapshot(challenges []Challenge, currentUserID string, snapshot RingSnapshot) []Challenge {
	updated := make([]Challenge, len(challenges))
	for i, c := range challenges {
		if c.Roster.Self.ID == currentUserID {
			c.Roster = c.Roster.clone()
			c.Roster.Self = c.Roster.Self.WithSnapshot(snapshot)
			c.UpdatedAt = time.Now()
		}
		updated[i] = c
	}
	return updated
}

// Rollover folds every snapshot dated before today into that participant's
// accumulated carry, capped at the challenge's daily limit, and clears the
// snapshot. Returns the updated challenge and whether anything changed.
func (c Challenge) Rollover(today time.Time) (Challenge, bool) {
	day := StartOfDay(today)
	changed := false

	fold := func(p Participant) Participant {
		if p.TodaysSnapshot == nil || !p.TodaysSnapshot.Day().Before(day) {
			return p
		}
		p.AccumulatedPoints += p.TodaysPoints(c.MaxDailyPoints)
		p.TodaysSnapshot = nil
		changed = true
		return p
	}

	roster := c.Roster.clone()
	roster.Self = fold(roster.Self)
	for i, other := range roster.Others {
		roster.Others[i] = fold(other)
	}
	if !changed {
		return c, false
	}

	c.Roster = roster
	c.UpdatedAt = time.Now()
	return c, true
}
