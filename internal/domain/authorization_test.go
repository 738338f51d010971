package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorization_Lifecycle(t *testing.T) {
	auth := NewAuthorization(CapabilityHealth)
	assert.Equal(t, AuthorizationUndetermined, auth.Status)
	assert.False(t, auth.Granted())
	assert.ErrorIs(t, auth.Err(), ErrSourceUnavailable)

	granted := auth.Grant()
	assert.True(t, granted.Granted())
	assert.NoError(t, granted.Err())

	denied := granted.Deny("user declined in settings")
	assert.False(t, denied.Granted())
	assert.ErrorIs(t, denied.Err(), ErrAuthorizationDenied)
	assert.Contains(t, denied.Err().Error(), "user declined in settings")

	regranted := denied.Grant()
	assert.Empty(t, regranted.Reason, "granting clears the denial reason")
	assert.NoError(t, regranted.Err())
}

func TestAuthorization_DeniedWithoutReason(t *testing.T) {
	auth := NewAuthorization(CapabilityContacts).Deny("")
	assert.ErrorIs(t, auth.Err(), ErrAuthorizationDenied)
}

func TestSnapshotSubmission_Validation(t *testing.T) {
	valid := SnapshotSubmission{
		UserID:   "user-1",
		Date:     time.Now(),
		Move:     RingMetric{Value: 400, Goal: 500},
		Exercise: RingMetric{Value: 25, Goal: 30},
		Stand:    RingMetric{Value: 10, Goal: 12},
	}

	tests := []struct {
		name    string
		mutate  func(*SnapshotSubmission)
		wantErr bool
	}{
		{"valid", func(s *SnapshotSubmission) {}, false},
		{"missing user", func(s *SnapshotSubmission) { s.UserID = "" }, true},
		{"zero date", func(s *SnapshotSubmission) { s.Date = time.Time{} }, true},
		{"negative move", func(s *SnapshotSubmission) { s.Move.Value = -1 }, true},
		{"negative exercise", func(s *SnapshotSubmission) { s.Exercise.Value = -1 }, true},
		{"negative stand", func(s *SnapshotSubmission) { s.Stand.Value = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := valid
			tt.mutate(&sub)
			_, err := sub.Snapshot()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSnapshot)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSnapshotSubmission_NormalizesTitles(t *testing.T) {
	sub := SnapshotSubmission{
		UserID: "user-1",
		Date:   time.Now(),
		Move:   RingMetric{Title: "whatever", Value: 100, Goal: 500},
	}

	snapshot, err := sub.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, RingMove, snapshot.Move.Title)
	assert.Equal(t, RingExercise, snapshot.Exercise.Title)
	assert.Equal(t, RingStand, snapshot.Stand.Title)
}
