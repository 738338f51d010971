package domain

import "time"

// SnapshotSubmission is the wire shape a device pushes when it captures a
// fresh daily ring snapshot, over HTTP or Kafka.
type SnapshotSubmission struct {
	UserID   string     `json:"user_id"`
	Date     time.Time  `json:"date"`
	Move     RingMetric `json:"move"`
	Exercise RingMetric `json:"exercise"`
	Stand    RingMetric `json:"stand"`
}

// Snapshot validates the submission and converts it into the value model.
// Metric titles are normalized; a submission is the only place malformed
// activity data can enter, so it is rejected here and nowhere deeper.
func (s SnapshotSubmission) Snapshot() (RingSnapshot, error) {
	if s.UserID == "" || s.Date.IsZero() {
		return RingSnapshot{}, ErrInvalidSnapshot
	}
	if s.Move.Value < 0 || s.Exercise.Value < 0 || s.Stand.Value < 0 {
		return RingSnapshot{}, ErrInvalidSnapshot
	}

	snapshot := RingSnapshot{
		Date:     s.Date,
		Move:     s.Move,
		Exercise: s.Exercise,
		Stand:    s.Stand,
	}
	snapshot.Move.Title = RingMove
	snapshot.Exercise.Title = RingExercise
	snapshot.Stand.Title = RingStand
	return snapshot, nil
}
