package domain

import "time"

// Ring titles for the three tracked activity dimensions
const (
	RingMove     = "Move"
	RingExercise = "Exercise"
	RingStand    = "Stand"
)

// GaugeLimit caps the displayed ring fraction; anything beyond 125% of goal
// renders as a full (slightly overfilled) ring.
const GaugeLimit = 1.25

// RingMetric is one measured activity dimension with a daily goal
type RingMetric struct {
	Title string  `json:"title"`
	Value float64 `json:"value"`
	Goal  float64 `json:"goal"`
	Unit  string  `json:"unit,omitempty"`
}

// ProgressFraction returns value/goal. A metric with a non-positive goal is
// meaningless and contributes 0 rather than dividing by zero.
func (m RingMetric) ProgressFraction() float64 {
	if m.Goal <= 0 {
		return 0
	}
	return m.Value / m.Goal
}

// GaugeFraction returns the progress fraction clamped to GaugeLimit
func (m RingMetric) GaugeFraction() float64 {
	f := m.ProgressFraction()
	if f > GaugeLimit {
		return GaugeLimit
	}
	return f
}

// PercentagePoints returns the uncapped progress as percentage points.
// Exceeding the goal yields more than 100.
func (m RingMetric) PercentagePoints() float64 {
	return m.ProgressFraction() * 100
}

// RingSnapshot is one participant's three ring metrics for one calendar day.
// Immutable once captured; a fresh snapshot replaces the whole value.
type RingSnapshot struct {
	Date     time.Time  `json:"date"`
	Move     RingMetric `json:"move"`
	Exercise RingMetric `json:"exercise"`
	Stand    RingMetric `json:"stand"`
}

// TotalPoints sums the three metrics' percentage points. Caps are
// challenge-scoped, not snapshot-scoped, so the raw total may exceed 300.
func (s RingSnapshot) TotalPoints() float64 {
	return s.Move.PercentagePoints() + s.Exercise.PercentagePoints() + s.Stand.PercentagePoints()
}

// Day returns the snapshot's calendar day truncated to local start of day
func (s RingSnapshot) Day() time.Time {
	return StartOfDay(s.Date)
}
