package domain

// Participant is one member of a challenge roster
type Participant struct {
	ID                string        `json:"id"`
	DisplayName       string        `json:"display_name"`
	ContactID         string        `json:"contact_id,omitempty"`
	AccentColor       string        `json:"accent_color,omitempty"`
	AccumulatedPoints float64       `json:"accumulated_points"`
	TodaysSnapshot    *RingSnapshot `json:"todays_snapshot,omitempty"`
}

// TodaysRawPoints returns today's uncapped point total, 0 without a snapshot
func (p Participant) TodaysRawPoints() float64 {
	if p.TodaysSnapshot == nil {
		return 0
	}
	return p.TodaysSnapshot.TotalPoints()
}

// TodaysPoints returns today's contribution capped at the challenge's daily
// limit. The raw total is preserved on the snapshot for display.
func (p Participant) TodaysPoints(limit float64) float64 {
	raw := p.TodaysRawPoints()
	if raw > limit {
		return limit
	}
	return raw
}

// TotalPoints returns the accumulated carry plus today's capped contribution
func (p Participant) TotalPoints(limit float64) float64 {
	return p.AccumulatedPoints + p.TodaysPoints(limit)
}

// WithSnapshot returns a copy of the participant with a replaced snapshot
func (p Participant) WithSnapshot(snapshot RingSnapshot) Participant {
	snap := snapshot
	p.TodaysSnapshot = &snap
	return p
}
