package domain

import "github.com/google/uuid"

// MaxParticipants is the hard roster ceiling: the current user plus seven
// invitees. Mutations never grow a roster past it.
const MaxParticipants = 8

// accentPalette assigns display colors by join position
var accentPalette = []string{
	"#FA114F", // move red
	"#92E82A", // exercise green
	"#00D8FF", // stand cyan
	"#FFD60A",
	"#BF5AF2",
	"#FF9F0A",
	"#64D2FF",
	"#30D158",
}

// Roster is the ordered membership of a challenge. Modeling the current user
// as a dedicated field makes "exactly one current user" hold by construction
// instead of by a flag convention.
type Roster struct {
	Self   Participant   `json:"self"`
	Others []Participant `json:"others,omitempty"`
}

// NewRoster builds a roster from the current user and invited directory
// candidates. The current user always sits at position 0. Duplicate contact
// references collapse to one participant, and candidates beyond the seven
// available seats are silently dropped.
func NewRoster(self Participant, candidates []ContactCandidate) Roster {
	if self.AccentColor == "" {
		self.AccentColor = accentPalette[0]
	}
	roster := Roster{Self: self}
	for _, candidate := range candidates {
		if roster.Size() >= MaxParticipants {
			break
		}
		if candidate.ID == "" || roster.hasContact(candidate.ID) {
			continue
		}
		roster.Others = append(roster.Others, newRosterMember(candidate, roster.Size()))
	}
	return roster
}

// newRosterMember converts a directory candidate into a participant. The
// candidate record itself is never stored.
func newRosterMember(candidate ContactCandidate, position int) Participant {
	return Participant{
		ID:          uuid.New().String(),
		DisplayName: candidate.DisplayName(),
		ContactID:   candidate.ID,
		AccentColor: accentPalette[position%len(accentPalette)],
	}
}

// Size returns the participant count including the current user
func (r Roster) Size() int {
	return 1 + len(r.Others)
}

// Participants returns the ordered membership as a fresh slice, current user
// first. Callers may reorder it freely.
func (r Roster) Participants() []Participant {
	all := make([]Participant, 0, r.Size())
	all = append(all, r.Self)
	all = append(all, r.Others...)
	return all
}

// Contains reports whether a participant ID is on the roster
func (r Roster) Contains(participantID string) bool {
	if r.Self.ID == participantID {
		return true
	}
	for _, p := range r.Others {
		if p.ID == participantID {
			return true
		}
	}
	return false
}

// hasContact reports whether a directory reference is already on the roster
func (r Roster) hasContact(contactID string) bool {
	if r.Self.ContactID == contactID {
		return true
	}
	for _, p := range r.Others {
		if p.ContactID == contactID {
			return true
		}
	}
	return false
}

// clone returns a roster whose Others slice is safe to mutate
func (r Roster) clone() Roster {
	others := make([]Participant, len(r.Others))
	copy(others, r.Others)
	r.Others = others
	return r
}
