package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateList(n int) []ContactCandidate {
	candidates := make([]ContactCandidate, n)
	for i := range candidates {
		candidates[i] = ContactCandidate{
			ID:        fmt.Sprintf("contact-%d", i),
			GivenName: fmt.Sprintf("Friend%d", i),
		}
	}
	return candidates
}

func TestNewRoster_SelfAlwaysFirst(t *testing.T) {
	self := Participant{ID: "user-self", DisplayName: "You"}
	roster := NewRoster(self, candidateList(3))

	participants := roster.Participants()
	require.Len(t, participants, 4)
	assert.Equal(t, "user-self", participants[0].ID)
	assert.NotEmpty(t, participants[0].AccentColor)
}

func TestNewRoster_NeverExceedsMax(t *testing.T) {
	self := Participant{ID: "user-self"}

	for _, n := range []int{0, 1, 7, 8, 9, 50, 1000} {
		t.Run(fmt.Sprintf("%d candidates", n), func(t *testing.T) {
			roster := NewRoster(self, candidateList(n))
			assert.LessOrEqual(t, roster.Size(), MaxParticipants)
			if n < MaxParticipants {
				assert.Equal(t, n+1, roster.Size())
			} else {
				assert.Equal(t, MaxParticipants, roster.Size())
			}
		})
	}
}

func TestNewRoster_DuplicateContactsCollapse(t *testing.T) {
	self := Participant{ID: "user-self"}
	dup := ContactCandidate{ID: "contact-1", GivenName: "Sam"}
	roster := NewRoster(self, []ContactCandidate{dup, dup, dup})

	assert.Equal(t, 2, roster.Size())
}

func TestNewRoster_BlankContactIDSkipped(t *testing.T) {
	self := Participant{ID: "user-self"}
	roster := NewRoster(self, []ContactCandidate{{GivenName: "NoID"}})

	assert.Equal(t, 1, roster.Size())
}

func TestRosterMember_CarriesCandidateIdentity(t *testing.T) {
	self := Participant{ID: "user-self"}
	roster := NewRoster(self, []ContactCandidate{{ID: "contact-9", GivenName: "Ava", FamilyName: "Ng"}})

	require.Len(t, roster.Others, 1)
	member := roster.Others[0]
	assert.Equal(t, "contact-9", member.ContactID)
	assert.Equal(t, "Ava Ng", member.DisplayName)
	assert.NotEmpty(t, member.ID)
	assert.NotEqual(t, "contact-9", member.ID, "participant identity is distinct from the directory reference")
}

func TestParticipants_ReturnsFreshSlice(t *testing.T) {
	roster := NewRoster(Participant{ID: "user-self"}, candidateList(2))

	first := roster.Participants()
	first[0].DisplayName = "mutated"
	first[1] = Participant{}

	again := roster.Participants()
	assert.Equal(t, "user-self", again[0].ID)
	assert.NotEqual(t, Participant{}, again[1])
}

func TestContains(t *testing.T) {
	roster := NewRoster(Participant{ID: "user-self"}, candidateList(2))

	assert.True(t, roster.Contains("user-self"))
	assert.True(t, roster.Contains(roster.Others[1].ID))
	assert.False(t, roster.Contains("nobody"))
}

func TestContactDisplayName_Fallback(t *testing.T) {
	tests := []struct {
		name      string
		candidate ContactCandidate
		want      string
	}{
		{"full name", ContactCandidate{GivenName: "Ada", FamilyName: "Lovelace"}, "Ada Lovelace"},
		{"given only", ContactCandidate{GivenName: "Ada"}, "Ada"},
		{"family only", ContactCandidate{FamilyName: "Lovelace"}, "Lovelace"},
		{"phone fallback", ContactCandidate{Phone: "+1 555 0100"}, "+1 555 0100"},
		{"email fallback", ContactCandidate{Email: "ada@example.com"}, "ada@example.com"},
		{"phone beats email", ContactCandidate{Phone: "+1 555 0100", Email: "ada@example.com"}, "+1 555 0100"},
		{"nothing at all", ContactCandidate{ID: "c1"}, UnknownContactName},
		{"whitespace name", ContactCandidate{GivenName: "  ", Email: "x@example.com"}, "x@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.candidate.DisplayName())
		})
	}
}
