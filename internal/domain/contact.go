package domain

import "strings"

// UnknownContactName is the display placeholder for a directory record
// carrying neither a name, a phone number, nor an email address.
const UnknownContactName = "Unknown contact"

// ContactCandidate is a read-only external-directory record used as input to
// roster mutations. It is never stored inside a Challenge.
type ContactCandidate struct {
	ID         string `json:"id"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}

// DisplayName falls back through name, phone and email before giving up
func (c ContactCandidate) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(c.GivenName) + " " + strings.TrimSpace(c.FamilyName))
	if name != "" {
		return name
	}
	if c.Phone != "" {
		return c.Phone
	}
	if c.Email != "" {
		return c.Email
	}
	return UnknownContactName
}
