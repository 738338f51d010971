package domain

import "fmt"

// Capability identifies an external data source guarded by a user grant
type Capability string

const (
	CapabilityHealth   Capability = "health"
	CapabilityContacts Capability = "contacts"
)

// AuthorizationStatus is the three-state grant model shared by every
// capability: nothing asked yet, granted, or denied with a reason.
type AuthorizationStatus string

const (
	AuthorizationUndetermined AuthorizationStatus = "undetermined"
	AuthorizationGranted      AuthorizationStatus = "granted"
	AuthorizationDenied       AuthorizationStatus = "denied"
)

// Authorization is the grant state of one capability
type Authorization struct {
	Capability Capability          `json:"capability"`
	Status     AuthorizationStatus `json:"status"`
	Reason     string              `json:"reason,omitempty"`
}

// NewAuthorization returns the undetermined state for a capability
func NewAuthorization(capability Capability) Authorization {
	return Authorization{Capability: capability, Status: AuthorizationUndetermined}
}

// Grant returns the granted state, clearing any prior denial reason
func (a Authorization) Grant() Authorization {
	a.Status = AuthorizationGranted
	a.Reason = ""
	return a
}

// Deny returns the denied state carrying a human-readable reason
func (a Authorization) Deny(reason string) Authorization {
	a.Status = AuthorizationDenied
	a.Reason = reason
	return a
}

// Granted reports whether the capability may be used
func (a Authorization) Granted() bool {
	return a.Status == AuthorizationGranted
}

// Err maps the grant state onto the error taxonomy: nil when granted,
// ErrAuthorizationDenied when denied, ErrSourceUnavailable while the grant
// has not been requested yet.
func (a Authorization) Err() error {
	switch a.Status {
	case AuthorizationGranted:
		return nil
	case AuthorizationDenied:
		if a.Reason != "" {
			return fmt.Errorf("%w: %s", ErrAuthorizationDenied, a.Reason)
		}
		return ErrAuthorizationDenied
	default:
		return fmt.Errorf("%w: %s authorization undetermined", ErrSourceUnavailable, a.Capability)
	}
}
