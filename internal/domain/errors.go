package domain

import "errors"

// Domain errors
var (
	ErrAuthorizationDenied = errors.New("authorization denied")
	ErrSourceUnavailable   = errors.New("source unavailable")
	ErrNoDataAvailable     = errors.New("no activity data available")
	ErrStorageFailure      = errors.New("storage failure")
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrParticipantNotFound = errors.New("participant not found in challenge")
	ErrInvalidChallenge    = errors.New("invalid challenge configuration")
	ErrInvalidSnapshot     = errors.New("invalid ring snapshot")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInternalError       = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrChallengeNotFound) || errors.Is(err, ErrParticipantNotFound)
}

// IsAuthorizationError checks if an error stems from a missing or denied grant
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrAuthorizationDenied)
}
