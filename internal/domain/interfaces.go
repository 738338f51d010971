package domain

import "context"

// HealthDataSource yields one ring-activity snapshot per day, guarded by the
// three-state authorization model. Implementations either deliver a complete
// snapshot or report a terminal failure from the error taxonomy.
type HealthDataSource interface {
	AuthorizationState(ctx context.Context) (Authorization, error)
	RequestAuthorization(ctx context.Context) (Authorization, error)
	FetchTodaySnapshot(ctx context.Context, userID string) (RingSnapshot, error)
}

// ContactDirectory yields candidate people for roster invitations, sorted by
// display name, guarded by the same authorization model as the health source.
type ContactDirectory interface {
	AuthorizationState(ctx context.Context) (Authorization, error)
	RequestAccess(ctx context.Context) (Authorization, error)
	FetchCandidates(ctx context.Context, limit int) ([]ContactCandidate, error)
}

// ChallengeStore persists the challenge collection wholesale. Conflict
// resolution across devices belongs to the store's own sync collaborator;
// callers always read the entire collection, compute a new value and replace
// the entire collection.
type ChallengeStore interface {
	LoadAll(ctx context.Context) ([]Challenge, error)
	ReplaceAll(ctx context.Context, challenges []Challenge) error
}
