package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apkanwar/BetterChallenges/internal/domain"
	rediscache "github.com/apkanwar/BetterChallenges/internal/redis"
)

// Source is the health-data collaborator. Devices push their daily ring
// snapshot through the API or Kafka; the freshest one lands in the cache and
// this adapter serves it back out, gated by the shared capability grant.
type Source struct {
	cache  *rediscache.Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewSource creates a new health data source
func NewSource(cache *rediscache.Cache, logger *slog.Logger) *Source {
	return &Source{
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// AuthorizationState returns the health capability's current grant state
func (s *Source) AuthorizationState(ctx context.Context) (domain.Authorization, error) {
	return s.cache.GetAuthorization(ctx, domain.CapabilityHealth)
}

// RequestAuthorization records a grant for health data. A denied grant stays
// denied until changed outside this flow.
func (s *Source) RequestAuthorization(ctx context.Context) (domain.Authorization, error) {
	auth, err := s.cache.GetAuthorization(ctx, domain.CapabilityHealth)
	if err != nil {
		return domain.Authorization{}, err
	}
	if auth.Status == domain.AuthorizationDenied {
		return auth, nil
	}

	auth = auth.Grant()
	if err := s.cache.SetAuthorization(ctx, auth); err != nil {
		return domain.Authorization{}, err
	}
	return auth, nil
}

// FetchTodaySnapshot returns the user's snapshot for the current calendar
// day. A missing or stale snapshot is ErrNoDataAvailable; yesterday's data
// belongs to the rollover, not to today's board.
func (s *Source) FetchTodaySnapshot(ctx context.Context, userID string) (domain.RingSnapshot, error) {
	auth, err := s.AuthorizationState(ctx)
	if err != nil {
		return domain.RingSnapshot{}, err
	}
	if err := auth.Err(); err != nil {
		return domain.RingSnapshot{}, err
	}

	snapshot, err := s.cache.GetTodaySnapshot(ctx, userID)
	if err != nil {
		return domain.RingSnapshot{}, err
	}

	if !snapshot.Day().Equal(domain.StartOfDay(s.now())) {
		return domain.RingSnapshot{}, fmt.Errorf("%w: latest snapshot is from %s",
			domain.ErrNoDataAvailable, snapshot.Day().Format("2006-01-02"))
	}
	return snapshot, nil
}

// Publish caches a freshly captured snapshot for its user
func (s *Source) Publish(ctx context.Context, userID string, snapshot domain.RingSnapshot) error {
	if userID == "" {
		return domain.ErrInvalidSnapshot
	}
	return s.cache.SetTodaySnapshot(ctx, userID, snapshot)
}
