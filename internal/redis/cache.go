package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/apkanwar/BetterChallenges/internal/config"
	"github.com/apkanwar/BetterChallenges/internal/domain"
	"github.com/redis/go-redis/v9"
)

// snapshotTTL keeps a cached snapshot around long enough to cover the day it
// was captured plus the rollover lag.
const snapshotTTL = 48 * time.Hour

// Cache provides Redis-backed caching for today's snapshots, capability
// grants and leaderboard mirrors. The in-memory challenge collection stays
// authoritative; everything here is rebuildable.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewCache creates a new Redis cache
func NewCache(cfg *config.RedisConfig, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// snapshotKey returns the Redis key for a user's cached daily snapshot
func (c *Cache) snapshotKey(userID string) string {
	return fmt.Sprintf("user:%s:snapshot", userID)
}

// capabilityKey returns the Redis key for a capability grant
func (c *Cache) capabilityKey(capability domain.Capability) string {
	return fmt.Sprintf("capability:%s", capability)
}

// boardKey returns the Redis key for a challenge's leaderboard mirror
func (c *Cache) boardKey(challengeID string, horizon domain.Horizon) string {
	return fmt.Sprintf("challenge:%s:board:%s", challengeID, horizon)
}

// SetTodaySnapshot caches a user's freshest daily snapshot
func (c *Cache) SetTodaySnapshot(ctx context.Context, userID string, snapshot domain.RingSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.snapshotKey(userID), data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("caching snapshot: %w", err)
	}
	return nil
}

// GetTodaySnapshot retrieves a user's cached daily snapshot
func (c *Cache) GetTodaySnapshot(ctx context.Context, userID string) (domain.RingSnapshot, error) {
	data, err := c.client.Get(ctx, c.snapshotKey(userID)).Bytes()
	if err == redis.Nil {
		return domain.RingSnapshot{}, domain.ErrNoDataAvailable
	}
	if err != nil {
		return domain.RingSnapshot{}, fmt.Errorf("getting cached snapshot: %w", err)
	}

	var snapshot domain.RingSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return domain.RingSnapshot{}, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return snapshot, nil
}

// SetAuthorization persists a capability grant so it survives restarts
func (c *Cache) SetAuthorization(ctx context.Context, auth domain.Authorization) error {
	err := c.client.HSet(ctx, c.capabilityKey(auth.Capability),
		"status", string(auth.Status),
		"reason", auth.Reason,
	).Err()
	if err != nil {
		return fmt.Errorf("setting authorization: %w", err)
	}
	return nil
}

// GetAuthorization retrieves a capability grant. A capability never asked
// about comes back undetermined, not as an error.
func (c *Cache) GetAuthorization(ctx context.Context, capability domain.Capability) (domain.Authorization, error) {
	result, err := c.client.HGetAll(ctx, c.capabilityKey(capability)).Result()
	if err != nil {
		return domain.Authorization{}, fmt.Errorf("getting authorization: %w", err)
	}
	if len(result) == 0 {
		return domain.NewAuthorization(capability), nil
	}
	return domain.Authorization{
		Capability: capability,
		Status:     domain.AuthorizationStatus(result["status"]),
		Reason:     result["reason"],
	}, nil
}

// BoardEntry is one ranked row of a mirrored leaderboard
type BoardEntry struct {
	Rank          int64   `json:"rank"`
	ParticipantID string  `json:"participant_id"`
	Points        float64 `json:"points"`
}

// MirrorBoard replaces a challenge's leaderboard mirror with freshly ranked
// participants. The mirror is a read cache; losing it costs nothing.
func (c *Cache) MirrorBoard(ctx context.Context, challengeID string, horizon domain.Horizon, ranked []domain.Participant, score func(domain.Participant) float64) error {
	key := c.boardKey(challengeID, horizon)

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	for _, p := range ranked {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  score(p),
			Member: p.ID,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirroring board: %w", err)
	}
	return nil
}

// GetBoard reads a mirrored leaderboard, best first
func (c *Cache) GetBoard(ctx context.Context, challengeID string, horizon domain.Horizon) ([]BoardEntry, error) {
	key := c.boardKey(challengeID, horizon)
	results, err := c.client.ZRevRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("getting board: %w", err)
	}

	entries := make([]BoardEntry, len(results))
	for i, result := range results {
		entries[i] = BoardEntry{
			Rank:          int64(i + 1),
			ParticipantID: result.Member.(string),
			Points:        result.Score,
		}
	}
	return entries, nil
}

// DeleteBoards removes a challenge's leaderboard mirrors
func (c *Cache) DeleteBoards(ctx context.Context, challengeID string) error {
	pipe := c.client.Pipeline()
	pipe.Del(ctx, c.boardKey(challengeID, domain.HorizonDay))
	pipe.Del(ctx, c.boardKey(challengeID, domain.HorizonTotal))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting boards: %w", err)
	}
	return nil
}
