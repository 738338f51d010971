package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/apkanwar/BetterChallenges/internal/config"
	"github.com/apkanwar/BetterChallenges/internal/domain"
	rediscache "github.com/apkanwar/BetterChallenges/internal/redis"
	"github.com/apkanwar/BetterChallenges/internal/websocket"
)

// defaultSelfName labels the device's own participant when the create flow
// does not supply a name.
const defaultSelfName = "You"

// SnapshotPublisher is the optional write side of a health data source:
// caching a device-pushed snapshot so later fetches can serve it.
type SnapshotPublisher interface {
	Publish(ctx context.Context, userID string, snapshot domain.RingSnapshot) error
}

// ContactWriter is the optional write side of a contact directory, used to
// seed the address book the invite flow searches.
type ContactWriter interface {
	UpsertContact(ctx context.Context, candidate domain.ContactCandidate) error
}

// ChallengeService mediates between the scoring core, the capability
// sources and the store. It owns the current-user identity and the
// in-memory challenge collection, which stays authoritative for the session
// even when a persistence cycle fails.
type ChallengeService struct {
	store     domain.ChallengeStore
	health    domain.HealthDataSource
	directory domain.ContactDirectory
	cache     *rediscache.Cache
	config    *config.ChallengeConfig
	logger    *slog.Logger
	hub       *websocket.Hub
	now       func() time.Time

	mu         sync.RWMutex
	userID     string
	challenges []domain.Challenge
}

// NewChallengeService creates a new challenge service
func NewChallengeService(
	store domain.ChallengeStore,
	health domain.HealthDataSource,
	directory domain.ContactDirectory,
	cache *rediscache.Cache,
	cfg *config.ChallengeConfig,
	logger *slog.Logger,
) *ChallengeService {
	return &ChallengeService{
		store:     store,
		health:    health,
		directory: directory,
		cache:     cache,
		config:    cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// SetHub attaches the WebSocket hub for live board broadcasts
func (s *ChallengeService) SetHub(hub *websocket.Hub) {
	s.hub = hub
}

// Bootstrap binds the device identity and loads the persisted collection
func (s *ChallengeService) Bootstrap(ctx context.Context, userID string) error {
	challenges, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading challenge collection: %w", err)
	}

	s.mu.Lock()
	s.userID = userID
	s.challenges = challenges
	s.mu.Unlock()

	s.logger.Info("challenge collection loaded", "count", len(challenges), "user_id", userID)
	return nil
}

// CurrentUserID returns the device's stable participant identifier
func (s *ChallengeService) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// CreateChallengeRequest carries the user intent to start a competition
type CreateChallengeRequest struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	MaxDailyPoints float64   `json:"max_daily_points,omitempty"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	DisplayName    string    `json:"display_name,omitempty"`
	ContactIDs     []string  `json:"contact_ids,omitempty"`
}

// CreateChallenge builds a challenge from user intent: the current user
// first on the roster, invited directory candidates after.
func (s *ChallengeService) CreateChallenge(ctx context.Context, req CreateChallengeRequest) (domain.Challenge, error) {
	if req.MaxDailyPoints == 0 {
		req.MaxDailyPoints = s.config.DefaultMaxDailyPoints
	}

	candidates, err := s.resolveCandidates(ctx, req.ContactIDs)
	if err != nil {
		return domain.Challenge{}, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = defaultSelfName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	self := domain.Participant{ID: s.userID, DisplayName: displayName}
	roster := domain.NewRoster(self, candidates)

	challenge, err := domain.NewChallenge(
		req.Title, req.Description, req.MaxDailyPoints,
		req.StartDate, req.EndDate, roster,
	)
	if err != nil {
		return domain.Challenge{}, err
	}

	s.challenges = append(s.challenges, challenge)
	s.persist(ctx)
	s.publishBoards(ctx, challenge)
	return challenge, nil
}

// ListChallenges returns the collection, optionally filtered by phase
func (s *ChallengeService) ListChallenges(phase domain.Phase) []domain.Challenge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	today := s.now()
	challenges := make([]domain.Challenge, 0, len(s.challenges))
	for _, c := range s.challenges {
		if phase != "" && c.Phase(today) != phase {
			continue
		}
		challenges = append(challenges, c)
	}
	return challenges
}

// GetChallenge returns one challenge by ID
func (s *ChallengeService) GetChallenge(challengeID string) (domain.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.challenges {
		if c.ID == challengeID {
			return c, nil
		}
	}
	return domain.Challenge{}, domain.ErrChallengeNotFound
}

// DeleteChallenge removes a challenge; the collection is re-persisted wholesale
func (s *ChallengeService) DeleteChallenge(ctx context.Context, challengeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.challenges {
		if c.ID == challengeID {
			s.challenges = append(s.challenges[:i], s.challenges[i+1:]...)
			s.persist(ctx)
			if s.cache != nil {
				if err := s.cache.DeleteBoards(ctx, challengeID); err != nil {
					s.logger.Warn("failed to drop board mirrors", "challenge_id", challengeID, "error", err)
				}
			}
			return nil
		}
	}
	return domain.ErrChallengeNotFound
}

// InviteContacts admits directory candidates into a challenge roster. Once
// the challenge has started the roster comes back unchanged; duplicates and
// over-capacity candidates are skipped silently.
func (s *ChallengeService) InviteContacts(ctx context.Context, challengeID string, contactIDs []string) (domain.Challenge, error) {
	candidates, err := s.resolveCandidates(ctx, contactIDs)
	if err != nil {
		return domain.Challenge{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.challenges {
		if c.ID != challengeID {
			continue
		}
		updated := c.Invite(candidates, s.now())
		s.challenges[i] = updated
		s.persist(ctx)
		if s.hub != nil {
			s.hub.BroadcastRosterUpdate(updated.ID, updated.Roster.Participants())
		}
		return updated, nil
	}
	return domain.Challenge{}, domain.ErrChallengeNotFound
}

// SubmitSnapshot ingests a device-pushed daily snapshot. The snapshot is
// cached for its user; only the current user's rosters are updated — the
// system has no way to fetch anyone else's live health data.
func (s *ChallengeService) SubmitSnapshot(ctx context.Context, sub domain.SnapshotSubmission) error {
	snapshot, err := sub.Snapshot()
	if err != nil {
		return err
	}

	if publisher, ok := s.health.(SnapshotPublisher); ok {
		if err := publisher.Publish(ctx, sub.UserID, snapshot); err != nil {
			return err
		}
	}

	if sub.UserID != s.CurrentUserID() {
		return nil
	}
	s.applySnapshot(ctx, snapshot)
	return nil
}

// RefreshSnapshot pulls today's snapshot from the health source and routes
// it into every challenge the current user belongs to. On failure the prior
// in-memory state is left untouched.
func (s *ChallengeService) RefreshSnapshot(ctx context.Context) (domain.RingSnapshot, error) {
	snapshot, err := s.health.FetchTodaySnapshot(ctx, s.CurrentUserID())
	if err != nil {
		return domain.RingSnapshot{}, err
	}
	s.applySnapshot(ctx, snapshot)
	return snapshot, nil
}

// applySnapshot replaces the current user's snapshot across the collection
// and re-persists wholesale.
func (s *ChallengeService) applySnapshot(ctx context.Context, snapshot domain.RingSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges = domain.ApplySnapshot(s.challenges, s.userID, snapshot)
	s.persist(ctx)
	for _, c := range s.challenges {
		if c.Roster.Self.ID == s.userID {
			s.publishBoards(ctx, c)
		}
	}
}

// Rollover folds stale snapshots into accumulated carries across the whole
// collection. Returns how many challenges changed.
func (s *ChallengeService) Rollover(ctx context.Context, today time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for i, c := range s.challenges {
		rolled, ok := c.Rollover(today)
		if !ok {
			continue
		}
		s.challenges[i] = rolled
		s.publishBoards(ctx, rolled)
		changed++
	}
	if changed > 0 {
		s.persist(ctx)
	}
	return changed
}

// BoardRow is one ranked leaderboard row enriched for display
type BoardRow struct {
	Rank          int     `json:"rank"`
	ParticipantID string  `json:"participant_id"`
	DisplayName   string  `json:"display_name"`
	AccentColor   string  `json:"accent_color,omitempty"`
	IsCurrentUser bool    `json:"is_current_user"`
	Points        float64 `json:"points"`
	RawPoints     float64 `json:"raw_points"`
}

// Leaderboard returns a challenge's ranked board for the given horizon and
// refreshes the Redis mirror as a side effect.
func (s *ChallengeService) Leaderboard(ctx context.Context, challengeID string, horizon domain.Horizon) ([]BoardRow, error) {
	if horizon != domain.HorizonDay && horizon != domain.HorizonTotal {
		return nil, domain.ErrInvalidRequest
	}

	challenge, err := s.GetChallenge(challengeID)
	if err != nil {
		return nil, err
	}

	rows := s.boardRows(challenge, horizon)
	s.mirrorBoard(ctx, challenge, horizon)
	return rows, nil
}

// ParticipantStanding returns one participant's ranked row for a horizon
func (s *ChallengeService) ParticipantStanding(challengeID, participantID string, horizon domain.Horizon) (BoardRow, error) {
	if horizon != domain.HorizonDay && horizon != domain.HorizonTotal {
		return BoardRow{}, domain.ErrInvalidRequest
	}

	challenge, err := s.GetChallenge(challengeID)
	if err != nil {
		return BoardRow{}, err
	}

	for _, row := range s.boardRows(challenge, horizon) {
		if row.ParticipantID == participantID {
			return row, nil
		}
	}
	return BoardRow{}, domain.ErrParticipantNotFound
}

// CachedBoard reads a challenge's Redis board mirror without touching the
// authoritative collection. Serves read-heavy clients that tolerate staleness.
func (s *ChallengeService) CachedBoard(ctx context.Context, challengeID string, horizon domain.Horizon) ([]rediscache.BoardEntry, error) {
	if horizon != domain.HorizonDay && horizon != domain.HorizonTotal {
		return nil, domain.ErrInvalidRequest
	}
	if s.cache == nil {
		return nil, domain.ErrSourceUnavailable
	}
	if _, err := s.GetChallenge(challengeID); err != nil {
		return nil, err
	}
	return s.cache.GetBoard(ctx, challengeID, horizon)
}

// boardRows converts a ranked roster into display rows
func (s *ChallengeService) boardRows(c domain.Challenge, horizon domain.Horizon) []BoardRow {
	ranked := c.Leaderboard(horizon)
	rows := make([]BoardRow, len(ranked))
	for i, p := range ranked {
		rows[i] = BoardRow{
			Rank:          i + 1,
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			AccentColor:   p.AccentColor,
			IsCurrentUser: p.ID == c.Roster.Self.ID,
			Points:        c.ParticipantScore(p, horizon),
			RawPoints:     p.TodaysRawPoints(),
		}
	}
	return rows
}

// mirrorBoard refreshes one Redis board mirror; the in-memory collection
// stays authoritative, so a cache failure is only worth a warning.
func (s *ChallengeService) mirrorBoard(ctx context.Context, c domain.Challenge, horizon domain.Horizon) {
	if s.cache == nil {
		return
	}
	err := s.cache.MirrorBoard(ctx, c.ID, horizon, c.Leaderboard(horizon), func(p domain.Participant) float64 {
		return c.ParticipantScore(p, horizon)
	})
	if err != nil {
		s.logger.Warn("failed to mirror board", "challenge_id", c.ID, "horizon", horizon, "error", err)
	}
}

// publishBoards mirrors and broadcasts both horizons for a challenge
func (s *ChallengeService) publishBoards(ctx context.Context, c domain.Challenge) {
	for _, horizon := range []domain.Horizon{domain.HorizonDay, domain.HorizonTotal} {
		s.mirrorBoard(ctx, c, horizon)
		if s.hub != nil {
			s.hub.BroadcastBoardUpdate(c.ID, string(horizon), s.boardRows(c, horizon))
		}
	}
}

// persist writes the whole collection through the store. A failed save is
// reported, never fatal: the in-memory copy remains authoritative for the
// session and the next cycle retries the full state. Callers must hold mu.
func (s *ChallengeService) persist(ctx context.Context) {
	snapshot := make([]domain.Challenge, len(s.challenges))
	copy(snapshot, s.challenges)
	if err := s.store.ReplaceAll(ctx, snapshot); err != nil {
		s.logger.Warn("failed to persist challenge collection", "error", err)
	}
}

// resolveCandidates maps requested directory IDs onto candidate records,
// preserving the request order. Unknown IDs are dropped.
func (s *ChallengeService) resolveCandidates(ctx context.Context, contactIDs []string) ([]domain.ContactCandidate, error) {
	if len(contactIDs) == 0 {
		return nil, nil
	}

	all, err := s.directory.FetchCandidates(ctx, s.config.DirectoryLimit)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.ContactCandidate, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}

	candidates := make([]domain.ContactCandidate, 0, len(contactIDs))
	for _, id := range contactIDs {
		if c, ok := byID[id]; ok {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

// Contacts lists invite candidates from the directory
func (s *ChallengeService) Contacts(ctx context.Context, limit int) ([]domain.ContactCandidate, error) {
	if limit <= 0 || limit > s.config.DirectoryLimit {
		limit = s.config.DirectoryLimit
	}
	return s.directory.FetchCandidates(ctx, limit)
}

// AddContact seeds one directory record when the directory supports writes
func (s *ChallengeService) AddContact(ctx context.Context, candidate domain.ContactCandidate) error {
	if candidate.ID == "" {
		return domain.ErrInvalidRequest
	}
	writer, ok := s.directory.(ContactWriter)
	if !ok {
		return domain.ErrSourceUnavailable
	}
	return writer.UpsertContact(ctx, candidate)
}

// AuthorizationState reports a capability's grant state
func (s *ChallengeService) AuthorizationState(ctx context.Context, capability domain.Capability) (domain.Authorization, error) {
	switch capability {
	case domain.CapabilityHealth:
		return s.health.AuthorizationState(ctx)
	case domain.CapabilityContacts:
		return s.directory.AuthorizationState(ctx)
	default:
		return domain.Authorization{}, domain.ErrInvalidRequest
	}
}

// RequestAuthorization asks a capability's collaborator for a grant
func (s *ChallengeService) RequestAuthorization(ctx context.Context, capability domain.Capability) (domain.Authorization, error) {
	switch capability {
	case domain.CapabilityHealth:
		return s.health.RequestAuthorization(ctx)
	case domain.CapabilityContacts:
		return s.directory.RequestAccess(ctx)
	default:
		return domain.Authorization{}, domain.ErrInvalidRequest
	}
}
