package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/apkanwar/BetterChallenges/internal/config"
	"github.com/apkanwar/BetterChallenges/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists the challenge collection in PostgreSQL. The collection is
// always replaced wholesale: read everything, compute the new value, write
// everything. Multi-device merging is the sync collaborator's concern.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a new PostgreSQL store
func NewStore(cfg *config.PostgresConfig, logger *slog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Store{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Pool returns the underlying connection pool
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// RunMigrations executes database migrations
func (s *Store) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS challenges (
			id VARCHAR(64) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			max_daily_points DOUBLE PRECISION NOT NULL,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS participants (
			challenge_id VARCHAR(64) NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
			position INT NOT NULL,
			id VARCHAR(64) NOT NULL,
			display_name VARCHAR(255) NOT NULL,
			contact_id VARCHAR(64),
			accent_color VARCHAR(16),
			accumulated_points DOUBLE PRECISION NOT NULL DEFAULT 0,
			snapshot JSONB,
			PRIMARY KEY (challenge_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id VARCHAR(64) PRIMARY KEY,
			given_name VARCHAR(255) NOT NULL DEFAULT '',
			family_name VARCHAR(255) NOT NULL DEFAULT '',
			phone VARCHAR(64) NOT NULL DEFAULT '',
			email VARCHAR(255) NOT NULL DEFAULT '',
			display_name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS device_identity (
			id VARCHAR(64) PRIMARY KEY,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_challenge ON participants(challenge_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_display_name ON contacts(display_name)`,
	}

	for _, migration := range migrations {
		_, err := s.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	s.logger.Info("database migrations completed")
	return nil
}

// storageErr maps any database failure onto the domain taxonomy while
// keeping the underlying reason readable.
func storageErr(err error) error {
	return fmt.Errorf("%w: %s", domain.ErrStorageFailure, err)
}

// participantRow is the persistence shape of a participant. Translation
// between rows and the value model lives entirely in this package.
type participantRow struct {
	ChallengeID       string
	Position          int
	ID                string
	DisplayName       string
	ContactID         *string
	AccentColor       *string
	AccumulatedPoints float64
	Snapshot          []byte
}

// encodeParticipant converts a participant to its row shape
func encodeParticipant(challengeID string, position int, p domain.Participant) (participantRow, error) {
	row := participantRow{
		ChallengeID:       challengeID,
		Position:          position,
		ID:                p.ID,
		DisplayName:       p.DisplayName,
		AccumulatedPoints: p.AccumulatedPoints,
	}
	if p.ContactID != "" {
		contactID := p.ContactID
		row.ContactID = &contactID
	}
	if p.AccentColor != "" {
		color := p.AccentColor
		row.AccentColor = &color
	}
	if p.TodaysSnapshot != nil {
		data, err := json.Marshal(p.TodaysSnapshot)
		if err != nil {
			return participantRow{}, fmt.Errorf("marshaling snapshot: %w", err)
		}
		row.Snapshot = data
	}
	return row, nil
}

// decodeParticipant converts a row back into the value model
func (r participantRow) decode() (domain.Participant, error) {
	p := domain.Participant{
		ID:                r.ID,
		DisplayName:       r.DisplayName,
		AccumulatedPoints: r.AccumulatedPoints,
	}
	if r.ContactID != nil {
		p.ContactID = *r.ContactID
	}
	if r.AccentColor != nil {
		p.AccentColor = *r.AccentColor
	}
	if len(r.Snapshot) > 0 {
		var snapshot domain.RingSnapshot
		if err := json.Unmarshal(r.Snapshot, &snapshot); err != nil {
			return domain.Participant{}, fmt.Errorf("unmarshaling snapshot: %w", err)
		}
		p.TodaysSnapshot = &snapshot
	}
	return p, nil
}

// LoadAll reads the entire challenge collection
func (s *Store) LoadAll(ctx context.Context) ([]domain.Challenge, error) {
	query := `
		SELECT id, title, description, max_daily_points, start_date, end_date, created_at, updated_at
		FROM challenges
		ORDER BY created_at
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, storageErr(fmt.Errorf("listing challenges: %w", err))
	}
	defer rows.Close()

	var challenges []domain.Challenge
	index := make(map[string]int)
	for rows.Next() {
		var c domain.Challenge
		err := rows.Scan(
			&c.ID,
			&c.Title,
			&c.Description,
			&c.MaxDailyPoints,
			&c.StartDate,
			&c.EndDate,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, storageErr(fmt.Errorf("scanning challenge: %w", err))
		}
		index[c.ID] = len(challenges)
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}

	if err := s.loadRosters(ctx, challenges, index); err != nil {
		return nil, err
	}
	return challenges, nil
}

// loadRosters attaches participants to their challenges, position 0 being
// the current user.
func (s *Store) loadRosters(ctx context.Context, challenges []domain.Challenge, index map[string]int) error {
	query := `
		SELECT challenge_id, position, id, display_name, contact_id, accent_color, accumulated_points, snapshot
		FROM participants
		ORDER BY challenge_id, position
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return storageErr(fmt.Errorf("listing participants: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var row participantRow
		err := rows.Scan(
			&row.ChallengeID,
			&row.Position,
			&row.ID,
			&row.DisplayName,
			&row.ContactID,
			&row.AccentColor,
			&row.AccumulatedPoints,
			&row.Snapshot,
		)
		if err != nil {
			return storageErr(fmt.Errorf("scanning participant: %w", err))
		}

		i, ok := index[row.ChallengeID]
		if !ok {
			continue
		}
		p, err := row.decode()
		if err != nil {
			return storageErr(err)
		}
		if row.Position == 0 {
			challenges[i].Roster.Self = p
		} else {
			challenges[i].Roster.Others = append(challenges[i].Roster.Others, p)
		}
	}
	return rows.Err()
}

// ReplaceAll persists the entire challenge collection in one transaction
func (s *Store) ReplaceAll(ctx context.Context, challenges []domain.Challenge) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr(fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM challenges`); err != nil {
		return storageErr(fmt.Errorf("clearing challenges: %w", err))
	}

	challengeQuery := `
		INSERT INTO challenges (id, title, description, max_daily_points, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	participantQuery := `
		INSERT INTO participants (challenge_id, position, id, display_name, contact_id, accent_color, accumulated_points, snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, c := range challenges {
		batch.Queue(challengeQuery,
			c.ID, c.Title, c.Description, c.MaxDailyPoints,
			c.StartDate, c.EndDate, c.CreatedAt, c.UpdatedAt,
		)
		for position, p := range c.Roster.Participants() {
			row, err := encodeParticipant(c.ID, position, p)
			if err != nil {
				return storageErr(err)
			}
			batch.Queue(participantQuery,
				row.ChallengeID, row.Position, row.ID, row.DisplayName,
				row.ContactID, row.AccentColor, row.AccumulatedPoints, row.Snapshot,
			)
		}
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return storageErr(fmt.Errorf("writing challenge collection: %w", err))
		}
	}
	if err := br.Close(); err != nil {
		return storageErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// LoadOrCreateIdentity returns the device's stable opaque identifier,
// generating and persisting one on first run.
func (s *Store) LoadOrCreateIdentity(ctx context.Context) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `SELECT id FROM device_identity ORDER BY created_at LIMIT 1`).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != pgx.ErrNoRows {
		return "", storageErr(fmt.Errorf("loading identity: %w", err))
	}

	id = uuid.New().String()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO device_identity (id, created_at) VALUES ($1, $2)`,
		id, time.Now(),
	)
	if err != nil {
		return "", storageErr(fmt.Errorf("persisting identity: %w", err))
	}
	s.logger.Info("device identity created", "id", id)
	return id, nil
}
