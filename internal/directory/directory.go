package directory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apkanwar/BetterChallenges/internal/domain"
	rediscache "github.com/apkanwar/BetterChallenges/internal/redis"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Directory is the address-book collaborator: a searchable list of candidate
// people backed by PostgreSQL, gated by the shared capability grant.
type Directory struct {
	pool   *pgxpool.Pool
	grants *rediscache.Cache
	logger *slog.Logger
}

// NewDirectory creates a new contact directory
func NewDirectory(pool *pgxpool.Pool, grants *rediscache.Cache, logger *slog.Logger) *Directory {
	return &Directory{
		pool:   pool,
		grants: grants,
		logger: logger,
	}
}

// AuthorizationState returns the directory's current grant state
func (d *Directory) AuthorizationState(ctx context.Context) (domain.Authorization, error) {
	return d.grants.GetAuthorization(ctx, domain.CapabilityContacts)
}

// RequestAccess records a grant for the directory. A previously denied grant
// stays denied; the user has to change it outside this flow.
func (d *Directory) RequestAccess(ctx context.Context) (domain.Authorization, error) {
	auth, err := d.grants.GetAuthorization(ctx, domain.CapabilityContacts)
	if err != nil {
		return domain.Authorization{}, err
	}
	if auth.Status == domain.AuthorizationDenied {
		return auth, nil
	}

	auth = auth.Grant()
	if err := d.grants.SetAuthorization(ctx, auth); err != nil {
		return domain.Authorization{}, err
	}
	return auth, nil
}

// FetchCandidates returns up to limit candidates ordered by display name.
// Fails closed when the grant is missing or denied.
func (d *Directory) FetchCandidates(ctx context.Context, limit int) ([]domain.ContactCandidate, error) {
	auth, err := d.AuthorizationState(ctx)
	if err != nil {
		return nil, err
	}
	if err := auth.Err(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, given_name, family_name, phone, email
		FROM contacts
		ORDER BY display_name
		LIMIT $1
	`
	rows, err := d.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: listing contacts: %s", domain.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var candidates []domain.ContactCandidate
	for rows.Next() {
		var c domain.ContactCandidate
		if err := rows.Scan(&c.ID, &c.GivenName, &c.FamilyName, &c.Phone, &c.Email); err != nil {
			return nil, fmt.Errorf("scanning contact: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// UpsertContact adds or refreshes one directory record. Used by the API to
// seed the address book the invite flow searches.
func (d *Directory) UpsertContact(ctx context.Context, c domain.ContactCandidate) error {
	query := `
		INSERT INTO contacts (id, given_name, family_name, phone, email, display_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id)
		DO UPDATE SET given_name = $2, family_name = $3, phone = $4, email = $5, display_name = $6
	`
	_, err := d.pool.Exec(ctx, query, c.ID, c.GivenName, c.FamilyName, c.Phone, c.Email, c.DisplayName())
	if err != nil {
		return fmt.Errorf("%w: upserting contact: %s", domain.ErrStorageFailure, err)
	}
	return nil
}
