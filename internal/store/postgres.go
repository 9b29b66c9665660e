package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/toolhive-catalog-sync/database"
	"github.com/stacklok/toolhive-catalog-sync/internal/models"
)

// PostgresStore persists records as JSONB documents. Key columns are kept
// next to the document for the uniqueness constraints.
type PostgresStore struct {
	pool       *pgxpool.Pool
	connString string
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects a pool to connString
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &PostgresStore{pool: pool, connString: connString}, nil
}

// NewPostgresStoreFromPool wraps an existing pool. Init only pings the
// database when connString is empty.
func NewPostgresStoreFromPool(pool *pgxpool.Pool, connString string) *PostgresStore {
	return &PostgresStore{pool: pool, connString: connString}
}

// Init verifies connectivity and applies pending migrations
func (s *PostgresStore) Init(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if s.connString == "" {
		return nil
	}
	return database.MigrateUp(s.connString)
}

// GetAccount returns the account identified by (provider, globalID)
func (s *PostgresStore) GetAccount(ctx context.Context, provider, globalID string) (*models.Account, error) {
	var id uuid.UUID
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, doc FROM accounts WHERE provider = $1 AND global_id = $2`,
		provider, globalID).Scan(&id, &doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %s/%s: %w", provider, globalID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return decodeAccount(id, doc)
}

// ListAccounts returns every account ordered by provider and owner
func (s *PostgresStore) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, doc FROM accounts ORDER BY provider, owner`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		var id uuid.UUID
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		account, err := decodeAccount(id, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

// SaveAccount upserts the account on (provider, global_id)
func (s *PostgresStore) SaveAccount(ctx context.Context, account *models.Account) error {
	doc, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}
	var id uuid.UUID
	err = s.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, provider, global_id, owner, doc)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider, global_id)
		DO UPDATE SET owner = EXCLUDED.owner, doc = EXCLUDED.doc, updated_at = now()
		RETURNING id`,
		newID(account.ID), account.Provider, account.GlobalID, account.Owner, doc).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	account.ID = id.String()
	return nil
}

// GetRepository returns the repository identified by (fullName, domain)
func (s *PostgresStore) GetRepository(ctx context.Context, fullName, domain string) (*models.Repository, error) {
	var id uuid.UUID
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, doc FROM repositories WHERE full_name = $1 AND domain = $2`,
		fullName, domain).Scan(&id, &doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("repository %s on %s: %w", fullName, domain, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}
	return decodeRepository(id, doc)
}

// UpsertRepository inserts or replaces the repository on (full_name, domain)
func (s *PostgresStore) UpsertRepository(ctx context.Context, repo *models.Repository) error {
	doc, err := json.Marshal(repo)
	if err != nil {
		return fmt.Errorf("failed to encode repository: %w", err)
	}
	var id uuid.UUID
	err = s.pool.QueryRow(ctx, `
		INSERT INTO repositories (id, full_name, domain, provider, active, doc)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (full_name, domain)
		DO UPDATE SET provider = EXCLUDED.provider, active = EXCLUDED.active,
			doc = EXCLUDED.doc, updated_at = now()
		RETURNING id`,
		newID(repo.ID), repo.Repository, repo.Domain, repo.Provider, repo.Active, doc).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to upsert repository %s: %w", repo.Repository, err)
	}
	repo.ID = id.String()
	return nil
}

// updateAttempts bounds the retries of an update that lost an insert race
const updateAttempts = 3

// UpdateRepository runs fn inside a transaction holding the row lock of the
// repository. A missing row is inserted with ON CONFLICT DO NOTHING; losing
// that race reruns fn against the row the other writer inserted.
func (s *PostgresStore) UpdateRepository(
	ctx context.Context, fullName, domain string, fn UpdateFunc,
) (*models.Repository, error) {
	for attempt := 0; attempt < updateAttempts; attempt++ {
		var result *models.Repository
		inserted := true
		err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			var id uuid.UUID
			var doc []byte
			var current *models.Repository
			err := tx.QueryRow(ctx,
				`SELECT id, doc FROM repositories WHERE full_name = $1 AND domain = $2 FOR UPDATE`,
				fullName, domain).Scan(&id, &doc)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
			case err != nil:
				return fmt.Errorf("failed to lock repository %s: %w", fullName, err)
			default:
				if current, err = decodeRepository(id, doc); err != nil {
					return err
				}
			}

			updated, err := fn(current)
			if err != nil {
				return err
			}
			if updated == nil {
				if current != nil {
					if _, err := tx.Exec(ctx,
						`DELETE FROM repositories WHERE id = $1`, id); err != nil {
						return fmt.Errorf("failed to delete repository %s: %w", fullName, err)
					}
				}
				return nil
			}
			if updated.Repository != fullName || updated.Domain != domain {
				return fmt.Errorf("update of %s on %s changed the repository key", fullName, domain)
			}

			newDoc, err := json.Marshal(updated)
			if err != nil {
				return fmt.Errorf("failed to encode repository: %w", err)
			}
			if current != nil {
				_, err = tx.Exec(ctx, `
					UPDATE repositories SET provider = $2, active = $3, doc = $4, updated_at = now()
					WHERE id = $1`,
					id, updated.Provider, updated.Active, newDoc)
				if err != nil {
					return fmt.Errorf("failed to update repository %s: %w", fullName, err)
				}
				updated.ID = id.String()
				result = updated
				return nil
			}

			rowID := newID(updated.ID)
			tag, err := tx.Exec(ctx, `
				INSERT INTO repositories (id, full_name, domain, provider, active, doc)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (full_name, domain) DO NOTHING`,
				rowID, fullName, domain, updated.Provider, updated.Active, newDoc)
			if err != nil {
				return fmt.Errorf("failed to insert repository %s: %w", fullName, err)
			}
			if tag.RowsAffected() == 0 {
				inserted = false
				return nil
			}
			updated.ID = rowID.String()
			result = updated
			return nil
		})
		if err != nil {
			return nil, err
		}
		if inserted {
			return result, nil
		}
	}
	return nil, fmt.Errorf("failed to update repository %s on %s: concurrent inserts", fullName, domain)
}

// ListRepositoriesBySource uses JSONB containment on the source array
func (s *PostgresStore) ListRepositoriesBySource(
	ctx context.Context, provider, owner string,
) ([]*models.Repository, error) {
	filter, err := json.Marshal([]map[string]string{{"name": owner}})
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, doc FROM repositories
		WHERE provider = $1 AND doc -> 'source' @> $2::jsonb
		ORDER BY full_name`,
		provider, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	var out []*models.Repository
	for rows.Next() {
		var id uuid.UUID
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		repo, err := decodeRepository(id, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, repo)
	}
	return out, rows.Err()
}

// DeleteRepository removes the repository identified by (fullName, domain)
func (s *PostgresStore) DeleteRepository(ctx context.Context, fullName, domain string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM repositories WHERE full_name = $1 AND domain = $2`, fullName, domain)
	if err != nil {
		return fmt.Errorf("failed to delete repository %s: %w", fullName, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repository %s on %s: %w", fullName, domain, ErrNotFound)
	}
	return nil
}

// Close closes the pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func newID(id string) uuid.UUID {
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed
	}
	return uuid.New()
}

func decodeAccount(id uuid.UUID, doc []byte) (*models.Account, error) {
	var account models.Account
	if err := json.Unmarshal(doc, &account); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	account.ID = id.String()
	return &account, nil
}

func decodeRepository(id uuid.UUID, doc []byte) (*models.Repository, error) {
	var repo models.Repository
	if err := json.Unmarshal(doc, &repo); err != nil {
		return nil, fmt.Errorf("failed to decode repository: %w", err)
	}
	repo.ID = id.String()
	return &repo, nil
}
