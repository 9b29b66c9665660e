// Package store persists accounts and repositories. Repositories are unique
// per (full name, domain) and accounts per (provider, global id).
package store

import (
	"context"
	"errors"

	"github.com/stacklok/toolhive-catalog-sync/internal/models"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// UpdateFunc computes the new state of a repository from the stored one
type UpdateFunc func(existing *models.Repository) (*models.Repository, error)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store

// Store is the key/value style persistence of the sync service
type Store interface {
	// Init prepares the backing storage. It runs once at startup.
	Init(ctx context.Context) error

	// GetAccount returns the account identified by (provider, globalID)
	GetAccount(ctx context.Context, provider, globalID string) (*models.Account, error)

	// ListAccounts returns every stored account
	ListAccounts(ctx context.Context) ([]*models.Account, error)

	// SaveAccount upserts account on (provider, globalID) and assigns its ID
	SaveAccount(ctx context.Context, account *models.Account) error

	// GetRepository returns the repository identified by (fullName, domain)
	GetRepository(ctx context.Context, fullName, domain string) (*models.Repository, error)

	// UpsertRepository inserts or replaces repo keyed by (repo.Repository, repo.Domain)
	// and assigns its ID
	UpsertRepository(ctx context.Context, repo *models.Repository) error

	// UpdateRepository applies fn to the repository identified by
	// (fullName, domain) atomically with respect to every other write of the
	// same record. fn receives nil when the repository does not exist and
	// must not call back into the store. The record fn returns is stored and
	// returned; a nil record deletes the repository.
	UpdateRepository(ctx context.Context, fullName, domain string, fn UpdateFunc) (*models.Repository, error)

	// ListRepositoriesBySource returns the repositories of provider that list
	// owner among their sources
	ListRepositoriesBySource(ctx context.Context, provider, owner string) ([]*models.Repository, error)

	// DeleteRepository removes the repository identified by (fullName, domain)
	DeleteRepository(ctx context.Context, fullName, domain string) error

	// Close releases the backing resources
	Close()
}
