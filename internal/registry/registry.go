// Package registry is the client of the catalog registry, the service that
// stores catalog entries keyed by (name, type).
package registry

import (
	"context"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
)

//go:generate mockgen -destination=mocks/mock_registry.go -package=mocks -source=registry.go Client

// Client reads and writes catalog entries
type Client interface {
	// GetCatalog returns the entry for (name, entryType) or catalog.ErrNotFound
	GetCatalog(ctx context.Context, name, entryType string) (*catalog.Entry, error)

	// UpsertCatalog creates or replaces the entry keyed by (entry.Name, entry.Type)
	UpsertCatalog(ctx context.Context, entry *catalog.Entry) error

	// RemoveCatalogsBySource deletes every entry built from src and returns
	// how many were removed
	RemoveCatalogsBySource(ctx context.Context, src catalog.Source) (int, error)
}
