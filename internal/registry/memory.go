package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
)

type entryKey struct {
	name      string
	entryType string
}

// MemoryClient keeps catalog entries in process. It backs local runs without
// a registry endpoint and the tests of its callers.
type MemoryClient struct {
	mu      sync.RWMutex
	entries map[entryKey]*catalog.Entry
}

// NewMemoryClient returns an empty in-memory registry
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{entries: make(map[entryKey]*catalog.Entry)}
}

// GetCatalog returns a copy of the stored entry
func (m *MemoryClient) GetCatalog(_ context.Context, name, entryType string) (*catalog.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[entryKey{name: name, entryType: entryType}]
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", catalog.ErrNotFound, entryType, name)
	}
	return entry.Clone()
}

// UpsertCatalog stores a copy of entry
func (m *MemoryClient) UpsertCatalog(_ context.Context, entry *catalog.Entry) error {
	stored, err := entry.Clone()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entryKey{name: entry.Name, entryType: entry.Type}] = stored
	return nil
}

// RemoveCatalogsBySource deletes the entries built from src
func (m *MemoryClient) RemoveCatalogsBySource(_ context.Context, src catalog.Source) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.entries {
		if entry.Src == src {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

// List returns copies of every entry ordered by type then name
func (m *MemoryClient) List() []*catalog.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*catalog.Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		clone, err := entry.Clone()
		if err != nil {
			continue
		}
		out = append(out, clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out
}
