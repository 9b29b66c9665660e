package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/stacklok/toolhive-catalog-sync/internal/models"
)

// MemoryStore keeps records in process memory. Records are copied on the way
// in and out so callers never share state with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]*models.Account
	repositories map[string]*models.Repository
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     map[string]*models.Account{},
		repositories: map[string]*models.Repository{},
	}
}

func accountKey(provider, globalID string) string {
	return provider + "\x00" + globalID
}

func repositoryKey(fullName, domain string) string {
	return fullName + "\x00" + domain
}

// Init is a no-op
func (*MemoryStore) Init(context.Context) error {
	return nil
}

// GetAccount returns a copy of the stored account
func (s *MemoryStore) GetAccount(_ context.Context, provider, globalID string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountKey(provider, globalID)]
	if !ok {
		return nil, fmt.Errorf("account %s/%s: %w", provider, globalID, ErrNotFound)
	}
	return clone(account)
}

// ListAccounts returns copies of every account ordered by provider and owner
func (s *MemoryStore) ListAccounts(context.Context) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		c, err := clone(account)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Owner < out[j].Owner
	})
	return out, nil
}

// SaveAccount upserts the account
func (s *MemoryStore) SaveAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := accountKey(account.Provider, account.GlobalID)
	if existing, ok := s.accounts[key]; ok {
		account.ID = existing.ID
	} else if account.ID == "" {
		account.ID = uuid.NewString()
	}
	c, err := clone(account)
	if err != nil {
		return err
	}
	s.accounts[key] = c
	return nil
}

// GetRepository returns a copy of the stored repository
func (s *MemoryStore) GetRepository(_ context.Context, fullName, domain string) (*models.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repo, ok := s.repositories[repositoryKey(fullName, domain)]
	if !ok {
		return nil, fmt.Errorf("repository %s on %s: %w", fullName, domain, ErrNotFound)
	}
	return clone(repo)
}

// UpsertRepository inserts or replaces the repository
func (s *MemoryStore) UpsertRepository(_ context.Context, repo *models.Repository) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := repositoryKey(repo.Repository, repo.Domain)
	if existing, ok := s.repositories[key]; ok {
		repo.ID = existing.ID
	} else if repo.ID == "" {
		repo.ID = uuid.NewString()
	}
	c, err := clone(repo)
	if err != nil {
		return err
	}
	s.repositories[key] = c
	return nil
}

// UpdateRepository runs fn under the store lock
func (s *MemoryStore) UpdateRepository(
	_ context.Context, fullName, domain string, fn UpdateFunc,
) (*models.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := repositoryKey(fullName, domain)
	var current *models.Repository
	if stored, ok := s.repositories[key]; ok {
		c, err := clone(stored)
		if err != nil {
			return nil, err
		}
		current = c
	}

	updated, err := fn(current)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		delete(s.repositories, key)
		return nil, nil
	}
	if updated.Repository != fullName || updated.Domain != domain {
		return nil, fmt.Errorf("update of %s on %s changed the repository key", fullName, domain)
	}

	if current != nil {
		updated.ID = current.ID
	} else if updated.ID == "" {
		updated.ID = uuid.NewString()
	}
	c, err := clone(updated)
	if err != nil {
		return nil, err
	}
	s.repositories[key] = c
	return updated, nil
}

// ListRepositoriesBySource returns copies ordered by full name
func (s *MemoryStore) ListRepositoriesBySource(_ context.Context, provider, owner string) ([]*models.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Repository
	for _, repo := range s.repositories {
		if repo.Provider != provider || !repo.HasSource(owner) {
			continue
		}
		c, err := clone(repo)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Repository < out[j].Repository })
	return out, nil
}

// DeleteRepository removes the repository
func (s *MemoryStore) DeleteRepository(_ context.Context, fullName, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := repositoryKey(fullName, domain)
	if _, ok := s.repositories[key]; !ok {
		return fmt.Errorf("repository %s on %s: %w", fullName, domain, ErrNotFound)
	}
	delete(s.repositories, key)
	return nil
}

// Close is a no-op
func (*MemoryStore) Close() {}

// clone deep copies a record through its JSON form, the same shape the
// postgres store persists
func clone[T any](v *T) (*T, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &out, nil
}
