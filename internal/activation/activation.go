// Package activation implements the branch, tag and repository activation
// state machine. Activating a ref resolves its manifests, builds the catalog
// entries and records the ref as active once every entry is stored.
package activation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/manifest"
	"github.com/stacklok/toolhive-catalog-sync/internal/models"
	"github.com/stacklok/toolhive-catalog-sync/internal/providers"
	"github.com/stacklok/toolhive-catalog-sync/internal/registry"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
	"github.com/stacklok/toolhive-catalog-sync/internal/telemetry"
)

// Ref kinds
const (
	RefKindBranch = "branch"
	RefKindTag    = "tag"
)

var (
	// ErrRepositoryInactive is returned when a ref of an inactive repository is activated
	ErrRepositoryInactive = errors.New("repository is not active")

	// ErrRefAlreadyActive is returned when activating an active ref
	ErrRefAlreadyActive = errors.New("ref is already active")

	// ErrRefNotActive is returned when deactivating an inactive ref
	ErrRefNotActive = errors.New("ref is not active")

	// ErrRefNotFound is returned when the provider or the record does not know the ref
	ErrRefNotFound = errors.New("ref not found")

	// ErrRepositoryNotFound is returned when the repository was never ingested
	ErrRepositoryNotFound = errors.New("repository not found")
)

// FolderResult is the outcome of one manifest of an activated ref. A
// single-manifest repository has one result with an empty folder.
type FolderResult struct {
	Folder string
	Entry  *catalog.Entry
	Err    error
}

// Result describes an activated ref
type Result struct {
	Repository *models.Repository
	Ref        *models.Ref
	Kind       string
	Folders    []FolderResult

	// Synthetic is set when the repository declares no usable manifest
	Synthetic bool
}

// Failed returns the folders that produced no catalog entry
func (r *Result) Failed() []FolderResult {
	var out []FolderResult
	for _, f := range r.Folders {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Service drives ref and repository activation
type Service interface {
	ActivateBranch(ctx context.Context, account *models.Account, repo, branch string) (*Result, error)
	ActivateTag(ctx context.Context, account *models.Account, repo, tag string) (*Result, error)
	DeactivateBranch(ctx context.Context, account *models.Account, repo, branch string) (*models.Repository, error)
	DeactivateTag(ctx context.Context, account *models.Account, repo, tag string) (*models.Repository, error)

	// ActivateRepository marks the repository active and refreshes its refs
	ActivateRepository(ctx context.Context, account *models.Account, repo string) (*models.Repository, error)

	// DeactivateRepository forces every ref inactive and removes the catalog
	// entries built from the repository
	DeactivateRepository(ctx context.Context, account *models.Account, repo string) (*models.Repository, error)

	// RefreshRefs merges the provider's current branches and tags into the
	// record, keeping activation state
	RefreshRefs(ctx context.Context, account *models.Account, repo string) (*models.Repository, error)
}

// Option configures the default Service
type Option func(*defaultService)

// WithResolver replaces the manifest resolver
func WithResolver(r manifest.Resolver) Option {
	return func(s *defaultService) {
		s.resolver = r
	}
}

// WithValidator replaces the manifest schema validator
func WithValidator(v *manifest.Validator) Option {
	return func(s *defaultService) {
		s.validator = v
	}
}

// WithMetrics records activation metrics
func WithMetrics(m *telemetry.CatalogMetrics) Option {
	return func(s *defaultService) {
		s.metrics = m
	}
}

// WithTracer wraps every operation in a span
func WithTracer(tracer trace.Tracer) Option {
	return func(s *defaultService) {
		s.tracer = tracer
	}
}

// WithClock replaces the activation timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *defaultService) {
		s.now = now
	}
}

type defaultService struct {
	factory   providers.Factory
	store     store.Store
	registry  registry.Client
	resolver  manifest.Resolver
	validator *manifest.Validator
	metrics   *telemetry.CatalogMetrics
	tracer    trace.Tracer
	locks     *keyedMutex
	now       func() time.Time
}

// NewService creates the default Service
func NewService(factory providers.Factory, st store.Store, reg registry.Client, opts ...Option) (Service, error) {
	s := &defaultService{
		factory:  factory,
		store:    st,
		registry: reg,
		resolver: manifest.NewResolver(),
		locks:    newKeyedMutex(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		validator, err := manifest.NewValidator()
		if err != nil {
			return nil, fmt.Errorf("failed to create manifest validator: %w", err)
		}
		s.validator = validator
	}
	return s, nil
}

// loadRepository reads the repository record of account's domain
func (s *defaultService) loadRepository(ctx context.Context, account *models.Account, repo string) (*models.Repository, error) {
	record, err := s.store.GetRepository(ctx, repo, providers.AccountDomain(account))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, repo)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load repository %s: %w", repo, err)
	}
	return record, nil
}

// updateRepository applies fn to the current stored record atomically so
// concurrent ingestion passes keep their source entries
func (s *defaultService) updateRepository(
	ctx context.Context, record *models.Repository, fn func(*models.Repository),
) (*models.Repository, error) {
	updated, err := s.store.UpdateRepository(ctx, record.Repository, record.Domain,
		func(current *models.Repository) (*models.Repository, error) {
			if current == nil {
				return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, record.Repository)
			}
			fn(current)
			return current, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to persist repository %s: %w", record.Repository, err)
	}
	return updated, nil
}

// refsOf returns a pointer to the branch or tag list of record
func refsOf(record *models.Repository, kind string) *[]models.Ref {
	if kind == RefKindTag {
		return &record.Tags
	}
	return &record.Branches
}

func findRef(record *models.Repository, kind, name string) *models.Ref {
	if kind == RefKindTag {
		return record.FindTag(name)
	}
	return record.FindBranch(name)
}
