// Package ingest drives provider adapters page by page and reconciles the
// discovered repositories into the store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/toolhive-catalog-sync/internal/filtering"
	"github.com/stacklok/toolhive-catalog-sync/internal/models"
	"github.com/stacklok/toolhive-catalog-sync/internal/otel"
	"github.com/stacklok/toolhive-catalog-sync/internal/providers"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
	"github.com/stacklok/toolhive-catalog-sync/internal/telemetry"
)

// DefaultConcurrency is the number of accounts IngestAll processes at once
const DefaultConcurrency = 4

// Condition types describe the stage an ingestion pass failed in
const (
	// ConditionProviderAvailable covers adapter creation and authentication
	ConditionProviderAvailable = "ProviderAvailable"

	// ConditionEnumerated covers page enumeration and organization lookup
	ConditionEnumerated = "Enumerated"

	// ConditionStored covers every store write
	ConditionStored = "Stored"
)

// Condition reasons for failed passes
const (
	ReasonProviderCreationFailed = "ProviderCreationFailed"
	ReasonAuthenticationFailed   = "AuthenticationFailed"
	ReasonFetchFailed            = "FetchFailed"
	ReasonOrganizationsFailed    = "OrganizationsFailed"
	ReasonStorageFailed          = "StorageFailed"
	ReasonPruneFailed            = "PruneFailed"
)

// Error represents a failed ingestion pass together with the stage it failed in
type Error struct {
	Err             error
	Message         string
	ConditionType   string
	ConditionReason string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result summarizes a completed ingestion pass
type Result struct {
	PagesFetched    int
	RepositoryCount int
	Filtered        int
	Skipped         int
	Pruned          int
	Organizations   []string
}

// Outcome is the result of one account in IngestAll
type Outcome struct {
	Account *models.Account
	Result  *Result
	Err     *Error
}

// Ingestor ingests the repositories visible to accounts
type Ingestor interface {
	// IngestAccount runs one complete pass for account. Pages are fetched
	// strictly in sequence. Upserts applied before a failure are kept.
	IngestAccount(ctx context.Context, account *models.Account) (*Result, *Error)

	// IngestAll ingests accounts concurrently with a bounded worker count.
	// A failing account does not stop the others.
	IngestAll(ctx context.Context, accounts []*models.Account) []Outcome
}

// Option configures the default Ingestor
type Option func(*defaultIngestor)

// WithMetrics records pass metrics
func WithMetrics(m *telemetry.IngestMetrics) Option {
	return func(i *defaultIngestor) {
		i.metrics = m
	}
}

// WithTracer wraps every pass in a span
func WithTracer(tracer trace.Tracer) Option {
	return func(i *defaultIngestor) {
		i.tracer = tracer
	}
}

// WithConcurrency bounds IngestAll. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(i *defaultIngestor) {
		if n > 0 {
			i.concurrency = n
		}
	}
}

// WithRepositoryFilter replaces the filter applied to normalized records
func WithRepositoryFilter(f filtering.RepositoryFilter) Option {
	return func(i *defaultIngestor) {
		i.filter = f
	}
}

// WithClock replaces the pass timestamp source
func WithClock(now func() time.Time) Option {
	return func(i *defaultIngestor) {
		i.now = now
	}
}

type defaultIngestor struct {
	factory     providers.Factory
	store       store.Store
	filter      filtering.RepositoryFilter
	metrics     *telemetry.IngestMetrics
	tracer      trace.Tracer
	concurrency int
	now         func() time.Time
}

// NewIngestor creates the default Ingestor
func NewIngestor(factory providers.Factory, st store.Store, opts ...Option) Ingestor {
	i := &defaultIngestor{
		factory:     factory,
		store:       st,
		filter:      filtering.NewDefaultRepositoryFilter(),
		concurrency: DefaultConcurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IngestAll ingests every account and returns one outcome per account, in input order
func (i *defaultIngestor) IngestAll(ctx context.Context, accounts []*models.Account) []Outcome {
	outcomes := make([]Outcome, len(accounts))

	var g errgroup.Group
	g.SetLimit(i.concurrency)
	for idx, account := range accounts {
		g.Go(func() error {
			result, err := i.IngestAccount(ctx, account)
			outcomes[idx] = Outcome{Account: account, Result: result, Err: err}
			if err != nil {
				slog.Error("Account ingestion failed",
					"provider", account.Provider,
					"owner", account.Owner,
					"reason", err.ConditionReason,
					"error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// IngestAccount runs one complete ingestion pass for account
func (i *defaultIngestor) IngestAccount(ctx context.Context, account *models.Account) (result *Result, ingestErr *Error) {
	started := time.Now()
	ctx, span := otel.StartSpan(ctx, i.tracer, "ingest.IngestAccount",
		trace.WithAttributes(otel.AttrProvider.String(account.Provider), otel.AttrOwner.String(account.Owner)))
	defer func() {
		if ingestErr != nil {
			otel.RecordError(span, ingestErr)
		}
		span.End()
		i.metrics.RecordPass(ctx, account.Provider, account.Owner, time.Since(started), ingestErr == nil)
	}()

	provider, err := i.factory.CreateProvider(account)
	if err != nil {
		return nil, &Error{
			Err:             err,
			Message:         fmt.Sprintf("Failed to create provider: %v", err),
			ConditionType:   ConditionProviderAvailable,
			ConditionReason: ReasonProviderCreationFailed,
		}
	}

	identity, err := provider.Authenticate(ctx)
	if err != nil {
		return nil, &Error{
			Err:             err,
			Message:         fmt.Sprintf("Authentication failed: %v", err),
			ConditionType:   ConditionProviderAvailable,
			ConditionReason: ReasonAuthenticationFailed,
		}
	}
	if identity.GlobalID != "" {
		account.GlobalID = identity.GlobalID
	} else if account.GlobalID == "" {
		account.GlobalID = account.Owner
	}

	if err := i.restoreAccount(ctx, account); err != nil {
		return nil, storageError("Failed to load account", err)
	}

	passTS := i.now()
	resync := account.SyncStatus.HasCompletedPass()
	i.markSyncing(account, passTS)
	if err := i.store.SaveAccount(ctx, account); err != nil {
		return nil, storageError("Failed to save account", err)
	}

	slog.Info("Starting ingestion pass",
		"provider", account.Provider,
		"owner", account.Owner,
		"resync", resync)

	result = &Result{}
	if err := i.enumerate(ctx, provider, account, passTS, result); err != nil {
		return nil, i.fail(ctx, account, result, err)
	}

	orgs, err := provider.ListOrganizations(ctx)
	if err != nil {
		return nil, i.fail(ctx, account, result, &Error{
			Err:             err,
			Message:         fmt.Sprintf("Failed to list organizations: %v", err),
			ConditionType:   ConditionEnumerated,
			ConditionReason: ReasonOrganizationsFailed,
		})
	}
	result.Organizations = orgs
	account.Organizations = orgs

	if resync {
		if err := i.prune(ctx, account, passTS, result); err != nil {
			return nil, i.fail(ctx, account, result, err)
		}
	}

	account.SyncStatus = &status.SyncStatus{
		Phase:           status.SyncPhaseComplete,
		Message:         fmt.Sprintf("Ingested %d repositories", result.RepositoryCount),
		LastAttempt:     &passTS,
		LastSyncTime:    &passTS,
		RepositoryCount: result.RepositoryCount,
		PagesFetched:    result.PagesFetched,
	}
	if err := i.store.SaveAccount(ctx, account); err != nil {
		return nil, storageError("Failed to save account", err)
	}

	span.SetAttributes(otel.AttrPageCount.Int(result.PagesFetched), otel.AttrResultCount.Int(result.RepositoryCount))
	slog.Info("Ingestion pass completed",
		"provider", account.Provider,
		"owner", account.Owner,
		"pages", result.PagesFetched,
		"repositories", result.RepositoryCount,
		"filtered", result.Filtered,
		"pruned", result.Pruned)

	return result, nil
}

// enumerate walks every page of the account and upserts the surviving records
func (i *defaultIngestor) enumerate(
	ctx context.Context,
	provider providers.Provider,
	account *models.Account,
	passTS time.Time,
	result *Result,
) *Error {
	cursor := providers.NewCursor()
	for {
		page, next, err := provider.EnumeratePage(ctx, cursor)
		if err != nil {
			return &Error{
				Err:             err,
				Message:         fmt.Sprintf("Fetch failed after %d pages: %v", result.PagesFetched, err),
				ConditionType:   ConditionEnumerated,
				ConditionReason: ReasonFetchFailed,
			}
		}
		result.PagesFetched++
		i.metrics.AddPages(ctx, account.Provider, account.Owner, 1)

		upserted := 0
		for _, raw := range page.Records {
			repo, err := provider.CreateRepositoryRecord(raw)
			if err != nil {
				slog.Warn("Skipping malformed repository record",
					"provider", account.Provider,
					"owner", account.Owner,
					"error", err)
				result.Skipped++
				continue
			}

			if ok, reason := i.filter.Allows(repo, account.Filter); !ok {
				slog.Debug("Repository filtered out", "repository", repo.Repository, "reason", reason)
				result.Filtered++
				continue
			}

			if err := i.upsert(ctx, repo, account.Owner, passTS); err != nil {
				return storageError(fmt.Sprintf("Failed to store repository %s", repo.Repository), err)
			}
			upserted++
		}
		result.RepositoryCount += upserted
		i.metrics.AddUpserted(ctx, account.Provider, account.Owner, int64(upserted))

		cursor = next
		if !page.HasMore {
			return nil
		}
	}
}

// upsert merges repo into the stored record. Activation state, refs and the
// sources of other accounts are preserved; the merge runs atomically so
// accounts sharing a repository never drop each other's source entry.
func (i *defaultIngestor) upsert(ctx context.Context, repo *models.Repository, owner string, passTS time.Time) error {
	_, err := i.store.UpdateRepository(ctx, repo.Repository, repo.Domain,
		func(existing *models.Repository) (*models.Repository, error) {
			if existing == nil {
				existing = repo
			} else {
				existing.Name = repo.Name
				existing.Owner = repo.Owner
				existing.Provider = repo.Provider
				existing.Access = repo.Access
			}
			existing.Type = models.RepositoryType
			existing.SetSource(owner, passTS)
			return existing, nil
		})
	return err
}

// prune drops this owner's source entries not refreshed by the current pass.
// Orphaned repositories are deleted unless still active.
func (i *defaultIngestor) prune(ctx context.Context, account *models.Account, passTS time.Time, result *Result) *Error {
	repos, err := i.store.ListRepositoriesBySource(ctx, account.Provider, account.Owner)
	if err != nil {
		return pruneError(err)
	}

	domain := providers.AccountDomain(account)
	for _, listed := range repos {
		if listed.Domain != domain {
			continue
		}

		deleted := false
		_, err := i.store.UpdateRepository(ctx, listed.Repository, listed.Domain,
			func(repo *models.Repository) (*models.Repository, error) {
				if repo == nil || !repo.PruneSource(account.Owner, passTS) {
					return repo, nil
				}
				if !repo.IsOrphaned() {
					return repo, nil
				}
				if repo.Active {
					slog.Warn("Keeping orphaned repository because it is still active",
						"repository", repo.Repository,
						"domain", repo.Domain)
					return repo, nil
				}
				deleted = true
				return nil, nil
			})
		if err != nil {
			return pruneError(err)
		}
		if deleted {
			result.Pruned++
		}
	}

	i.metrics.AddPruned(ctx, account.Provider, account.Owner, int64(result.Pruned))
	return nil
}

// restoreAccount carries the stored identity and sync state over to account
func (i *defaultIngestor) restoreAccount(ctx context.Context, account *models.Account) error {
	stored, err := i.store.GetAccount(ctx, account.Provider, account.GlobalID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	account.ID = stored.ID
	if account.SyncStatus == nil {
		account.SyncStatus = stored.SyncStatus
	}
	if len(account.Organizations) == 0 {
		account.Organizations = stored.Organizations
	}
	return nil
}

func (*defaultIngestor) markSyncing(account *models.Account, passTS time.Time) {
	next := &status.SyncStatus{Phase: status.SyncPhaseSyncing, LastAttempt: &passTS, AttemptCount: 1}
	if prev := account.SyncStatus; prev != nil {
		next.AttemptCount = prev.AttemptCount + 1
		next.LastSyncTime = prev.LastSyncTime
		next.RepositoryCount = prev.RepositoryCount
		next.PagesFetched = prev.PagesFetched
	}
	account.SyncStatus = next
}

// fail records the failed pass on the account and returns ingestErr
func (i *defaultIngestor) fail(ctx context.Context, account *models.Account, result *Result, ingestErr *Error) *Error {
	account.SyncStatus.Phase = status.SyncPhaseFailed
	account.SyncStatus.Message = ingestErr.Message
	account.SyncStatus.PagesFetched = result.PagesFetched

	if err := i.store.SaveAccount(ctx, account); err != nil {
		slog.Error("Failed to record failed ingestion pass",
			"provider", account.Provider,
			"owner", account.Owner,
			"error", err)
	}
	return ingestErr
}

func storageError(message string, err error) *Error {
	return &Error{
		Err:             err,
		Message:         fmt.Sprintf("%s: %v", message, err),
		ConditionType:   ConditionStored,
		ConditionReason: ReasonStorageFailed,
	}
}

func pruneError(err error) *Error {
	return &Error{
		Err:             err,
		Message:         fmt.Sprintf("Failed to prune stale sources: %v", err),
		ConditionType:   ConditionStored,
		ConditionReason: ReasonPruneFailed,
	}
}
