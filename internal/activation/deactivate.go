package activation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/models"
	"github.com/stacklok/toolhive-catalog-sync/internal/otel"
	"github.com/stacklok/toolhive-catalog-sync/internal/providers"
)

func (s *defaultService) DeactivateBranch(ctx context.Context, account *models.Account, repo, branch string) (*models.Repository, error) {
	return s.deactivate(ctx, account, repo, RefKindBranch, branch)
}

func (s *defaultService) DeactivateTag(ctx context.Context, account *models.Account, repo, tag string) (*models.Repository, error) {
	return s.deactivate(ctx, account, repo, RefKindTag, tag)
}

// deactivate removes the ref from every catalog version it contributed to,
// then marks it inactive
func (s *defaultService) deactivate(
	ctx context.Context, account *models.Account, repo, kind, name string,
) (record *models.Repository, err error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "activation.Deactivate", trace.WithAttributes(
		otel.AttrProvider.String(account.Provider),
		otel.AttrRepository.String(repo),
		otel.AttrRef.String(name),
		otel.AttrRefKind.String(kind),
	))
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	record, err = s.loadRepository(ctx, account, repo)
	if err != nil {
		return nil, err
	}
	ref := findRef(record, kind, name)
	if ref == nil {
		return nil, fmt.Errorf("%w: %s %s of %s", ErrRefNotFound, kind, name, repo)
	}
	if !ref.Active {
		return nil, fmt.Errorf("%w: %s %s of %s", ErrRefNotActive, kind, name, repo)
	}

	for _, c := range ref.Catalogs {
		if err := s.removeRef(ctx, c, name); err != nil {
			return nil, err
		}
	}

	record, err = s.updateRepository(ctx, record, func(current *models.Repository) {
		if ref := findRef(current, kind, name); ref != nil {
			ref.Active = false
			ref.TS = nil
			ref.Catalogs = nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate %s %s: %w", kind, name, err)
	}

	slog.Info("Ref deactivated", "repository", repo, "kind", kind, "ref", name)
	return record, nil
}

// removeRef drops ref from the versions of one catalog entry
func (s *defaultService) removeRef(ctx context.Context, c models.CatalogRef, ref string) error {
	unlock := s.locks.Lock(catalogKey(c.Name, c.Type))
	defer unlock()

	entry, err := s.registry.GetCatalog(ctx, c.Name, c.Type)
	if errors.Is(err, catalog.ErrNotFound) {
		slog.Warn("Catalog of active ref is missing", "name", c.Name, "type", c.Type, "ref", ref)
		return nil
	}
	if err != nil {
		return err
	}

	updated, changed, err := catalog.RemoveBranch(entry, ref)
	if err != nil || !changed {
		return err
	}
	return s.registry.UpsertCatalog(ctx, updated)
}

func (s *defaultService) ActivateRepository(ctx context.Context, account *models.Account, repo string) (*models.Repository, error) {
	record, err := s.loadRepository(ctx, account, repo)
	if err != nil {
		return nil, err
	}
	if record.Active {
		return record, nil
	}

	provider, err := s.factory.CreateProvider(account)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	branches, tags, err := listRefs(ctx, provider, repo)
	if err != nil {
		return nil, err
	}

	record, err = s.updateRepository(ctx, record, func(current *models.Repository) {
		mergeRefs(current, branches, tags)
		current.Active = true
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Repository activated",
		"repository", repo,
		"branches", len(record.Branches),
		"tags", len(record.Tags))
	return record, nil
}

func (s *defaultService) DeactivateRepository(ctx context.Context, account *models.Account, repo string) (*models.Repository, error) {
	record, err := s.loadRepository(ctx, account, repo)
	if err != nil {
		return nil, err
	}

	src, err := catalog.SourceFromRepository(record.Provider, record.Repository)
	if err != nil {
		return nil, err
	}
	removed, err := s.registry.RemoveCatalogsBySource(ctx, src)
	if err != nil {
		return nil, err
	}

	record, err = s.updateRepository(ctx, record, func(current *models.Repository) {
		for _, refs := range [][]models.Ref{current.Branches, current.Tags} {
			for i := range refs {
				refs[i].Active = false
				refs[i].TS = nil
				refs[i].Catalogs = nil
			}
		}
		current.Active = false
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Repository deactivated", "repository", repo, "catalogs_removed", removed)
	return record, nil
}

func (s *defaultService) RefreshRefs(ctx context.Context, account *models.Account, repo string) (*models.Repository, error) {
	record, err := s.loadRepository(ctx, account, repo)
	if err != nil {
		return nil, err
	}

	provider, err := s.factory.CreateProvider(account)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	branches, tags, err := listRefs(ctx, provider, repo)
	if err != nil {
		return nil, err
	}
	return s.updateRepository(ctx, record, func(current *models.Repository) {
		mergeRefs(current, branches, tags)
	})
}

// listRefs reads the upstream branches and tags of repo
func listRefs(ctx context.Context, provider providers.Provider, repo string) ([]models.Ref, []models.Ref, error) {
	branches, err := provider.ListBranches(ctx, repo)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list branches of %s: %w", repo, err)
	}
	tags, err := provider.ListTags(ctx, repo)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list tags of %s: %w", repo, err)
	}
	return branches, tags, nil
}

func mergeRefs(record *models.Repository, branches, tags []models.Ref) {
	record.Branches = models.MergeRefs(record.Branches, branches)
	record.Tags = models.MergeRefs(record.Tags, tags)
}
