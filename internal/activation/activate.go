package activation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/manifest"
	"github.com/stacklok/toolhive-catalog-sync/internal/models"
	"github.com/stacklok/toolhive-catalog-sync/internal/otel"
	"github.com/stacklok/toolhive-catalog-sync/internal/providers"
)

func (s *defaultService) ActivateBranch(ctx context.Context, account *models.Account, repo, branch string) (*Result, error) {
	return s.activate(ctx, account, repo, RefKindBranch, branch)
}

func (s *defaultService) ActivateTag(ctx context.Context, account *models.Account, repo, tag string) (*Result, error) {
	return s.activate(ctx, account, repo, RefKindTag, tag)
}

// activate runs resolve, validate, fetch swagger, fetch documentation,
// duplicate check, build and registry upsert for every manifest of the ref,
// then persists the ref as active. Nothing is persisted when no manifest
// produced a catalog entry.
func (s *defaultService) activate(
	ctx context.Context, account *models.Account, repo, kind, name string,
) (result *Result, err error) {
	started := time.Now()
	ctx, span := otel.StartSpan(ctx, s.tracer, "activation.Activate", trace.WithAttributes(
		otel.AttrProvider.String(account.Provider),
		otel.AttrRepository.String(repo),
		otel.AttrRef.String(name),
		otel.AttrRefKind.String(kind),
	))
	defer func() {
		otel.RecordError(span, err)
		span.End()
		s.metrics.RecordActivation(ctx, kind, time.Since(started), err == nil)
	}()

	record, err := s.loadRepository(ctx, account, repo)
	if err != nil {
		return nil, err
	}
	if !record.Active {
		return nil, fmt.Errorf("%w: %s", ErrRepositoryInactive, repo)
	}
	if ref := findRef(record, kind, name); ref != nil && ref.Active {
		return nil, fmt.Errorf("%w: %s %s of %s", ErrRefAlreadyActive, kind, name, repo)
	}

	provider, err := s.factory.CreateProvider(account)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	upstream, err := s.getRef(ctx, provider, kind, repo, name)
	if err != nil {
		return nil, err
	}

	result = &Result{Repository: record, Kind: kind}
	documents, err := s.resolve(ctx, provider, record, name, result)
	if err != nil {
		return nil, err
	}

	var refs []models.CatalogRef
	var failures []error
	for _, doc := range documents {
		if doc.Err != nil {
			result.Folders = append(result.Folders, FolderResult{Folder: doc.Folder, Err: doc.Err})
			failures = append(failures, doc.Err)
			continue
		}

		entry, err := s.buildCatalog(ctx, provider, record, name, doc.Document)
		if err != nil {
			slog.Warn("Catalog build failed",
				"repository", repo,
				"ref", name,
				"folder", doc.Folder,
				"error", err)
			result.Folders = append(result.Folders, FolderResult{Folder: doc.Folder, Err: err})
			failures = append(failures, err)
			continue
		}
		result.Folders = append(result.Folders, FolderResult{Folder: doc.Folder, Entry: entry})
		refs = append(refs, models.CatalogRef{Name: entry.Name, Type: entry.Type})
	}

	if len(refs) == 0 {
		return nil, fmt.Errorf("no catalog entry built for %s %s of %s: %w", kind, name, repo, errors.Join(failures...))
	}

	updated, ref, err := s.persistActive(ctx, record, kind, upstream, refs)
	if err != nil {
		return nil, err
	}
	result.Repository = updated
	result.Ref = ref

	slog.Info("Ref activated",
		"repository", repo,
		"kind", kind,
		"ref", name,
		"catalogs", len(refs),
		"failed", len(failures))
	return result, nil
}

func (*defaultService) getRef(ctx context.Context, provider providers.Provider, kind, repo, name string) (*models.Ref, error) {
	var ref *models.Ref
	var err error
	if kind == RefKindTag {
		ref, err = provider.GetTag(ctx, repo, name)
	} else {
		ref, err = provider.GetBranch(ctx, repo, name)
	}
	if errors.Is(err, providers.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s %s of %s", ErrRefNotFound, kind, name, repo)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s of %s: %w", kind, name, repo, err)
	}
	if ref.Name == "" {
		ref.Name = name
	}
	return ref, nil
}

// resolve returns the manifests of the ref. A repository without a usable
// root manifest gets a synthetic custom manifest named after it.
func (s *defaultService) resolve(
	ctx context.Context, provider providers.Provider, record *models.Repository, ref string, result *Result,
) ([]manifest.FolderResult, error) {
	documents, err := s.resolver.ResolveAll(ctx, provider, record.Repository, ref)
	if manifest.IsResolverFailure(err) {
		slog.Info("No usable manifest, using synthetic manifest",
			"repository", record.Repository,
			"ref", ref,
			"reason", err)
		result.Synthetic = true
		return []manifest.FolderResult{{Document: manifest.Synthesize(record.Name)}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest of %s at %s: %w", record.Repository, ref, err)
	}
	return documents, nil
}

// buildCatalog validates doc, gathers its documents and stores the merged
// catalog entry. The duplicate check, build and upsert run under the lock of
// the entry's (name, type).
func (s *defaultService) buildCatalog(
	ctx context.Context, provider providers.Provider, record *models.Repository, ref string, doc *manifest.Document,
) (*catalog.Entry, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "activation.BuildCatalog", trace.WithAttributes(
		otel.AttrCatalogName.String(doc.Name),
		otel.AttrCatalogType.String(doc.Type),
	))
	defer span.End()

	entry, err := s.storeCatalog(ctx, provider, record, ref, doc)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	s.metrics.AddCatalogUpserted(ctx, entry.Type)
	return entry, nil
}

func (s *defaultService) storeCatalog(
	ctx context.Context, provider providers.Provider, record *models.Repository, ref string, doc *manifest.Document,
) (*catalog.Entry, error) {
	if err := s.validator.Validate(doc); err != nil {
		return nil, err
	}

	builder, err := catalog.NewBuilder(doc.Type)
	if err != nil {
		return nil, err
	}

	src, err := catalog.SourceFromRepository(record.Provider, record.Repository)
	if err != nil {
		return nil, err
	}

	bc := catalog.BuildContext{
		Repository: record,
		Branch:     ref,
		Manifest:   doc,
		Now:        s.now(),
	}
	if hasSwagger(doc.Type) {
		if bc.Swagger, err = fetchSwagger(ctx, provider, record.Repository, ref, doc); err != nil {
			return nil, err
		}
	}
	if bc.Readme, bc.Release, err = fetchDocumentation(ctx, provider, record.Repository, ref, doc.Folder); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(catalogKey(doc.Name, doc.Type))
	defer unlock()

	existing, err := catalog.CheckDuplicateSource(ctx, s.registry, doc.Name, doc.Type, src)
	if err != nil {
		return nil, err
	}

	entry, err := builder.CreateCatalog(bc, existing)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog %s %q: %w", doc.Type, doc.Name, err)
	}

	if err := s.registry.UpsertCatalog(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// persistActive records ref as active with the catalogs it contributed
func (s *defaultService) persistActive(
	ctx context.Context, record *models.Repository, kind string, upstream *models.Ref, catalogs []models.CatalogRef,
) (*models.Repository, *models.Ref, error) {
	ts := s.now()
	updated, err := s.updateRepository(ctx, record, func(current *models.Repository) {
		ref := findRef(current, kind, upstream.Name)
		if ref == nil {
			refs := refsOf(current, kind)
			*refs = append(*refs, models.Ref{Name: upstream.Name})
			ref = &(*refs)[len(*refs)-1]
		}
		ref.Active = true
		ref.TS = &ts
		ref.Catalogs = catalogs
		if upstream.Commit != "" {
			ref.Commit = upstream.Commit
		}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to persist %s %s: %w", kind, upstream.Name, err)
	}
	out := *findRef(updated, kind, upstream.Name)
	return updated, &out, nil
}
