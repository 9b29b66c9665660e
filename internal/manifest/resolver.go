package manifest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/stacklok/toolhive-catalog-sync/internal/providers"
)

// FileFetcher reads files from a repository at a ref
type FileFetcher interface {
	FetchFile(ctx context.Context, repo, ref, path string) ([]byte, error)
}

// FolderResult is the outcome of resolving one folder of a multi manifest
type FolderResult struct {
	Folder   string
	Document *Document
	Err      error
}

// Resolver locates manifests inside repositories
//
//go:generate mockgen -destination=mocks/mock_resolver.go -package=mocks -source=resolver.go Resolver
type Resolver interface {
	// Resolve finds the first manifest in search order under folder.
	// It returns ErrManifestNotFound or a *ParseError when the repository has
	// no usable manifest, and the fetch error for any other failure.
	Resolve(ctx context.Context, fetcher FileFetcher, repo, ref, folder string) (*Document, error)

	// ResolveAll resolves the root manifest and, for a multi manifest, every
	// declared folder independently. A single-manifest repository yields
	// one result with an empty folder.
	ResolveAll(ctx context.Context, fetcher FileFetcher, repo, ref string) ([]FolderResult, error)
}

// ResolverOption configures the default resolver
type ResolverOption func(*defaultResolver)

// WithScriptTimeout bounds legacy script evaluation
func WithScriptTimeout(timeout time.Duration) ResolverOption {
	return func(r *defaultResolver) {
		if timeout > 0 {
			r.scriptTimeout = timeout
		}
	}
}

type defaultResolver struct {
	scriptTimeout time.Duration
}

// NewResolver creates the default Resolver
func NewResolver(opts ...ResolverOption) Resolver {
	r := &defaultResolver{scriptTimeout: DefaultScriptTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *defaultResolver) Resolve(ctx context.Context, fetcher FileFetcher, repo, ref, folder string) (*Document, error) {
	folder = strings.Trim(folder, "/")

	for _, name := range SearchOrder {
		filePath := path.Join(folder, name)

		data, err := fetcher.FetchFile(ctx, repo, ref, filePath)
		if errors.Is(err, providers.ErrNotFound) {
			continue
		}
		if errors.Is(err, providers.ErrFileTooLarge) {
			return nil, &ParseError{Path: filePath, Err: err}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", filePath, err)
		}

		content, err := r.parse(name, data)
		if err != nil {
			return nil, &ParseError{Path: filePath, Err: err}
		}

		doc, err := normalize(content, filePath, folder)
		if err != nil {
			return nil, &ValidationError{Path: filePath, Err: err}
		}

		slog.Debug("Manifest resolved",
			"repository", repo,
			"ref", ref,
			"path", filePath,
			"type", doc.Type,
			"version", doc.Version)
		return doc, nil
	}

	return nil, fmt.Errorf("%w in %s at %s under %q", ErrManifestNotFound, repo, ref, folder)
}

func (r *defaultResolver) parse(name string, data []byte) (map[string]any, error) {
	if name == FileSoaJSON {
		return parseJSON(data)
	}
	return evalScript(data, r.scriptTimeout)
}

func (r *defaultResolver) ResolveAll(ctx context.Context, fetcher FileFetcher, repo, ref string) ([]FolderResult, error) {
	root, err := r.Resolve(ctx, fetcher, repo, ref, "")
	if err != nil {
		return nil, err
	}
	if root.Type != TypeMulti {
		return []FolderResult{{Document: root}}, nil
	}

	folders := root.Folders()
	if len(folders) == 0 {
		return nil, &ValidationError{Type: TypeMulti, Path: root.Path, Err: errors.New("multi manifest declares no folders")}
	}

	results := make([]FolderResult, 0, len(folders))
	for _, folder := range folders {
		doc, err := r.Resolve(ctx, fetcher, repo, ref, folder)
		if err == nil && doc.Type == TypeMulti {
			err = &ValidationError{Type: TypeMulti, Path: doc.Path, Err: errors.New("nested multi manifests are not supported")}
			doc = nil
		}
		results = append(results, FolderResult{Folder: folder, Document: doc, Err: err})
	}
	return results, nil
}
