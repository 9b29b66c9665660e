package activation

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/tidwall/gjson"

	"github.com/stacklok/toolhive-catalog-sync/internal/manifest"
	"github.com/stacklok/toolhive-catalog-sync/internal/providers"
)

// Repository files read next to a manifest
const (
	DefaultSwaggerFile = "swagger.json"
	ReadmeFile         = "README.md"
	ReleaseFile        = "RELEASE.md"
)

func hasSwagger(entryType string) bool {
	return entryType == manifest.TypeService || entryType == manifest.TypeDaemon
}

// fetchSwagger reads the API description of a service or daemon. The manifest
// may point at another file with "swagger"; a missing file yields "".
func fetchSwagger(ctx context.Context, fetcher manifest.FileFetcher, repo, ref string, doc *manifest.Document) (string, error) {
	file := doc.String("swagger")
	if file == "" {
		file = DefaultSwaggerFile
	}
	filePath := path.Join(doc.Folder, file)

	data, err := fetchOptional(ctx, fetcher, repo, ref, filePath)
	if err != nil || data == nil {
		return "", err
	}
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("swagger %s is not valid JSON", filePath)
	}
	if !gjson.GetBytes(data, "openapi").Exists() && !gjson.GetBytes(data, "swagger").Exists() {
		return "", fmt.Errorf("swagger %s declares neither openapi nor swagger version", filePath)
	}
	return string(data), nil
}

// fetchDocumentation reads the readme and release notes under folder
func fetchDocumentation(ctx context.Context, fetcher manifest.FileFetcher, repo, ref, folder string) (string, string, error) {
	readme, err := fetchOptional(ctx, fetcher, repo, ref, path.Join(folder, ReadmeFile))
	if err != nil {
		return "", "", err
	}
	release, err := fetchOptional(ctx, fetcher, repo, ref, path.Join(folder, ReleaseFile))
	if err != nil {
		return "", "", err
	}
	return string(readme), string(release), nil
}

// fetchOptional returns nil content for files that do not exist
func fetchOptional(ctx context.Context, fetcher manifest.FileFetcher, repo, ref, filePath string) ([]byte, error) {
	data, err := fetcher.FetchFile(ctx, repo, ref, filePath)
	if errors.Is(err, providers.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", filePath, err)
	}
	return data, nil
}
