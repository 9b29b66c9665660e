package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/httpclient"
)

type httpClient struct {
	client  httpclient.Client
	baseURL string
}

// removeResponse is the body returned by the bulk delete endpoint
type removeResponse struct {
	Removed int `json:"removed"`
}

// NewHTTPClient returns a Client talking to the registry API at baseURL
func NewHTTPClient(client httpclient.Client, baseURL string) (Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid registry endpoint %q: %w", baseURL, err)
	}
	return &httpClient{client: client, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (c *httpClient) entryURL(name, entryType string) string {
	return fmt.Sprintf("%s/catalogs/%s/%s", c.baseURL, url.PathEscape(entryType), url.PathEscape(name))
}

func (c *httpClient) GetCatalog(ctx context.Context, name, entryType string) (*catalog.Entry, error) {
	data, err := c.client.Get(ctx, c.entryURL(name, entryType))
	if httpclient.IsStatus(err, http.StatusNotFound) {
		return nil, fmt.Errorf("%w: %s %q", catalog.ErrNotFound, entryType, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog %s %q: %w", entryType, name, err)
	}

	var entry catalog.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s %q: %w", entryType, name, err)
	}
	return &entry, nil
}

func (c *httpClient) UpsertCatalog(ctx context.Context, entry *catalog.Entry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode catalog %s %q: %w", entry.Type, entry.Name, err)
	}

	_, err = c.client.Do(ctx, &httpclient.Request{
		Method: http.MethodPut,
		URL:    c.entryURL(entry.Name, entry.Type),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert catalog %s %q: %w", entry.Type, entry.Name, err)
	}

	slog.Debug("Catalog upserted", "name", entry.Name, "type", entry.Type, "versions", len(entry.Versions))
	return nil
}

func (c *httpClient) RemoveCatalogsBySource(ctx context.Context, src catalog.Source) (int, error) {
	query := url.Values{}
	query.Set("provider", src.Provider)
	query.Set("owner", src.Owner)
	query.Set("repo", src.Repo)

	resp, err := c.client.Do(ctx, &httpclient.Request{
		Method: http.MethodDelete,
		URL:    c.baseURL + "/catalogs?" + query.Encode(),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to remove catalogs of %s: %w", src, err)
	}

	var out removeResponse
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			return 0, fmt.Errorf("failed to decode remove response for %s: %w", src, err)
		}
	}
	return out.Removed, nil
}
