package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/httpclient"
)

var billingSrc = catalog.Source{Provider: "github", Owner: "octo", Repo: "billing"}

func billingEntry() *catalog.Entry {
	return &catalog.Entry{
		Name: "billing",
		Type: "service",
		Src:  billingSrc,
		Versions: []catalog.Version{
			{Version: "1", Soa: `{"name":"billing"}`, Branches: []string{"main"}},
		},
	}
}

// fakeRegistryAPI is a minimal registry server backed by a MemoryClient
type fakeRegistryAPI struct {
	mu       sync.Mutex
	store    *MemoryClient
	requests []string
}

func (f *fakeRegistryAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.RequestURI())
	f.mu.Unlock()

	ctx := r.Context()
	switch {
	case r.Method == http.MethodDelete && r.URL.Path == "/api/catalogs":
		q := r.URL.Query()
		n, _ := f.store.RemoveCatalogsBySource(ctx, catalog.Source{
			Provider: q.Get("provider"), Owner: q.Get("owner"), Repo: q.Get("repo"),
		})
		_ = json.NewEncoder(w).Encode(removeResponse{Removed: n})
	case r.Method == http.MethodGet:
		entryType, name := r.PathValue("type"), r.PathValue("name")
		entry, err := f.store.GetCatalog(ctx, name, entryType)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(entry)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		var entry catalog.Entry
		if err := json.Unmarshal(body, &entry); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = f.store.UpsertCatalog(ctx, &entry)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unexpected", http.StatusMethodNotAllowed)
	}
}

func newTestServer(t *testing.T) (*fakeRegistryAPI, Client) {
	t.Helper()

	api := &fakeRegistryAPI{store: NewMemoryClient()}
	mux := http.NewServeMux()
	mux.Handle("/api/catalogs/{type}/{name}", api)
	mux.Handle("/api/catalogs", api)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(httpclient.NewDefaultClient(0), server.URL+"/api/")
	require.NoError(t, err)
	return api, client
}

func TestHTTPClient_RoundTrip(t *testing.T) {
	t.Parallel()

	api, client := newTestServer(t)
	ctx := context.Background()

	_, err := client.GetCatalog(ctx, "billing", "service")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	require.NoError(t, client.UpsertCatalog(ctx, billingEntry()))

	got, err := client.GetCatalog(ctx, "billing", "service")
	require.NoError(t, err)
	assert.Equal(t, billingEntry(), got)

	removed, err := client.RemoveCatalogsBySource(ctx, billingSrc)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = client.GetCatalog(ctx, "billing", "service")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	assert.Equal(t, []string{
		"GET /api/catalogs/service/billing",
		"PUT /api/catalogs/service/billing",
		"GET /api/catalogs/service/billing",
		"DELETE /api/catalogs?owner=octo&provider=github&repo=billing",
		"GET /api/catalogs/service/billing",
	}, api.requests)
}

func TestHTTPClient_Errors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte("not json"))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(httpclient.NewDefaultClient(0), server.URL)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.GetCatalog(ctx, "billing", "service")
	require.Error(t, err)
	assert.NotErrorIs(t, err, catalog.ErrNotFound)

	err = client.UpsertCatalog(ctx, billingEntry())
	assert.True(t, httpclient.IsStatus(err, http.StatusInternalServerError))

	_, err = client.RemoveCatalogsBySource(ctx, billingSrc)
	assert.Error(t, err)
}

func TestNewHTTPClient_InvalidEndpoint(t *testing.T) {
	t.Parallel()

	_, err := NewHTTPClient(httpclient.NewDefaultClient(0), "not a url")
	assert.Error(t, err)
}

func TestMemoryClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := NewMemoryClient()

	entry := billingEntry()
	require.NoError(t, client.UpsertCatalog(ctx, entry))

	// stored entries are isolated from caller mutation
	entry.Versions[0].Branches[0] = "mutated"
	got, err := client.GetCatalog(ctx, "billing", "service")
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, got.Versions[0].Branches)

	other := billingEntry()
	other.Type = "daemon"
	require.NoError(t, client.UpsertCatalog(ctx, other))
	foreign := billingEntry()
	foreign.Name = "ledger"
	foreign.Src.Owner = "acme"
	require.NoError(t, client.UpsertCatalog(ctx, foreign))

	list := client.List()
	require.Len(t, list, 3)
	assert.Equal(t, "daemon", list[0].Type)

	removed, err := client.RemoveCatalogsBySource(ctx, billingSrc)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Len(t, client.List(), 1)
}
