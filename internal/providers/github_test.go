package providers_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-catalog-sync/internal/models"
	"github.com/stacklok/toolhive-catalog-sync/internal/providers"
)

// newTestServer creates a test server with keep-alives disabled
func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

// drain enumerates until the adapter reports no more pages
func drain(t *testing.T, p providers.Provider) ([]providers.RawRecord, providers.Cursor) {
	t.Helper()

	cursor := providers.NewCursor()
	var records []providers.RawRecord
	for i := 0; i < 100; i++ {
		page, next, err := p.EnumeratePage(context.Background(), cursor)
		require.NoError(t, err)
		records = append(records, page.Records...)
		cursor = next
		if !page.HasMore {
			return records, cursor
		}
	}
	t.Fatal("enumeration did not terminate")
	return nil, cursor
}

// pageCounter counts requests per key
type pageCounter struct {
	mu     sync.Mutex
	visits map[string]int
}

func newPageCounter() *pageCounter {
	return &pageCounter{visits: map[string]int{}}
}

func (c *pageCounter) hit(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visits[key]++
}

func (c *pageCounter) snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.visits))
	for k, v := range c.visits {
		out[k] = v
	}
	return out
}

func githubRepo(owner, name string, private bool) string {
	return fmt.Sprintf(`{"id":1,"name":%q,"full_name":"%s/%s","owner":{"login":%q},"private":%t}`,
		name, owner, name, owner, private)
}

func newGitHub(t *testing.T, serverURL string) providers.Provider {
	t.Helper()

	account := &models.Account{Provider: models.ProviderGitHub, Owner: "octo", Token: "secret"}
	p, err := providers.NewGitHub(account, providers.Options{BaseURL: serverURL, PageSize: 2})
	require.NoError(t, err)
	return p
}

func TestGitHub_EnumeratePage_Completeness(t *testing.T) {
	t.Parallel()

	const totalPages = 3
	counter := newPageCounter()

	var server *httptest.Server
	server = newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/repos", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		page := 1
		_, _ = fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)
		counter.hit(fmt.Sprint(page))

		link := func(p int, rel string) string {
			return fmt.Sprintf(`<%s/user/repos?page=%d&per_page=2>; rel="%s"`, server.URL, p, rel)
		}
		if page < totalPages {
			w.Header().Set("Link", link(page+1, "next")+", "+link(totalPages, "last"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, "[%s,%s]",
			githubRepo("octo", fmt.Sprintf("repo-%d-a", page), false),
			githubRepo("octo", fmt.Sprintf("repo-%d-b", page), true))
	}))
	defer server.Close()

	records, cursor := drain(t, newGitHub(t, server.URL))

	assert.Len(t, records, 2*totalPages)
	assert.Equal(t, map[string]int{"1": 1, "2": 1, "3": 1}, counter.snapshot())
	assert.True(t, cursor.Exhausted())
	assert.Equal(t, totalPages, cursor.Groups[0].TotalPages)
}

func TestGitHub_EnumeratePage_SinglePage(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, "[%s]", githubRepo("octo", "only", false))
	}))
	defer server.Close()

	p := newGitHub(t, server.URL)
	page, cursor, err := p.EnumeratePage(context.Background(), providers.NewCursor())
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	assert.Len(t, page.Records, 1)
	assert.True(t, cursor.Exhausted())

	// an exhausted cursor does not trigger further requests
	page, _, err = p.EnumeratePage(context.Background(), cursor)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
}

func TestGitHub_PublicAccount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		account *models.Account
	}{
		{
			name:    "public access without token",
			account: &models.Account{Provider: models.ProviderGitHub, Owner: "octo", AccessLevel: models.AccessPublic},
		},
		{
			name:    "public access with token",
			account: &models.Account{Provider: models.ProviderGitHub, Owner: "octo", AccessLevel: models.AccessPublic, Token: "secret"},
		},
		{
			name:    "private access without token",
			account: &models.Account{Provider: models.ProviderGitHub, Owner: "octo", AccessLevel: models.AccessPrivate},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var mu sync.Mutex
			var paths []string
			server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				paths = append(paths, r.URL.Path)
				mu.Unlock()

				w.Header().Set("Content-Type", "application/json")
				switch r.URL.Path {
				case "/users/octo":
					_, _ = fmt.Fprint(w, `{"login":"octo","id":42}`)
				case "/users/octo/repos":
					assert.Equal(t, "owner", r.URL.Query().Get("type"))
					assert.Empty(t, r.URL.Query().Get("affiliation"))
					_, _ = fmt.Fprintf(w, "[%s]", githubRepo("octo", "public-api", false))
				case "/users/octo/orgs":
					_, _ = fmt.Fprint(w, `[{"login":"octo-org"}]`)
				default:
					w.WriteHeader(http.StatusUnauthorized)
					_, _ = fmt.Fprint(w, `{"message":"Requires authentication"}`)
				}
			}))
			defer server.Close()

			p, err := providers.NewGitHub(tt.account, providers.Options{BaseURL: server.URL})
			require.NoError(t, err)

			identity, err := p.Authenticate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "octo", identity.Owner)
			assert.Equal(t, "42", identity.GlobalID)

			records, _ := drain(t, p)
			require.Len(t, records, 1)

			orgs, err := p.ListOrganizations(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []string{"octo-org"}, orgs)

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, []string{"/users/octo", "/users/octo/repos", "/users/octo/orgs"}, paths)
		})
	}
}

func TestGitHub_CreateRepositoryRecord(t *testing.T) {
	t.Parallel()

	p := newGitHub(t, "http://localhost")

	repo, err := p.CreateRepositoryRecord(providers.RawRecord(githubRepo("octo", "svc", true)))
	require.NoError(t, err)
	assert.Equal(t, "octo/svc", repo.Repository)
	assert.Equal(t, "svc", repo.Name)
	assert.Equal(t, "octo", repo.Owner)
	assert.Equal(t, models.RepositoryType, repo.Type)
	assert.Equal(t, models.ProviderGitHub, repo.Provider)
	assert.Equal(t, "github.com", repo.Domain)
	assert.Equal(t, models.AccessPrivate, repo.Access)

	_, err = p.CreateRepositoryRecord(providers.RawRecord(`{"name":"x"}`))
	require.Error(t, err)
}

func TestGitHub_FetchFile(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/repos/octo/svc/contents/soa.json":
			assert.Equal(t, "main", r.URL.Query().Get("ref"))
			content := base64.StdEncoding.EncodeToString([]byte(`{"name":"svc"}`))
			_, _ = fmt.Fprintf(w, `{"type":"file","encoding":"base64","name":"soa.json","content":%q}`, content)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		}
	}))
	defer server.Close()

	p := newGitHub(t, server.URL)

	data, err := p.FetchFile(context.Background(), "octo/svc", "main", "soa.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"svc"}`, string(data))

	_, err = p.FetchFile(context.Background(), "octo/svc", "main", "config.js")
	require.ErrorIs(t, err, providers.ErrNotFound)
}

func TestGitHub_Refs(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/repos/octo/svc/branches":
			_, _ = w.Write([]byte(`[{"name":"main","commit":{"sha":"abc"}},{"name":"dev","commit":{"sha":"def"}}]`))
		case "/repos/octo/svc/tags":
			_, _ = w.Write([]byte(`[{"name":"v1.0.0","commit":{"sha":"123"}}]`))
		case "/repos/octo/svc/git/ref/heads/main":
			_, _ = w.Write([]byte(`{"ref":"refs/heads/main","object":{"sha":"abc","type":"commit"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		}
	}))
	defer server.Close()

	p := newGitHub(t, server.URL)
	ctx := context.Background()

	branches, err := p.ListBranches(ctx, "octo/svc")
	require.NoError(t, err)
	assert.Equal(t, []models.Ref{{Name: "main", Commit: "abc"}, {Name: "dev", Commit: "def"}}, branches)

	tags, err := p.ListTags(ctx, "octo/svc")
	require.NoError(t, err)
	assert.Equal(t, []models.Ref{{Name: "v1.0.0", Commit: "123"}}, tags)

	branch, err := p.GetBranch(ctx, "octo/svc", "main")
	require.NoError(t, err)
	assert.Equal(t, &models.Ref{Name: "main", Commit: "abc"}, branch)

	_, err = p.GetBranch(ctx, "octo/svc", "missing")
	require.ErrorIs(t, err, providers.ErrNotFound)

	_, err = p.ListBranches(ctx, "not-a-full-name")
	require.Error(t, err)
}

func TestGitHub_APIError(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer server.Close()

	_, _, err := newGitHub(t, server.URL).EnumeratePage(context.Background(), providers.NewCursor())
	require.Error(t, err)

	var apiErr *providers.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Bad credentials", apiErr.Message)
}
