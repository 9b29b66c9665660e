package activation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/manifest"
	manifestmocks "github.com/stacklok/toolhive-catalog-sync/internal/manifest/mocks"
	"github.com/stacklok/toolhive-catalog-sync/internal/models"
	"github.com/stacklok/toolhive-catalog-sync/internal/providers"
	"github.com/stacklok/toolhive-catalog-sync/internal/providers/mocks"
	"github.com/stacklok/toolhive-catalog-sync/internal/registry"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
)

var activatedAt = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

const swaggerDoc = `{"openapi":"3.0.0","info":{"title":"billing"}}`

// fixture wires the service to in-memory collaborators and a mock provider
// serving files per repository and ref
type fixture struct {
	store    *store.MemoryStore
	registry *registry.MemoryClient
	service  Service
	account  *models.Account

	// files maps "repo@ref" to path contents
	files    map[string]map[string]string
	branches map[string][]string
	tags     map[string][]string

	// onFetch runs before every file read
	onFetch func()
}

func githubRepo(fullName string, active bool) *models.Repository {
	return &models.Repository{
		Repository: fullName,
		Name:       fullName[len("octo/"):],
		Type:       models.RepositoryType,
		Owner:      "octo",
		Provider:   models.ProviderGitHub,
		Domain:     "github.com",
		Active:     active,
		Source:     []models.SourceEntry{{Name: "octo", TS: activatedAt}},
	}
}

func newFixture(t *testing.T, repos ...*models.Repository) *fixture {
	t.Helper()

	f := &fixture{
		store:    store.NewMemoryStore(),
		registry: registry.NewMemoryClient(),
		account:  &models.Account{Provider: models.ProviderGitHub, Owner: "octo"},
		files:    make(map[string]map[string]string),
		branches: make(map[string][]string),
		tags:     make(map[string][]string),
	}
	for _, r := range repos {
		require.NoError(t, f.store.UpsertRepository(context.Background(), r))
	}

	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	factory := mocks.NewMockFactory(ctrl)
	factory.EXPECT().CreateProvider(gomock.Any()).Return(provider, nil).AnyTimes()

	provider.EXPECT().FetchFile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, repo, ref, path string) ([]byte, error) {
			if f.onFetch != nil {
				f.onFetch()
			}
			content, ok := f.files[repo+"@"+ref][path]
			if !ok {
				return nil, providers.ErrNotFound
			}
			return []byte(content), nil
		}).AnyTimes()

	lookup := func(known map[string][]string) func(context.Context, string, string) (*models.Ref, error) {
		return func(_ context.Context, repo, name string) (*models.Ref, error) {
			for _, n := range known[repo] {
				if n == name {
					return &models.Ref{Name: name, Commit: "c0ffee"}, nil
				}
			}
			return nil, providers.ErrNotFound
		}
	}
	provider.EXPECT().GetBranch(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(lookup(f.branches)).AnyTimes()
	provider.EXPECT().GetTag(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(lookup(f.tags)).AnyTimes()

	list := func(known map[string][]string) func(context.Context, string) ([]models.Ref, error) {
		return func(_ context.Context, repo string) ([]models.Ref, error) {
			refs := make([]models.Ref, 0, len(known[repo]))
			for _, n := range known[repo] {
				refs = append(refs, models.Ref{Name: n})
			}
			return refs, nil
		}
	}
	provider.EXPECT().ListBranches(gomock.Any(), gomock.Any()).DoAndReturn(list(f.branches)).AnyTimes()
	provider.EXPECT().ListTags(gomock.Any(), gomock.Any()).DoAndReturn(list(f.tags)).AnyTimes()

	svc, err := NewService(factory, f.store, f.registry, WithClock(func() time.Time { return activatedAt }))
	require.NoError(t, err)
	f.service = svc
	return f
}

// serve publishes files for repo at ref and makes the ref known upstream
func (f *fixture) serve(repo, ref string, files map[string]string) {
	f.files[repo+"@"+ref] = files
	f.branches[repo] = append(f.branches[repo], ref)
}

func (f *fixture) repository(t *testing.T, fullName string) *models.Repository {
	t.Helper()
	r, err := f.store.GetRepository(context.Background(), fullName, "github.com")
	require.NoError(t, err)
	return r
}

func (f *fixture) entry(t *testing.T, name, entryType string) *catalog.Entry {
	t.Helper()
	e, err := f.registry.GetCatalog(context.Background(), name, entryType)
	require.NoError(t, err)
	return e
}

func TestActivateBranch_Service(t *testing.T) {
	t.Parallel()

	f := newFixture(t, githubRepo("octo/billing", true))
	f.serve("octo/billing", "main", map[string]string{
		"soa.json":     `{"name":"billing","type":"service","port":8080,"version":"2"}`,
		"swagger.json": swaggerDoc,
		"README.md":    "# Billing",
	})

	result, err := f.service.ActivateBranch(context.Background(), f.account, "octo/billing", "main")
	require.NoError(t, err)
	assert.False(t, result.Synthetic)
	require.Len(t, result.Folders, 1)
	assert.Empty(t, result.Failed())

	entry := f.entry(t, "billing", manifest.TypeService)
	assert.Equal(t, catalog.Source{Provider: "github", Owner: "octo", Repo: "billing"}, entry.Src)
	assert.Equal(t, &catalog.Configuration{Port: 8080, Swagger: true}, entry.Configuration)
	assert.Equal(t, "# Billing", entry.Documentation.Readme)
	require.NotNil(t, entry.FindVersion("2"))
	assert.Equal(t, []string{"main"}, entry.FindVersion("2").Branches)
	assert.Equal(t, swaggerDoc, entry.FindVersion("2").Swagger)

	ref := f.repository(t, "octo/billing").FindBranch("main")
	require.NotNil(t, ref)
	assert.True(t, ref.Active)
	assert.Equal(t, "c0ffee", ref.Commit)
	require.NotNil(t, ref.TS)
	assert.Equal(t, activatedAt, *ref.TS)
	assert.Equal(t, []models.CatalogRef{{Name: "billing", Type: manifest.TypeService}}, ref.Catalogs)

	_, err = f.service.ActivateBranch(context.Background(), f.account, "octo/billing", "main")
	assert.ErrorIs(t, err, ErrRefAlreadyActive)
}

func TestActivateTag_SyntheticManifest(t *testing.T) {
	t.Parallel()

	f := newFixture(t, githubRepo("octo/legacy", true))
	f.files["octo/legacy@v1.0.0"] = map[string]string{"soa.json": `{"name":`}
	f.tags["octo/legacy"] = []string{"v1.0.0"}

	result, err := f.service.ActivateTag(context.Background(), f.account, "octo/legacy", "v1.0.0")
	require.NoError(t, err)
	assert.True(t, result.Synthetic)
	assert.Equal(t, RefKindTag, result.Kind)

	entry := f.entry(t, "legacy", manifest.TypeCustom)
	assert.Equal(t, []string{"v1.0.0"}, entry.FindVersion(manifest.DefaultVersion).Branches)
	assert.True(t, f.repository(t, "octo/legacy").FindTag("v1.0.0").Active)
}

func TestActivate_Preconditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		repo     *models.Repository
		ref      string
		expected error
	}{
		{name: "inactive repository", repo: githubRepo("octo/billing", false), ref: "main", expected: ErrRepositoryInactive},
		{name: "unknown upstream ref", repo: githubRepo("octo/billing", true), ref: "gone", expected: ErrRefNotFound},
		{name: "unknown repository", ref: "main", expected: ErrRepositoryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var f *fixture
			if tt.repo != nil {
				f = newFixture(t, tt.repo)
			} else {
				f = newFixture(t)
			}
			f.serve("octo/billing", "main", map[string]string{"soa.json": `{"name":"billing"}`})

			_, err := f.service.ActivateBranch(context.Background(), f.account, "octo/billing", tt.ref)
			assert.ErrorIs(t, err, tt.expected)
			assert.Empty(t, f.registry.List())
		})
	}
}

func TestActivate_NothingPersistedOnFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files map[string]string
		check func(t *testing.T, err error)
	}{
		{
			name:  "schema violation",
			files: map[string]string{"soa.json": `{"name":"billing","type":"service","port":"eighty"}`},
			check: func(t *testing.T, err error) {
				t.Helper()
				var ve *manifest.ValidationError
				assert.ErrorAs(t, err, &ve)
			},
		},
		{
			name:  "swagger is not JSON",
			files: map[string]string{"soa.json": `{"name":"billing","type":"service"}`, "swagger.json": "openapi: 3.0.0"},
			check: func(t *testing.T, err error) {
				t.Helper()
				assert.ErrorContains(t, err, "not valid JSON")
			},
		},
		{
			name:  "swagger without version",
			files: map[string]string{"soa.json": `{"name":"billing","type":"daemon","swagger":"api/spec.json"}`, "api/spec.json": `{"paths":{}}`},
			check: func(t *testing.T, err error) {
				t.Helper()
				assert.ErrorContains(t, err, "api/spec.json")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, githubRepo("octo/billing", true))
			f.serve("octo/billing", "main", tt.files)

			_, err := f.service.ActivateBranch(context.Background(), f.account, "octo/billing", "main")
			require.Error(t, err)
			tt.check(t, err)

			assert.Empty(t, f.registry.List())
			assert.Nil(t, f.repository(t, "octo/billing").FindBranch("main"))
		})
	}
}

func TestActivate_DuplicateSource(t *testing.T) {
	t.Parallel()

	f := newFixture(t, githubRepo("octo/billing", true))
	f.serve("octo/billing", "main", map[string]string{"soa.json": `{"name":"shared","type":"custom"}`})
	require.NoError(t, f.registry.UpsertCatalog(context.Background(), &catalog.Entry{
		Name: "shared",
		Type: manifest.TypeCustom,
		Src:  catalog.Source{Provider: "bitbucket", Owner: "acme", Repo: "shared"},
	}))

	_, err := f.service.ActivateBranch(context.Background(), f.account, "octo/billing", "main")
	var dup *catalog.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "acme", dup.Existing.Owner)
	assert.False(t, f.repository(t, "octo/billing").FindBranch("main") != nil)
}

func TestActivate_ConcurrentClaimsOnOneName(t *testing.T) {
	t.Parallel()

	repos := []string{"octo/alpha", "octo/beta", "octo/gamma", "octo/delta"}
	records := make([]*models.Repository, 0, len(repos))
	for _, r := range repos {
		records = append(records, githubRepo(r, true))
	}
	f := newFixture(t, records...)
	for _, r := range repos {
		f.serve(r, "main", map[string]string{"soa.json": `{"name":"shared","type":"static"}`})
	}

	var wg sync.WaitGroup
	errs := make([]error, len(repos))
	for i, r := range repos {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.service.ActivateBranch(context.Background(), f.account, r, "main")
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, catalog.ErrDuplicate)
	}
	assert.Equal(t, 1, succeeded)
	require.Len(t, f.registry.List(), 1)
}

func TestActivate_MultiManifest(t *testing.T) {
	t.Parallel()

	f := newFixture(t, githubRepo("octo/mono", true))
	f.serve("octo/mono", "main", map[string]string{
		"soa.json":        `{"type":"multi","folders":["api","web","broken"]}`,
		"api/soa.json":    `{"name":"mono-api","type":"service","port":9000}`,
		"web/soa.js":      `module.exports = { name: "mono-web", type: "static" };`,
		"web/README.md":   "web docs",
		"broken/soa.json": `{"name":`,
	})

	result, err := f.service.ActivateBranch(context.Background(), f.account, "octo/mono", "main")
	require.NoError(t, err)
	require.Len(t, result.Folders, 3)

	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "broken", failed[0].Folder)

	assert.Equal(t, "web docs", f.entry(t, "mono-web", manifest.TypeStatic).Documentation.Readme)
	assert.False(t, f.entry(t, "mono-api", manifest.TypeService).Configuration.Swagger)

	ref := f.repository(t, "octo/mono").FindBranch("main")
	assert.ElementsMatch(t, []models.CatalogRef{
		{Name: "mono-api", Type: manifest.TypeService},
		{Name: "mono-web", Type: manifest.TypeStatic},
	}, ref.Catalogs)
}

func TestActivate_MultiManifestAllFoldersFail(t *testing.T) {
	t.Parallel()

	f := newFixture(t, githubRepo("octo/mono", true))
	f.serve("octo/mono", "main", map[string]string{
		"soa.json": `{"type":"multi","folders":["missing"]}`,
	})

	_, err := f.service.ActivateBranch(context.Background(), f.account, "octo/mono", "main")
	assert.ErrorIs(t, err, manifest.ErrManifestNotFound)
	assert.Nil(t, f.repository(t, "octo/mono").FindBranch("main"))
}

func TestActivateDeactivate_Reversioning(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, githubRepo("octo/site", true))
	f.serve("octo/site", "main", map[string]string{"soa.json": `{"name":"site","type":"static","version":"1"}`})
	f.serve("octo/site", "next", map[string]string{"soa.json": `{"name":"site","type":"static","version":"2"}`})

	_, err := f.service.ActivateBranch(ctx, f.account, "octo/site", "main")
	require.NoError(t, err)
	_, err = f.service.ActivateBranch(ctx, f.account, "octo/site", "next")
	require.NoError(t, err)

	entry := f.entry(t, "site", manifest.TypeStatic)
	require.Len(t, entry.Versions, 2)
	assert.Equal(t, []string{"main"}, entry.FindVersion("1").Branches)
	assert.Equal(t, []string{"next"}, entry.FindVersion("2").Branches)

	record, err := f.service.DeactivateBranch(ctx, f.account, "octo/site", "main")
	require.NoError(t, err)
	ref := record.FindBranch("main")
	assert.False(t, ref.Active)
	assert.Nil(t, ref.TS)
	assert.Empty(t, ref.Catalogs)

	entry = f.entry(t, "site", manifest.TypeStatic)
	assert.Nil(t, entry.FindVersion("1"))
	assert.Equal(t, []string{"next"}, entry.FindVersion("2").Branches)

	_, err = f.service.DeactivateBranch(ctx, f.account, "octo/site", "main")
	assert.ErrorIs(t, err, ErrRefNotActive)
	_, err = f.service.DeactivateTag(ctx, f.account, "octo/site", "v9")
	assert.ErrorIs(t, err, ErrRefNotFound)
}

func TestDeactivate_MissingCatalogIsTolerated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, githubRepo("octo/site", true))
	f.serve("octo/site", "main", map[string]string{"soa.json": `{"name":"site","type":"static"}`})

	_, err := f.service.ActivateBranch(ctx, f.account, "octo/site", "main")
	require.NoError(t, err)
	_, err = f.registry.RemoveCatalogsBySource(ctx, catalog.Source{Provider: "github", Owner: "octo", Repo: "site"})
	require.NoError(t, err)

	record, err := f.service.DeactivateBranch(ctx, f.account, "octo/site", "main")
	require.NoError(t, err)
	assert.False(t, record.FindBranch("main").Active)
}

func TestRepositoryActivation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, githubRepo("octo/billing", false), githubRepo("octo/other", true))
	f.serve("octo/billing", "main", map[string]string{"soa.json": `{"name":"billing","type":"config"}`})
	f.serve("octo/billing", "develop", map[string]string{"soa.json": `{"name":"billing","type":"config"}`})
	f.tags["octo/billing"] = []string{"v1"}
	f.serve("octo/other", "main", map[string]string{"soa.json": `{"name":"other","type":"config"}`})

	record, err := f.service.ActivateRepository(ctx, f.account, "octo/billing")
	require.NoError(t, err)
	assert.True(t, record.Active)
	assert.Len(t, record.Branches, 2)
	assert.Len(t, record.Tags, 1)

	_, err = f.service.ActivateBranch(ctx, f.account, "octo/billing", "main")
	require.NoError(t, err)
	_, err = f.service.ActivateBranch(ctx, f.account, "octo/billing", "develop")
	require.NoError(t, err)
	_, err = f.service.ActivateBranch(ctx, f.account, "octo/other", "main")
	require.NoError(t, err)

	// refresh keeps activation state and picks up new refs
	f.branches["octo/billing"] = append(f.branches["octo/billing"], "feature")
	record, err = f.service.RefreshRefs(ctx, f.account, "octo/billing")
	require.NoError(t, err)
	assert.Len(t, record.Branches, 3)
	assert.True(t, record.FindBranch("main").Active)
	assert.False(t, record.FindBranch("feature").Active)

	record, err = f.service.DeactivateRepository(ctx, f.account, "octo/billing")
	require.NoError(t, err)
	assert.False(t, record.Active)
	for _, b := range record.Branches {
		assert.False(t, b.Active, b.Name)
		assert.Empty(t, b.Catalogs, b.Name)
	}

	_, err = f.registry.GetCatalog(ctx, "billing", manifest.TypeConfig)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	f.entry(t, "other", manifest.TypeConfig)

	stored := f.repository(t, "octo/billing")
	assert.False(t, stored.Active)
	assert.False(t, stored.FindBranch("main").Active)
}

func TestActivate_ResolverTransportError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, githubRepo("octo/billing", true))
	f.serve("octo/billing", "main", nil)

	ctrl := gomock.NewController(t)
	resolver := manifestmocks.NewMockResolver(ctrl)
	transportErr := &providers.TransportError{Provider: "github", Err: errors.New("connection reset")}
	resolver.EXPECT().ResolveAll(gomock.Any(), gomock.Any(), "octo/billing", "main").Return(nil, transportErr)

	svc, err := NewService(mocksFactory(t, f), f.store, f.registry, WithResolver(resolver))
	require.NoError(t, err)

	_, err = svc.ActivateBranch(context.Background(), f.account, "octo/billing", "main")
	var te *providers.TransportError
	require.ErrorAs(t, err, &te)
	assert.Empty(t, f.registry.List())
}

// mocksFactory returns a factory whose provider knows every branch of f
func mocksFactory(t *testing.T, f *fixture) providers.Factory {
	t.Helper()

	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().GetBranch(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _, name string) (*models.Ref, error) {
			return &models.Ref{Name: name}, nil
		}).AnyTimes()
	factory := mocks.NewMockFactory(ctrl)
	factory.EXPECT().CreateProvider(gomock.Any()).Return(provider, nil).AnyTimes()
	return factory
}

func TestKeyedMutex(t *testing.T) {
	t.Parallel()

	locks := newKeyedMutex()
	unlockA := locks.Lock("a")

	acquired := make(chan struct{})
	go func() {
		unlock := locks.Lock("a")
		close(acquired)
		unlock()
	}()

	// other keys are independent
	unlockB := locks.Lock("b")
	unlockB()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held key")
	case <-time.After(50 * time.Millisecond):
	}

	unlockA()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the released key")
	}

	require.Eventually(t, func() bool {
		locks.mu.Lock()
		defer locks.mu.Unlock()
		return len(locks.locks) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestActivateBranch_KeepsSourcesWrittenDuringActivation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, githubRepo("octo/billing", true))
	f.serve("octo/billing", "main", map[string]string{"soa.json": `{"name":"billing","type":"config"}`})

	// an ingestion pass of another account records its source mid-activation
	var once sync.Once
	f.onFetch = func() {
		once.Do(func() {
			_, err := f.store.UpdateRepository(ctx, "octo/billing", "github.com",
				func(current *models.Repository) (*models.Repository, error) {
					current.SetSource("platform", activatedAt)
					return current, nil
				})
			require.NoError(t, err)
		})
	}

	result, err := f.service.ActivateBranch(ctx, f.account, "octo/billing", "main")
	require.NoError(t, err)
	assert.True(t, result.Repository.HasSource("platform"))

	stored := f.repository(t, "octo/billing")
	assert.True(t, stored.HasSource("octo"))
	assert.True(t, stored.HasSource("platform"))
	assert.True(t, stored.FindBranch("main").Active)
}

func TestRefreshRefs_DeletedRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, githubRepo("octo/billing", true))
	f.branches["octo/billing"] = []string{"main"}

	record, err := f.service.RefreshRefs(ctx, f.account, "octo/billing")
	require.NoError(t, err)
	require.Len(t, record.Branches, 1)

	require.NoError(t, f.store.DeleteRepository(ctx, "octo/billing", "github.com"))
	_, err = f.service.RefreshRefs(ctx, f.account, "octo/billing")
	assert.ErrorIs(t, err, ErrRepositoryNotFound)
}
