package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Sources(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	repo := &Repository{Repository: "acme/api"}
	assert.True(t, repo.IsOrphaned())

	repo.SetSource("acme", t0)
	repo.SetSource("jdoe", t0)
	repo.SetSource("acme", t1)
	require.Len(t, repo.Source, 2)
	assert.Equal(t, t1, repo.Source[0].TS)
	assert.True(t, repo.HasSource("jdoe"))

	// a source refreshed in the current pass survives the prune
	assert.False(t, repo.PruneSource("acme", t1))
	assert.True(t, repo.PruneSource("jdoe", t1))
	assert.False(t, repo.HasSource("jdoe"))
	assert.False(t, repo.PruneSource("missing", t1))

	assert.True(t, repo.PruneSource("acme", t1.Add(time.Second)))
	assert.True(t, repo.IsOrphaned())
}

func TestMergeRefs(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	existing := []Ref{
		{Name: "main", Active: true, TS: &ts, Commit: "aaa", Catalogs: []CatalogRef{{Name: "api", Type: "service"}}},
		{Name: "feature", Commit: "bbb"},
		{Name: "release", Active: true, Commit: "ccc"},
	}
	fresh := []Ref{
		{Name: "main", Commit: "ddd"},
		{Name: "develop", Commit: "eee"},
		{Name: "develop", Commit: "fff"},
	}

	merged := MergeRefs(existing, fresh)
	require.Len(t, merged, 3)

	assert.Equal(t, "main", merged[0].Name)
	assert.True(t, merged[0].Active)
	assert.Equal(t, "ddd", merged[0].Commit)
	assert.Len(t, merged[0].Catalogs, 1)

	assert.Equal(t, Ref{Name: "develop", Commit: "eee"}, merged[1])

	// active refs gone upstream are kept, inactive ones are dropped
	assert.Equal(t, "release", merged[2].Name)
	assert.Nil(t, findRef(merged, "feature"))
}

func TestRepository_FindRef(t *testing.T) {
	t.Parallel()

	repo := &Repository{
		Branches: []Ref{{Name: "main"}},
		Tags:     []Ref{{Name: "v1.0.0"}},
	}
	require.NotNil(t, repo.FindBranch("main"))
	require.NotNil(t, repo.FindTag("v1.0.0"))
	assert.Nil(t, repo.FindBranch("v1.0.0"))

	repo.FindBranch("main").Active = true
	assert.True(t, repo.Branches[0].Active)
}

func TestAccount_SecretsAreNotSerialized(t *testing.T) {
	t.Parallel()

	account := &Account{
		Provider:     ProviderBitbucket,
		Owner:        "acme",
		Username:     "bot",
		Token:        "access-secret",
		RefreshToken: "refresh-secret",
		Password:     "password-secret",
	}
	data, err := json.Marshal(account)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), `"owner":"acme"`)
}
