package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type getterFunc func(ctx context.Context, name, entryType string) (*Entry, error)

func (f getterFunc) GetCatalog(ctx context.Context, name, entryType string) (*Entry, error) {
	return f(ctx, name, entryType)
}

func TestCheckDuplicateSource(t *testing.T) {
	t.Parallel()

	mine := Source{Provider: "github", Owner: "octo", Repo: "billing"}
	theirs := Source{Provider: "bitbucket", Owner: "acme", Repo: "billing"}
	lookupErr := errors.New("registry unavailable")

	tests := []struct {
		name      string
		entry     *Entry
		err       error
		wantEntry bool
		check     func(t *testing.T, err error)
	}{
		{name: "no entry", err: ErrNotFound},
		{name: "same source", entry: &Entry{Name: "billing", Type: "service", Src: mine}, wantEntry: true},
		{
			name:  "different source",
			entry: &Entry{Name: "billing", Type: "service", Src: theirs},
			check: func(t *testing.T, err error) {
				t.Helper()
				var dup *DuplicateError
				require.ErrorAs(t, err, &dup)
				assert.ErrorIs(t, err, ErrDuplicate)
				assert.Equal(t, theirs, dup.Existing)
				assert.Equal(t, mine, dup.Requested)
				assert.Contains(t, err.Error(), "bitbucket:acme/billing")
			},
		},
		{
			name: "lookup failure",
			err:  lookupErr,
			check: func(t *testing.T, err error) {
				t.Helper()
				assert.ErrorIs(t, err, lookupErr)
				assert.NotErrorIs(t, err, ErrDuplicate)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			getter := getterFunc(func(_ context.Context, name, entryType string) (*Entry, error) {
				assert.Equal(t, "billing", name)
				assert.Equal(t, "service", entryType)
				return tt.entry, tt.err
			})

			got, err := CheckDuplicateSource(context.Background(), getter, "billing", "service", mine)
			if tt.check != nil {
				require.Error(t, err)
				tt.check(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantEntry {
				assert.Equal(t, tt.entry, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestSourceFromRepository(t *testing.T) {
	t.Parallel()

	src, err := SourceFromRepository("github", "octo/billing")
	require.NoError(t, err)
	assert.Equal(t, Source{Provider: "github", Owner: "octo", Repo: "billing"}, src)

	for _, bad := range []string{"billing", "/billing", "octo/"} {
		_, err := SourceFromRepository("github", bad)
		assert.Error(t, err, bad)
	}
}
