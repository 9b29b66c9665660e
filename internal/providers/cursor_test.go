package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-catalog-sync/internal/models"
)

func TestCursor_Exhausted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cursor   Cursor
		expected bool
	}{
		{name: "uninitialized cursor has pages", cursor: NewCursor(), expected: false},
		{name: "initialized without groups", cursor: Cursor{Initialized: true}, expected: true},
		{
			name: "unknown total keeps going",
			cursor: Cursor{Initialized: true, Groups: []GroupProgress{
				{Name: "a", Attempted: 3, TotalPages: UnknownTotal},
			}},
			expected: false,
		},
		{
			name: "one group remaining",
			cursor: Cursor{Initialized: true, Groups: []GroupProgress{
				{Name: "a", Attempted: 2, TotalPages: 2},
				{Name: "b", Attempted: 0, TotalPages: UnknownTotal},
			}},
			expected: false,
		},
		{
			name: "every group done",
			cursor: Cursor{Initialized: true, Groups: []GroupProgress{
				{Name: "a", Attempted: 2, TotalPages: 2},
				{Name: "b", Attempted: 1, TotalPages: 0},
			}},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.cursor.Exhausted())
		})
	}
}

func TestCursor_NextGroupAndClone(t *testing.T) {
	t.Parallel()

	c := Cursor{Initialized: true, Groups: []GroupProgress{
		{Name: "owner", Attempted: 1, TotalPages: 1},
		{Name: "team", Attempted: 0, TotalPages: UnknownTotal},
	}}
	assert.Equal(t, 1, c.NextGroup())

	clone := c.Clone()
	clone.Groups[1].Attempted = 5
	assert.Equal(t, 0, c.Groups[1].Attempted, "clone must not share group state")
	assert.Equal(t, 6, clone.PagesAttempted())
}

func TestSingleGroupCursor(t *testing.T) {
	t.Parallel()

	c := singleGroupCursor(NewCursor(), "octo")
	require.Len(t, c.Groups, 1)
	assert.True(t, c.Initialized)
	assert.Equal(t, UnknownTotal, c.Groups[0].TotalPages)

	c.Groups[0].Attempted = 2
	again := singleGroupCursor(c, "ignored")
	assert.Equal(t, "octo", again.Groups[0].Name)
	assert.Equal(t, 2, again.Groups[0].Attempted)
}

func TestPageCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{name: "exact division", body: `{"size":10,"pagelen":5}`, expected: 2},
		{name: "rounds up", body: `{"size":11,"pagelen":5}`, expected: 3},
		{name: "uses requested pagelen when absent", body: `{"size":11}`, expected: 6},
		{name: "non numeric size", body: `{"size":"many","pagelen":5}`, expected: 1},
		{name: "missing size", body: `{"values":[]}`, expected: 1},
		{name: "empty namespace", body: `{"size":0,"pagelen":10}`, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, pageCount([]byte(tt.body), 2))
		})
	}
}

func TestFactory_CreateProvider(t *testing.T) {
	t.Parallel()

	factory := NewFactory(map[string]Options{
		models.ProviderBitbucketEnterprise: {BaseURL: "https://git.example.com"},
	})

	tests := []struct {
		provider string
		expected string
		wantErr  bool
	}{
		{provider: models.ProviderGitHub, expected: models.ProviderGitHub},
		{provider: models.ProviderBitbucket, expected: models.ProviderBitbucket},
		{provider: models.ProviderBitbucketEnterprise, expected: models.ProviderBitbucketEnterprise},
		{provider: "gitlab", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			t.Parallel()

			p, err := factory.CreateProvider(&models.Account{Provider: tt.provider, Owner: "o"})
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.Name())
		})
	}
}

func TestEnvelopeMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cloud", envelopeMessage([]byte(`{"error":{"message":"cloud"}}`), "x"))
	assert.Equal(t, "server", envelopeMessage([]byte(`{"errors":[{"message":"server"}]}`), "x"))
	assert.Equal(t, "github", envelopeMessage([]byte(`{"message":"github"}`), "x"))
	assert.Equal(t, "fallback", envelopeMessage([]byte(`not json`), "fallback"))
}

func TestAccountDomain(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "github.com", AccountDomain(&models.Account{Provider: models.ProviderGitHub}))
	assert.Equal(t, "ghe.example.com", AccountDomain(&models.Account{Provider: models.ProviderGitHub, Domain: "ghe.example.com"}))
	assert.Equal(t, "bitbucket.org", AccountDomain(&models.Account{Provider: models.ProviderBitbucket}))
	assert.Equal(t, "git.example.com", AccountDomain(&models.Account{
		Provider: models.ProviderBitbucketEnterprise,
		Domain:   "git.example.com",
	}))
}
