package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stacklok/toolhive-catalog-sync/internal/models"
)

var (
	// ErrNotFound is returned when a file, branch or tag does not exist on the provider.
	// The manifest resolver treats it as a fallback signal rather than a failure.
	ErrNotFound = errors.New("not found")

	// ErrFileTooLarge is returned when a fetched file exceeds the provider byte ceiling
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")

	// ErrUnsupportedProvider is returned by the factory for unknown provider keys
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// APIError is a non-2xx response decoded from the provider's error envelope
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
}

// TransportError wraps a network level failure talking to a provider
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RawRecord is one undecoded repository entry from a provider listing
type RawRecord = json.RawMessage

// Page is one page of an enumeration
type Page struct {
	Records []RawRecord
	HasMore bool
}

// Identity is the provider identity behind an account's credentials
type Identity struct {
	Owner    string
	GlobalID string
}

//go:generate mockgen -destination=mocks/mock_provider.go -package=mocks -source=types.go Provider,Factory

// Provider is the uniform capability set every git hosting adapter exposes
type Provider interface {
	// Name returns the provider key
	Name() string

	// Authenticate resolves the identity behind the configured credentials
	Authenticate(ctx context.Context) (*Identity, error)

	// EnumeratePage fetches the next page selected by cursor and returns the
	// page together with the advanced cursor. The input cursor is not modified.
	EnumeratePage(ctx context.Context, cursor Cursor) (*Page, Cursor, error)

	// CreateRepositoryRecord normalizes a raw listing entry
	CreateRepositoryRecord(raw RawRecord) (*models.Repository, error)

	// ListBranches returns every branch of the repository
	ListBranches(ctx context.Context, repo string) ([]models.Ref, error)

	// ListTags returns every tag of the repository
	ListTags(ctx context.Context, repo string) ([]models.Ref, error)

	// GetBranch returns a single branch or ErrNotFound
	GetBranch(ctx context.Context, repo, name string) (*models.Ref, error)

	// GetTag returns a single tag or ErrNotFound
	GetTag(ctx context.Context, repo, name string) (*models.Ref, error)

	// FetchFile returns the content of path at ref or ErrNotFound
	FetchFile(ctx context.Context, repo, ref, path string) ([]byte, error)

	// ListOrganizations returns the organizations or teams the account belongs to
	ListOrganizations(ctx context.Context) ([]string, error)
}

// Factory creates providers for accounts
type Factory interface {
	// CreateProvider creates the adapter matching account.Provider
	CreateProvider(account *models.Account) (Provider, error)
}
