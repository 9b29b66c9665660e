package providers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/stacklok/toolhive-catalog-sync/internal/httpclient"
	"github.com/stacklok/toolhive-catalog-sync/internal/models"
)

const (
	// DefaultPageSize is the page length requested from providers
	DefaultPageSize = 50

	// DefaultTimeout is the per request timeout of provider clients
	DefaultTimeout = 30 * time.Second
)

// Options configures a provider adapter
type Options struct {
	// BaseURL overrides the provider API root
	BaseURL string

	// Timeout bounds each outbound call
	Timeout time.Duration

	// PageSize is the requested page length
	PageSize int

	// RequestsPerSecond limits the request rate, zero disables the limiter
	RequestsPerSecond float64

	// Burst is the limiter burst size
	Burst int

	// Refresher exchanges refresh tokens (Bitbucket Cloud)
	Refresher TokenRefresher
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	return o
}

func (o Options) httpClient() httpclient.Client {
	return httpclient.NewDefaultClient(o.Timeout, httpclient.WithRateLimit(o.RequestsPerSecond, o.Burst))
}

// DefaultFactory creates adapters from per provider options
type DefaultFactory struct {
	options map[string]Options
}

var _ Factory = (*DefaultFactory)(nil)

// NewFactory creates a factory. options is keyed by provider name; missing
// entries use the defaults.
func NewFactory(options map[string]Options) *DefaultFactory {
	if options == nil {
		options = map[string]Options{}
	}
	return &DefaultFactory{options: options}
}

// CreateProvider creates the adapter matching account.Provider
func (f *DefaultFactory) CreateProvider(account *models.Account) (Provider, error) {
	if account == nil {
		return nil, fmt.Errorf("account is required")
	}
	opts := f.options[account.Provider]
	switch account.Provider {
	case models.ProviderGitHub:
		return NewGitHub(account, opts)
	case models.ProviderBitbucket:
		return NewBitbucketCloud(account, opts)
	case models.ProviderBitbucketEnterprise:
		return NewBitbucketEnterprise(account, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, account.Provider)
	}
}

// AccountDomain returns the domain the repositories of account are recorded under
func AccountDomain(account *models.Account) string {
	switch account.Provider {
	case models.ProviderGitHub:
		return domainOrDefault(account.Domain, githubDefaultDomain)
	case models.ProviderBitbucket:
		return domainOrDefault(account.Domain, bitbucketDefaultDomain)
	default:
		return account.Domain
	}
}

func domainOrDefault(domain, fallback string) string {
	if domain == "" {
		return fallback
	}
	return domain
}

// splitFullName splits "owner/repo"
func splitFullName(fullName string) (string, string, error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid repository name %q: expected owner/repo", fullName)
	}
	return owner, repo, nil
}

// envelopeMessage extracts the message of a provider error body
func envelopeMessage(body []byte, fallback string) string {
	for _, path := range []string{"error.message", "errors.0.message", "message"} {
		if msg := gjson.GetBytes(body, path).String(); msg != "" {
			return msg
		}
	}
	return fallback
}

// wrapHTTPErr maps httpclient failures onto the provider error kinds
func wrapHTTPErr(provider string, err error) error {
	httpErr, ok := httpclient.AsHTTPError(err)
	if !ok {
		return &TransportError{Provider: provider, Err: err}
	}
	msg := envelopeMessage(httpErr.Body, httpErr.Message)
	if httpErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return &APIError{Provider: provider, StatusCode: httpErr.StatusCode, Message: msg}
}
