// Package httpclient provides HTTP client functionality shared by provider
// adapters and the catalog registry client.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum allowed response size (100MB)
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "toolhive-catalog-sync/1.0"
)

// Client is an interface for HTTP operations
type Client interface {
	// Get performs an HTTP GET request and returns the response body
	Get(ctx context.Context, url string) ([]byte, error)

	// Do executes an arbitrary request. Non-2xx responses are returned as *HTTPError.
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Request is an outgoing HTTP request
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Option configures the default client
type Option func(*DefaultClient)

// WithAuth sets the credentials applied to every request
func WithAuth(auth Auth) Option {
	return func(c *DefaultClient) {
		c.auth = auth
	}
}

// WithRateLimit limits the client to rps requests per second with the given burst
func WithRateLimit(rps float64, burst int) Option {
	return func(c *DefaultClient) {
		if rps <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTransport overrides the underlying round tripper
func WithTransport(rt http.RoundTripper) Option {
	return func(c *DefaultClient) {
		c.client.Transport = rt
	}
}

// WithUserAgent overrides the user agent header
func WithUserAgent(ua string) Option {
	return func(c *DefaultClient) {
		c.userAgent = ua
	}
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client    *http.Client
	timeout   time.Duration
	auth      Auth
	limiter   *rate.Limiter
	userAgent string
}

// NewDefaultClient creates a new default HTTP client with the specified timeout
// If timeout is 0, uses DefaultTimeout
func NewDefaultClient(timeout time.Duration, opts ...Option) Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c := &DefaultClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout:   timeout,
		auth:      NoAuth{},
		userAgent: UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an HTTP GET request
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Do(ctx, &Request{Method: http.MethodGet, URL: url})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Do executes the request and reads the response body under the size cap
func (c *DefaultClient) Do(ctx context.Context, r *Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.auth.Apply(req)
	for k, values := range r.Header {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	// Execute request
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Check Content-Length header if available
	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
			resp.ContentLength, MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	// Read response body with size limit
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1) // +1 to detect if limit exceeded
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes (%.2f MB)",
			MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			URL:        r.URL,
			Message:    resp.Status,
			Body:       data,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
