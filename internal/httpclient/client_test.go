package httpclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-catalog-sync/internal/httpclient"
)

// newTestServer creates a new test server with keep-alives disabled.
// This prevents flaky tests when running in parallel, as closing a server
// with keep-alives enabled can affect other tests sharing the HTTP transport.
func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

func TestNewDefaultClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{name: "create client with custom timeout", timeout: 5 * time.Second},
		{name: "create client with zero timeout uses default", timeout: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := httpclient.NewDefaultClient(tt.timeout)
			require.NotNil(t, client, "client should not be nil")
		})
	}
}

func TestDefaultClient_Get(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, httpclient.UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "success"}`))
	}))
	defer server.Close()

	client := httpclient.NewDefaultClient(5 * time.Second)
	data, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, `{"message": "success"}`, string(data))
}

func TestDefaultClient_Do_ErrorStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		body       string
	}{
		{name: "404 keeps body", statusCode: http.StatusNotFound, body: `{"error":{"message":"not here"}}`},
		{name: "401 keeps body", statusCode: http.StatusUnauthorized, body: `{"error":{"message":"Access token expired."}}`},
		{name: "500 with empty body", statusCode: http.StatusInternalServerError, body: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := httpclient.NewDefaultClient(5 * time.Second)
			_, err := client.Do(context.Background(), &httpclient.Request{URL: server.URL})
			require.Error(t, err)

			httpErr, ok := httpclient.AsHTTPError(err)
			require.True(t, ok)
			assert.Equal(t, tt.statusCode, httpErr.StatusCode)
			assert.Equal(t, tt.body, string(httpErr.Body))
			assert.True(t, httpclient.IsStatus(err, tt.statusCode))
		})
	}
}

func TestDefaultClient_Do_AuthAndHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		auth     httpclient.Auth
		header   http.Header
		expected string
	}{
		{
			name:     "bearer token",
			auth:     httpclient.BearerToken{Token: "abc"},
			expected: "Bearer abc",
		},
		{
			name:     "basic auth",
			auth:     httpclient.BasicAuth{Username: "user", Password: "pass"},
			expected: "Basic dXNlcjpwYXNz",
		},
		{
			name:     "request header overrides client auth",
			auth:     httpclient.BearerToken{Token: "abc"},
			header:   http.Header{"Authorization": []string{"Bearer refreshed"}},
			expected: "Bearer refreshed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.expected, r.Header.Get("Authorization"))
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := httpclient.NewDefaultClient(5*time.Second, httpclient.WithAuth(tt.auth))
			_, err := client.Do(context.Background(), &httpclient.Request{URL: server.URL, Header: tt.header})
			require.NoError(t, err)
		})
	}
}

func TestDefaultClient_Do_PostBody(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"x"}`, string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := httpclient.NewDefaultClient(5*time.Second, httpclient.WithRateLimit(100, 10))
	resp, err := client.Do(context.Background(), &httpclient.Request{
		Method: http.MethodPut,
		URL:    server.URL,
		Body:   []byte(`{"name":"x"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestDefaultClient_Do_InvalidURL(t *testing.T) {
	t.Parallel()

	client := httpclient.NewDefaultClient(5 * time.Second)
	_, err := client.Get(context.Background(), "://invalid-url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create request")
}

func TestDefaultClient_Do_CancelledContext(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := httpclient.NewDefaultClient(5 * time.Second)
	_, err := client.Get(ctx, server.URL)
	require.Error(t, err)
	_, isHTTP := httpclient.AsHTTPError(err)
	assert.False(t, isHTTP)
}

func TestHTTPError(t *testing.T) {
	t.Parallel()

	err := httpclient.NewHTTPError(404, "http://example.com", "Not Found")
	assert.Equal(t, "HTTP 404 for URL http://example.com: Not Found", err.Error())
}
