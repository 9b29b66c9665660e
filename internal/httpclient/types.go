package httpclient

import (
	"errors"
	"fmt"
)

// HTTPError represents a non-2xx HTTP response
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string

	// Body holds the response body so callers can decode provider-specific
	// error envelopes
	Body []byte
}

// Error returns the error message
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// AsHTTPError returns the HTTPError wrapped in err, if any
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// IsStatus reports whether err is an HTTPError with the given status code
func IsStatus(err error, statusCode int) bool {
	httpErr, ok := AsHTTPError(err)
	return ok && httpErr.StatusCode == statusCode
}
