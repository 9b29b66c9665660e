package httpclient

import (
	"net/http"
)

// Auth applies credentials to an outgoing request
type Auth interface {
	Apply(req *http.Request)
}

// NoAuth leaves the request untouched
type NoAuth struct{}

// Apply does nothing
func (NoAuth) Apply(*http.Request) {}

// BasicAuth uses HTTP Basic Authentication
type BasicAuth struct {
	Username string
	Password string
}

// Apply adds the Basic auth header to the request
func (a BasicAuth) Apply(req *http.Request) {
	if a.Username == "" && a.Password == "" {
		return
	}
	req.SetBasicAuth(a.Username, a.Password)
}

// BearerToken uses Bearer token authentication
type BearerToken struct {
	Token string
}

// Apply adds the Bearer token header to the request
func (a BearerToken) Apply(req *http.Request) {
	if a.Token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
}
