// Package auth holds the token side of the authenticated HTTP client: a
// TokenProvider owns the session token, knows when it expires and how to
// renew it against the identity provider's token endpoint.
package auth

import (
	"context"
	"net/http"
	"time"
)

// HTTPClient is the minimal surface needed from an HTTP client, so tests can
// substitute their own transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenProvider supplies the bearer token for outbound requests. Refresh
// renews the token when it expires within threshold; it is a no-op when the
// token is still comfortably valid. Refresh is idempotent, so concurrent
// callers racing to refresh are harmless.
type TokenProvider interface {
	Token() string
	Refresh(ctx context.Context, threshold time.Duration) error
}

// StaticProvider returns a fixed token and never refreshes. Useful for tests
// and service-to-service tokens managed elsewhere.
type StaticProvider struct {
	AccessToken string
}

func (p *StaticProvider) Token() string { return p.AccessToken }

func (p *StaticProvider) Refresh(ctx context.Context, threshold time.Duration) error { return nil }
