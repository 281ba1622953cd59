// Package httpclient wraps outbound REST calls with bearer authentication,
// proactive token refresh and the error taxonomy. All API layers go through
// a single Client instance.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/patidost/pati_admin_v1/internal/apierrors"
	"github.com/patidost/pati_admin_v1/internal/auth"
)

// RefreshThreshold is how close to expiry a held token may get before a
// request forces a renewal first.
const RefreshThreshold = 30 * time.Second

const defaultTimeout = 30 * time.Second

type Option func(*Client)

// WithTimeout overrides the fixed request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpc.Timeout = d }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithAuthExpired registers the re-authentication hook, fired once per
// refresh failure or 401 response. In a browser build this is the redirect
// to the login page.
func WithAuthExpired(fn func()) Option {
	return func(c *Client) { c.onAuthExpired = fn }
}

// WithTransport substitutes the underlying round tripper, for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpc.Transport = rt }
}

// Client is the authenticated HTTP client. Safe for concurrent use.
type Client struct {
	baseURL       string
	provider      auth.TokenProvider
	httpc         *http.Client
	logger        *slog.Logger
	onAuthExpired func()
}

// New builds a client rooted at baseURL (e.g. "http://host/api"). provider
// may be nil for unauthenticated use.
func New(baseURL string, provider auth.TokenProvider, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		provider: provider,
		httpc:    &http.Client{Timeout: defaultTimeout},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response is a completed 2xx HTTP exchange. Non-2xx outcomes are returned
// as errors, never as a Response.
type Response struct {
	Status int
	Body   []byte
}

// Do dispatches one request. body is JSON-encoded when non-nil; params are
// appended to the query string as-is. A held token is refreshed first when
// it is about to expire; a refresh failure aborts the request, fires the
// auth-expired hook and surfaces as an authentication error.
func (c *Client) Do(ctx context.Context, method, path string, body any, params url.Values) (*Response, error) {
	if c.provider != nil && c.provider.Token() != "" {
		if err := c.provider.Refresh(ctx, RefreshThreshold); err != nil {
			c.authExpired()
			return nil, err
		}
	}

	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, apierrors.Configuration("encode request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, apierrors.Configuration("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.provider != nil {
		if token := c.provider.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	requestID := uuid.NewString()
	c.logger.Debug("api request", "id", requestID, "method", method, "url", u)

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", "id", requestID, "error", err)
		return nil, apierrors.Connectivity(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, apierrors.Connectivity(fmt.Errorf("read response body: %w", err))
	}

	c.logger.Debug("api response", "id", requestID, "status", resp.StatusCode)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Response{Status: resp.StatusCode, Body: respBody}, nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.authExpired()
	}
	return nil, apierrors.FromResponse(resp.StatusCode, respBody)
}

// DoJSON runs Do and unmarshals the response body into out when out is
// non-nil and the body is non-empty.
func (c *Client) DoJSON(ctx context.Context, method, path string, body any, params url.Values, out any) error {
	resp, err := c.Do(ctx, method, path, body, params)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return apierrors.Configuration("decode response body: %v", err)
	}
	return nil
}

func (c *Client) authExpired() {
	if c.onAuthExpired != nil {
		c.onAuthExpired()
	}
}
