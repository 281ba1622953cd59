package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/patidost/pati_admin_v1/internal/apierrors"
)

// OAuthConfig points the provider at an OpenID Connect style token endpoint
// ({BaseURL}/realms/{Realm}/protocol/openid-connect/token).
type OAuthConfig struct {
	BaseURL  string
	Realm    string
	ClientID string

	// HTTPClient overrides the transport used for token requests.
	HTTPClient HTTPClient
}

// OAuthProvider holds the session's access and refresh tokens and renews
// them through the token endpoint. One instance is shared per session; the
// token pair is the only mutable state and is guarded by a mutex.
type OAuthProvider struct {
	cfg   OAuthConfig
	httpc HTTPClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func NewOAuthProvider(cfg OAuthConfig) *OAuthProvider {
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &OAuthProvider{cfg: cfg, httpc: httpc}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Login performs a resource-owner password grant and stores the resulting
// token pair.
func (p *OAuthProvider) Login(ctx context.Context, username, password string) error {
	form := url.Values{
		"grant_type": {"password"},
		"client_id":  {p.cfg.ClientID},
		"username":   {username},
		"password":   {password},
	}
	return p.tokenRequest(ctx, form)
}

// SetTokens installs an externally obtained token pair, e.g. one carried
// over from a browser session. Expiry is read from the access token itself.
func (p *OAuthProvider) SetTokens(accessToken, refreshToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessToken = accessToken
	p.refreshToken = refreshToken
	p.expiresAt = tokenExpiry(accessToken, 0)
}

func (p *OAuthProvider) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accessToken
}

// Refresh renews the token pair when the access token expires within
// threshold. Renewing a still-valid token is harmless, so no coordination
// beyond the token swap itself is needed.
func (p *OAuthProvider) Refresh(ctx context.Context, threshold time.Duration) error {
	p.mu.Lock()
	refresh := p.refreshToken
	due := p.accessToken == "" || time.Until(p.expiresAt) <= threshold
	p.mu.Unlock()

	if !due {
		return nil
	}
	if refresh == "" {
		return apierrors.Authentication(nil, "session expired and no refresh token held")
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {p.cfg.ClientID},
		"refresh_token": {refresh},
	}
	return p.tokenRequest(ctx, form)
}

func (p *OAuthProvider) tokenRequest(ctx context.Context, form url.Values) error {
	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token",
		strings.TrimRight(p.cfg.BaseURL, "/"), p.cfg.Realm)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return apierrors.Authentication(err, "build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return apierrors.Authentication(err, "token endpoint unreachable")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := apierrors.MessageFromBody(body)
		if msg == "" {
			msg = fmt.Sprintf("token endpoint returned status %d", resp.StatusCode)
		}
		return apierrors.Authentication(nil, msg)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return apierrors.Authentication(err, "malformed token response")
	}
	if tr.AccessToken == "" {
		return apierrors.Authentication(nil, "token response missing access_token")
	}

	p.mu.Lock()
	p.accessToken = tr.AccessToken
	if tr.RefreshToken != "" {
		p.refreshToken = tr.RefreshToken
	}
	p.expiresAt = tokenExpiry(tr.AccessToken, tr.ExpiresIn)
	p.mu.Unlock()
	return nil
}

// tokenExpiry reads the exp claim from the JWT without verifying the
// signature; the token is only inspected, never trusted, on the client. The
// expires_in hint is the fallback for opaque tokens.
func tokenExpiry(token string, expiresIn int) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil {
		if claims.ExpiresAt != nil {
			return claims.ExpiresAt.Time
		}
	}
	if expiresIn > 0 {
		return time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	return time.Time{}
}
