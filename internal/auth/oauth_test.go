package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/patidost/pati_admin_v1/internal/apierrors"
)

func signedToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "tester",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func tokenServer(t *testing.T, grants *int, access string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/realms/patidost/protocol/openid-connect/token" {
			t.Errorf("unexpected token path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		*grants++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":%q,"refresh_token":"refresh-1","token_type":"Bearer","expires_in":300}`, access)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLogin_StoresTokenPair(t *testing.T) {
	access := signedToken(t, 5*time.Minute)
	var grants int
	srv := tokenServer(t, &grants, access)

	p := NewOAuthProvider(OAuthConfig{BaseURL: srv.URL, Realm: "patidost", ClientID: "pati-admin"})
	if err := p.Login(context.Background(), "admin@patidost.org", "admin123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if p.Token() != access {
		t.Fatal("access token not stored")
	}
	if grants != 1 {
		t.Fatalf("grants = %d, want 1", grants)
	}
}

func TestRefresh_SkipsWhenTokenStillFresh(t *testing.T) {
	var grants int
	srv := tokenServer(t, &grants, signedToken(t, 5*time.Minute))

	p := NewOAuthProvider(OAuthConfig{BaseURL: srv.URL, Realm: "patidost", ClientID: "pati-admin"})
	p.SetTokens(signedToken(t, 5*time.Minute), "refresh-0")

	if err := p.Refresh(context.Background(), 30*time.Second); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if grants != 0 {
		t.Fatalf("a fresh token must not hit the token endpoint, grants = %d", grants)
	}
}

func TestRefresh_RenewsNearExpiry(t *testing.T) {
	renewed := signedToken(t, 5*time.Minute)
	var grants int
	srv := tokenServer(t, &grants, renewed)

	p := NewOAuthProvider(OAuthConfig{BaseURL: srv.URL, Realm: "patidost", ClientID: "pati-admin"})
	p.SetTokens(signedToken(t, 10*time.Second), "refresh-0")

	if err := p.Refresh(context.Background(), 30*time.Second); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if grants != 1 {
		t.Fatalf("grants = %d, want 1", grants)
	}
	if p.Token() != renewed {
		t.Fatal("renewed access token not stored")
	}
}

func TestRefresh_NoRefreshTokenIsAuthenticationError(t *testing.T) {
	var grants int
	srv := tokenServer(t, &grants, "unused")

	p := NewOAuthProvider(OAuthConfig{BaseURL: srv.URL, Realm: "patidost", ClientID: "pati-admin"})
	p.SetTokens(signedToken(t, 1*time.Second), "")

	err := p.Refresh(context.Background(), 30*time.Second)
	if err == nil {
		t.Fatal("expected an error with no refresh token held")
	}
	if !apierrors.IsCategory(err, apierrors.CategoryAuthentication) {
		t.Fatalf("category mismatch: %v", err)
	}
	if grants != 0 {
		t.Fatal("no grant must be attempted without a refresh token")
	}
}

func TestRefresh_RejectedGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewOAuthProvider(OAuthConfig{BaseURL: srv.URL, Realm: "patidost", ClientID: "pati-admin"})
	p.SetTokens(signedToken(t, 1*time.Second), "stale-refresh")

	err := p.Refresh(context.Background(), 30*time.Second)
	if err == nil {
		t.Fatal("expected an error for a rejected grant")
	}
	if !apierrors.IsCategory(err, apierrors.CategoryAuthentication) {
		t.Fatalf("category mismatch: %v", err)
	}
}

func TestTokenExpiry_FallsBackToExpiresIn(t *testing.T) {
	got := tokenExpiry("opaque-token", 300)
	want := time.Now().Add(300 * time.Second)
	if got.Before(want.Add(-5*time.Second)) || got.After(want.Add(5*time.Second)) {
		t.Fatalf("tokenExpiry = %v, want ~%v", got, want)
	}
	if !tokenExpiry("opaque-token", 0).IsZero() {
		t.Fatal("opaque token without expires_in should have zero expiry")
	}
}
