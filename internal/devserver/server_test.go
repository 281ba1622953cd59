package devserver

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"github.com/patidost/pati_admin_v1/internal/api"
	"github.com/patidost/pati_admin_v1/internal/apierrors"
	"github.com/patidost/pati_admin_v1/internal/auth"
	"github.com/patidost/pati_admin_v1/internal/config"
	"github.com/patidost/pati_admin_v1/internal/devserver/store"
	"github.com/patidost/pati_admin_v1/internal/dictionary"
	"github.com/patidost/pati_admin_v1/internal/harddelete"
	"github.com/patidost/pati_admin_v1/internal/httpclient"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:               "test-access-secret",
		RefreshJWTSecret:        "test-refresh-secret",
		AccessTokenTTLMinutes:   15,
		RefreshTokenTTLDays:     1,
		AdminEmail:              "admin@patidost.org",
		AdminPassword:           "admin123",
		AdminFullName:           "Administrator",
		HardDeleteWindowSeconds: 300,
		AuthRealm:               "patidost",
	}
}

// startServer seeds a memory store and serves the full router.
func startServer(t *testing.T, cfg *config.Config) (*httptest.Server, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemory()
	ctx := context.Background()
	if err := SeedAdmin(ctx, st, cfg); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if err := SeedSampleData(ctx, st); err != nil {
		t.Fatalf("seed sample data: %v", err)
	}

	srv := httptest.NewServer(New(cfg, st).Router())
	t.Cleanup(srv.Close)
	return srv, st
}

func login(t *testing.T, srv *httptest.Server, username, password string) *auth.OAuthProvider {
	t.Helper()
	p := auth.NewOAuthProvider(auth.OAuthConfig{BaseURL: srv.URL, Realm: "patidost", ClientID: "pati-admin"})
	if err := p.Login(context.Background(), username, password); err != nil {
		t.Fatalf("login: %v", err)
	}
	return p
}

func adminClient(t *testing.T, srv *httptest.Server) *httpclient.Client {
	t.Helper()
	p := login(t, srv, "admin@patidost.org", "admin123")
	return httpclient.New(srv.URL+"/api", p)
}

func TestPasswordGrantAndAuthenticatedRequest(t *testing.T) {
	srv, _ := startServer(t, testConfig())
	client := adminClient(t, srv)

	page, err := api.NewResource(client, "animals").GetAll(context.Background(), api.ListOptions{Size: 20})
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if page.TotalElements != 2 {
		t.Fatalf("seeded animals = %d, want 2", page.TotalElements)
	}
}

func TestPasswordGrant_BadCredentials(t *testing.T) {
	srv, _ := startServer(t, testConfig())
	p := auth.NewOAuthProvider(auth.OAuthConfig{BaseURL: srv.URL, Realm: "patidost", ClientID: "pati-admin"})
	err := p.Login(context.Background(), "admin@patidost.org", "wrong")
	if err == nil {
		t.Fatal("expected bad credentials to fail")
	}
	if !apierrors.IsCategory(err, apierrors.CategoryAuthentication) {
		t.Fatalf("category mismatch: %v", err)
	}
}

func TestRefreshGrant(t *testing.T) {
	srv, _ := startServer(t, testConfig())
	p := login(t, srv, "admin@patidost.org", "admin123")
	first := p.Token()

	// Claims carry second-resolution timestamps; step past the second so the
	// renewed token cannot be byte-identical.
	time.Sleep(1100 * time.Millisecond)

	// A huge threshold forces the refresh even though the token is fresh.
	if err := p.Refresh(context.Background(), 24*time.Hour); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if p.Token() == "" || p.Token() == first {
		t.Fatal("refresh should install a new access token")
	}
}

func TestUnauthenticatedRequestIs401(t *testing.T) {
	srv, _ := startServer(t, testConfig())
	client := httpclient.New(srv.URL+"/api", nil)

	_, err := api.NewResource(client, "animals").GetAll(context.Background(), api.ListOptions{})
	if err == nil {
		t.Fatal("expected a 401 without a token")
	}
	if !apierrors.IsCategory(err, apierrors.CategoryAuthentication) {
		t.Fatalf("category mismatch: %v", err)
	}
}

func TestNonAdminWritesAre403(t *testing.T) {
	cfg := testConfig()
	srv, st := startServer(t, cfg)

	hashed, err := bcrypt.GenerateFromPassword([]byte("viewer123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if err := st.SaveUser(context.Background(), &store.User{
		Email: "viewer@patidost.org", FullName: "Viewer", Password: string(hashed), Role: "viewer", Active: true,
	}); err != nil {
		t.Fatalf("save user: %v", err)
	}

	p := login(t, srv, "viewer@patidost.org", "viewer123")
	client := httpclient.New(srv.URL+"/api", p)

	// Reads pass.
	if _, err := api.NewResource(client, "animals").GetAll(context.Background(), api.ListOptions{}); err != nil {
		t.Fatalf("viewer read: %v", err)
	}
	// Writes are forbidden, not unauthenticated.
	_, err = api.NewResource(client, "animals").Create(context.Background(), api.Record{"name": "Boncuk"})
	if !apierrors.IsCategory(err, apierrors.CategoryAuthorization) {
		t.Fatalf("category mismatch: %v", err)
	}
}

func TestDictionaryListIsBareArray(t *testing.T) {
	srv, _ := startServer(t, testConfig())
	client := adminClient(t, srv)

	// Raw response shape: dictionaries answer with a bare JSON array.
	resp, err := client.Do(context.Background(), "GET", "colors", nil, nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if body := strings.TrimSpace(string(resp.Body)); !strings.HasPrefix(body, "[") {
		t.Fatalf("dictionary response should be a bare array, got %s", body[:1])
	}

	// The dictionary service normalizes it transparently.
	items, err := dictionary.NewService(client).List(context.Background(), "color", false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("colors = %d, want the seeded 4", len(items))
	}
}

func TestEntityListIsEnvelope(t *testing.T) {
	srv, _ := startServer(t, testConfig())
	client := adminClient(t, srv)

	resp, err := client.Do(context.Background(), "GET", "animals", nil, nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	var envelope map[string]any
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := envelope["content"]; !ok {
		t.Fatalf("entity response should be a pagination envelope, got %v", envelope)
	}
}

func TestSearch_FreeTextAndFieldFilters(t *testing.T) {
	srv, _ := startServer(t, testConfig())
	client := adminClient(t, srv)
	res := api.NewResource(client, "animals")

	page, err := res.Search(context.Background(), api.SearchOptions{Search: "pamuk", Size: 20}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.TotalElements != 1 || page.Content[0].GetString("name") != "Pamuk" {
		t.Fatalf("free text search = %+v", page)
	}

	page, err = res.Search(context.Background(), api.SearchOptions{Size: 20}, map[string]string{"speciesName": "köpek"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.TotalElements != 1 || page.Content[0].GetString("name") != "Karabaş" {
		t.Fatalf("field filter search = %+v", page)
	}
}

func TestCreateUpdateToggleFlow(t *testing.T) {
	srv, _ := startServer(t, testConfig())
	client := adminClient(t, srv)
	res := api.NewResource(client, "shelters")

	created, err := res.Create(context.Background(), api.Record{"name": "Bursa Barınağı", "city": "Bursa"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := created.ID("")
	if id == "" {
		t.Fatalf("created record has no id: %v", created)
	}
	if !created.GetBool("isActive") {
		t.Fatal("new records default to active")
	}

	updated, err := res.Update(context.Background(), id, api.Record{"city": "Bursa Merkez"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.GetString("city") != "Bursa Merkez" {
		t.Fatalf("update not applied: %v", updated)
	}

	if err := res.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete (toggle): %v", err)
	}
	rec, err := res.GetOne(context.Background(), id)
	if err != nil {
		t.Fatalf("GetOne: %v", err)
	}
	if rec.GetBool("isActive") {
		t.Fatal("toggle should archive the record")
	}

	// Archived records disappear from the default listing and come back
	// with all=true.
	page, err := res.Search(context.Background(), api.SearchOptions{Search: "bursa", Size: 20}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.TotalElements != 0 {
		t.Fatalf("archived record still listed: %+v", page)
	}
	page, err = res.Search(context.Background(), api.SearchOptions{Search: "bursa", All: true, Size: 20}, nil)
	if err != nil {
		t.Fatalf("Search all: %v", err)
	}
	if page.TotalElements != 1 {
		t.Fatalf("archived record missing from all=true listing: %+v", page)
	}
}

func TestDuplicateDictionaryCodeIs409(t *testing.T) {
	srv, _ := startServer(t, testConfig())
	client := adminClient(t, srv)

	_, err := dictionary.NewService(client).Create(context.Background(), "color", "RED", "Koyu Kırmızı")
	if err == nil {
		t.Fatal("expected a duplicate code conflict")
	}
	if !apierrors.IsCategory(err, apierrors.CategoryValidation) {
		t.Fatalf("category mismatch: %v", err)
	}
	if apierrors.StatusOf(err) != 409 {
		t.Fatalf("StatusOf = %d, want 409", apierrors.StatusOf(err))
	}
}

func TestHardDelete_WithinWindow(t *testing.T) {
	srv, _ := startServer(t, testConfig())
	client := adminClient(t, srv)
	res := api.NewResource(client, "animals")

	created, err := res.Create(context.Background(), api.Record{"name": "Boncuk", "speciesName": "Kedi"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := res.HardDelete(context.Background(), created.ID("")); err != nil {
		t.Fatalf("HardDelete: %v", err)
	}
	if _, err := res.GetOne(context.Background(), created.ID("")); err == nil {
		t.Fatal("hard-deleted record still retrievable")
	}
}

func TestHardDelete_ExpiredWindowIsRejectedServerSide(t *testing.T) {
	cfg := testConfig()
	cfg.HardDeleteWindowSeconds = 0
	srv, _ := startServer(t, cfg)
	client := adminClient(t, srv)
	res := api.NewResource(client, "animals")

	created, err := res.Create(context.Background(), api.Record{"name": "Boncuk", "speciesName": "Kedi"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)

	err = res.HardDelete(context.Background(), created.ID(""))
	if err == nil {
		t.Fatal("expected the server to refuse a delete outside the window")
	}
	if apierrors.Message(err) != "hard delete window has expired" {
		t.Fatalf("message = %q", apierrors.Message(err))
	}
}

func TestSystemParameters_WindowRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.HardDeleteWindowSeconds = 120
	srv, _ := startServer(t, cfg)
	client := adminClient(t, srv)

	if got := harddelete.FetchWindowSeconds(context.Background(), client); got != 120 {
		t.Fatalf("FetchWindowSeconds = %d, want 120", got)
	}
}

func TestChangeFeed_BroadcastsMutations(t *testing.T) {
	srv, _ := startServer(t, testConfig())
	provider := login(t, srv, "admin@patidost.org", "admin123")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/changes?access_token=" + provider.Token()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial change feed: %v", err)
	}
	defer conn.Close()

	// Give the hub a moment to register the subscriber before mutating.
	time.Sleep(100 * time.Millisecond)

	client := httpclient.New(srv.URL+"/api", provider)
	created, err := api.NewResource(client, "species").Create(context.Background(), api.Record{"name": "Kuş"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read change event: %v", err)
	}
	var ev ChangeEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode change event: %v", err)
	}
	if ev.Action != "created" || ev.Collection != "species" || ev.ID != created.ID("") {
		t.Fatalf("event = %+v", ev)
	}
}

func TestChangeFeed_RejectsBadToken(t *testing.T) {
	srv, _ := startServer(t, testConfig())
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/changes?access_token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected the dial to be refused")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("expected a 401 handshake response, got %+v", resp)
	}
}
