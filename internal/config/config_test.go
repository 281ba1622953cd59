package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"API_BASE_URL", "REQUEST_TIMEOUT_SECONDS", "HARD_DELETE_WINDOW_SECONDS", "AUTH_REALM"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.APIBaseURL != "http://localhost:8080/api" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.HardDeleteWindowSeconds != 300 {
		t.Errorf("HardDeleteWindowSeconds = %d", cfg.HardDeleteWindowSeconds)
	}
	if cfg.AuthRealm != "patidost" {
		t.Errorf("AuthRealm = %q", cfg.AuthRealm)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.org/api")
	t.Setenv("HARD_DELETE_WINDOW_SECONDS", "120")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "10")

	cfg := Load()
	if cfg.APIBaseURL != "https://api.example.org/api" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.HardDeleteWindowSeconds != 120 {
		t.Errorf("HardDeleteWindowSeconds = %d", cfg.HardDeleteWindowSeconds)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	t.Setenv("HARD_DELETE_WINDOW_SECONDS", "not-a-number")
	if cfg := Load(); cfg.HardDeleteWindowSeconds != 300 {
		t.Errorf("HardDeleteWindowSeconds = %d, want the fallback", cfg.HardDeleteWindowSeconds)
	}
}
