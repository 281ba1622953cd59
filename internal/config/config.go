package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Client side
	APIBaseURL     string
	RequestTimeout time.Duration
	AuthURL        string
	AuthRealm      string
	AuthClientID   string

	// Devserver
	Port       string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret             string
	RefreshJWTSecret      string
	AccessTokenTTLMinutes int
	RefreshTokenTTLDays   int

	AdminEmail    string
	AdminPassword string
	AdminFullName string

	HardDeleteWindowSeconds int
}

func Load() *Config {
	return &Config{
		APIBaseURL:     getenv("API_BASE_URL", "http://localhost:8080/api"),
		RequestTimeout: time.Duration(getint("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		AuthURL:        getenv("AUTH_URL", "http://localhost:8080"),
		AuthRealm:      getenv("AUTH_REALM", "patidost"),
		AuthClientID:   getenv("AUTH_CLIENT_ID", "pati-admin"),

		Port:       getenv("PORT", "8080"),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     getenv("DB_USER", "postgres"),
		DBPassword: getenv("DB_PASSWORD", "postgres"),
		DBName:     getenv("DB_NAME", "patidost_db"),
		DBSSLMode:  getenv("DB_SSLMODE", "disable"),

		JWTSecret:             getenv("JWT_SECRET", "supersecret_change_me"),
		RefreshJWTSecret:      getenv("REFRESH_JWT_SECRET", getenv("JWT_SECRET", "supersecret_change_me")),
		AccessTokenTTLMinutes: getint("ACCESS_TOKEN_TTL_MINUTES", 15),
		RefreshTokenTTLDays:   getint("REFRESH_TOKEN_TTL_DAYS", 30),

		AdminEmail:    getenv("ADMIN_EMAIL", "admin@patidost.org"),
		AdminPassword: getenv("ADMIN_PASSWORD", "admin123"),
		AdminFullName: getenv("ADMIN_FULL_NAME", "Administrator"),

		HardDeleteWindowSeconds: getint("HARD_DELETE_WINDOW_SECONDS", 300),
	}
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
