package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/patidost/pati_admin_v1/internal/config"
	"github.com/patidost/pati_admin_v1/internal/devserver"
	"github.com/patidost/pati_admin_v1/internal/devserver/store"
)

func main() {
	// Load .env (non-fatal if missing)
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	var st store.Store
	if os.Getenv("DEV_MEMORY_STORE") == "true" {
		st = store.NewMemory()
	} else {
		g, err := store.ConnectGorm(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		st = g
	}

	if err := devserver.SeedAdmin(ctx, st, cfg); err != nil {
		log.Fatalf("admin seed failed: %v", err)
	}
	if err := devserver.SeedSampleData(ctx, st); err != nil {
		log.Fatalf("sample seed failed: %v", err)
	}

	srv := devserver.New(cfg, st)
	if err := srv.Router().Run(":" + cfg.Port); err != nil {
		log.Println("server exited with error:", err)
		os.Exit(1)
	}
}
