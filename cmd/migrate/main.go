package main

// Apply filing-journal migrations:
//   go run ./cmd/migrate

import (
	"context"
	"log"
	"os"

	"dashboard-backend/internal/shared/config"
	"dashboard-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
	version, err := db.Version(ctx, sqlDB)
	if err != nil {
		log.Printf("migrations applied; version unknown: %v", err)
		return
	}
	log.Printf("filing journal schema at version %d", version)
}
