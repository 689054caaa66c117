package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"degpredict/adapters/sqlstore"
	"degpredict/internal/config"
	"degpredict/internal/migration"
)

// migrate creates or upgrades the run repository schema.
//
// Usage: migrate [database_url]
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if len(os.Args) > 1 {
		cfg.Database.URL = os.Args[1]
	}
	if cfg.Database.URL == "" {
		log.Fatal("Usage: migrate <database_url> (or set DATABASE_URL)")
	}

	db, err := sqlstore.Open(context.Background(), cfg.Database)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	defer db.Close()

	log.Printf("Schema %s applied to %s database", migration.NewRunner().Version(), cfg.Database.Driver)
}
