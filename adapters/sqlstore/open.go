// Package sqlstore persists run manifests and predictions in PostgreSQL or
// SQLite through sqlx.
package sqlstore

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // pure go sqlite driver

	"degpredict/internal/config"
	"degpredict/internal/migration"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to the configured database and runs migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}
	url := cfg.URL
	if url == "" && driver == "sqlite" {
		url = "file:degpredict.db"
	}

	db, err := sqlx.ConnectContext(ctx, driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one connection: in-memory databases are per connection and sqlite
		// allows a single writer anyway
		db.SetMaxOpenConns(1)
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("[SQLStore] Connected to %s database, schema %s", driver, migration.NewRunner().Version())
	return db, nil
}
