package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vidtrace/vidtrace/internal/config"
	"github.com/vidtrace/vidtrace/internal/fingerprint"
)

// openSQLite opens the default file-backed store. SQLite allows a single
// writer, so the pool is capped at one connection; that also keeps the
// in-memory DSN usable, where every connection would otherwise see its own
// empty database.
func openSQLite(ctx context.Context, cfg config.StoreConfig, params fingerprint.Params) (Store, error) {
	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store %s: %w", cfg.DSN, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite store %s: %w", cfg.DSN, err)
	}

	return newSQLStore(ctx, db, dialect{name: "sqlite", rebind: passthrough}, params)
}
