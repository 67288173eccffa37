package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/vidtrace/vidtrace/internal/config"
	"github.com/vidtrace/vidtrace/internal/fingerprint"
)

// openPostgres connects to a PostgreSQL store for shared deployments.
func openPostgres(ctx context.Context, cfg config.StoreConfig, params fingerprint.Params) (Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("store: postgres URL is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening postgres store: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres store: %w", err)
	}

	return newSQLStore(ctx, db, dialect{name: "postgres", rebind: rebindDollar}, params)
}
