package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/vidtrace/vidtrace/internal/config"
	"github.com/vidtrace/vidtrace/internal/fingerprint"
)

// openMariaDB connects to a MySQL/MariaDB store.
func openMariaDB(ctx context.Context, cfg config.StoreConfig, params fingerprint.Params) (Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("store: MariaDB DSN is required")
	}

	// The driver returns TIMESTAMP columns as []byte unless parseTime is set.
	dsn := cfg.DSN
	if !strings.Contains(dsn, "parseTime=") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening MariaDB store: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging MariaDB store: %w", err)
	}

	return newSQLStore(ctx, db, dialect{name: "mysql", rebind: passthrough}, params)
}
