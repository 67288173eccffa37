package store

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed migrations
var migrationsFS embed.FS

// migrationsTableDDL creates the tracking table. The timestamp default is the
// only part that differs between drivers.
var migrationsTableDDL = map[string]string{
	"sqlite": `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	"postgres": `CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ DEFAULT NOW()
	)`,
	"mysql": `CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
}

// migrate applies all pending migrations for the store's dialect.
func (s *sqlStore) migrate(ctx context.Context) error {
	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	files, err := pendingMigrationFiles(s.dialect.name, applied)
	if err != nil {
		return err
	}

	for _, file := range files {
		content, err := migrationsFS.ReadFile("migrations/" + s.dialect.name + "/" + file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction for %s: %w", file, err)
		}

		// One statement per line group separated by semicolons; lib/pq and
		// mattn accept multi-statement DDL, go-sql-driver does not.
		for _, stmt := range splitStatements(string(content)) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("execute migration %s: %w", file, err)
			}
		}

		if _, err := tx.ExecContext(ctx, s.dialect.rebind(
			"INSERT INTO schema_migrations (version) VALUES (?)"), file); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// appliedMigrations returns the set of already-applied migration versions.
func (s *sqlStore) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	if _, err := s.db.ExecContext(ctx, migrationsTableDDL[s.dialect.name]); err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

// pendingMigrationFiles returns sorted SQL migration filenames not yet applied.
func pendingMigrationFiles(dialectName string, applied map[string]bool) ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations/" + dialectName)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") && !applied[e.Name()] {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// splitStatements breaks a migration file into individual statements on
// semicolons. Good enough for DDL without string literals containing ';'.
func splitStatements(content string) []string {
	var statements []string
	for _, part := range strings.Split(content, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
