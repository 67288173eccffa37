package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vidtrace/vidtrace/internal/config"
	"github.com/vidtrace/vidtrace/internal/fingerprint"
)

var (
	// ErrNotFound is returned when a record ID does not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrIncompatibleParams is returned when a database was initialized under
	// a different seed, hash length or generator than the current
	// configuration. Mixing them would make every stored distance meaningless.
	ErrIncompatibleParams = errors.New("store: database uses a different seed, hash length or generator")
)

// Record is one ingested video fingerprint. Records are immutable: ingesting
// the same source again creates a new record instead of updating the old one.
type Record struct {
	ID          string
	SourceID    string // caller-supplied identifier, usually the original path or URL
	Platform    string // normalized origin tag, see NormalizePlatform
	Note        string
	Fingerprint *fingerprint.Fingerprint
	FrameCount  int // frames that contributed to the fingerprint
	Generator   string
	CreatedAt   time.Time
}

// Match pairs a stored record with its distance to the query fingerprint.
type Match struct {
	Record     Record
	Distance   int
	Similarity float64
}

// QueryOptions narrow a similarity query.
type QueryOptions struct {
	Platform string // restrict to one platform tag; empty matches all
	Limit    int    // maximum matches returned; <=0 means unlimited
	Approx   bool   // route through the in-memory HNSW accelerator
}

// Stats summarizes the store contents.
type Stats struct {
	Total      int
	ByPlatform map[string]int
	Oldest     time.Time
	Newest     time.Time
}

// Store persists fingerprints and answers similarity queries. A store is
// pinned to one fingerprint.Params at creation; inserts and queries under
// different params fail with ErrIncompatibleParams.
type Store interface {
	// Insert persists a record. A missing ID or CreatedAt is filled in.
	Insert(ctx context.Context, rec *Record) error

	// QuerySimilar returns all records whose Hamming distance to fp is
	// strictly below threshold, ordered by ascending distance (ties broken
	// by CreatedAt, then ID).
	QuerySimilar(ctx context.Context, fp *fingerprint.Fingerprint, threshold int, opts QueryOptions) ([]Match, error)

	// Get returns one record by ID.
	Get(ctx context.Context, id string) (*Record, error)

	// Delete removes one record by ID.
	Delete(ctx context.Context, id string) error

	// Stats summarizes the store contents.
	Stats(ctx context.Context) (*Stats, error)

	Close() error
}

// Open connects to the configured backend, runs pending migrations and
// verifies that the database params match the current hash configuration.
func Open(ctx context.Context, cfg config.StoreConfig, params fingerprint.Params) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return openSQLite(ctx, cfg, params)
	case "postgres":
		return openPostgres(ctx, cfg, params)
	case "mysql", "mariadb":
		return openMariaDB(ctx, cfg, params)
	default:
		return nil, fmt.Errorf("store: unknown driver %q (want sqlite, postgres or mysql)", cfg.Driver)
	}
}
