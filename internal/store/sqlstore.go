package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidtrace/vidtrace/internal/fingerprint"
)

// dialect captures the per-driver differences the shared store logic needs.
type dialect struct {
	name   string
	rebind func(query string) string // rewrite ? placeholders for the driver
}

func passthrough(query string) string { return query }

// rebindDollar rewrites ? placeholders to $1, $2, ... for lib/pq.
func rebindDollar(query string) string {
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

// sqlStore is the shared database/sql implementation behind every backend.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	params  fingerprint.Params

	indexMu sync.Mutex
	index   *hammingIndex // built lazily on the first approximate query
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, params fingerprint.Params) (*sqlStore, error) {
	s := &sqlStore{db: db, dialect: d, params: params}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.checkParams(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// checkParams pins the store to one fingerprint configuration. A fresh
// database records the current params; an existing one must match them.
func (s *sqlStore) checkParams(ctx context.Context) error {
	want := map[string]string{
		"seed":      strconv.FormatInt(s.params.Seed, 10),
		"hash_bits": strconv.Itoa(s.params.Bits),
		"generator": fingerprint.GeneratorVersion,
	}

	for _, key := range []string{"seed", "hash_bits", "generator"} {
		var got string
		err := s.db.QueryRowContext(ctx, s.dialect.rebind(
			"SELECT v FROM store_meta WHERE k = ?"), key).Scan(&got)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := s.db.ExecContext(ctx, s.dialect.rebind(
				"INSERT INTO store_meta (k, v) VALUES (?, ?)"), key, want[key]); err != nil {
				return fmt.Errorf("recording store %s: %w", key, err)
			}
		case err != nil:
			return fmt.Errorf("reading store %s: %w", key, err)
		case got != want[key]:
			return fmt.Errorf("%w: stored %s=%s, configured %s", ErrIncompatibleParams, key, got, want[key])
		}
	}
	return nil
}

func (s *sqlStore) Insert(ctx context.Context, rec *Record) error {
	if rec.Fingerprint == nil {
		return errors.New("store: record has no fingerprint")
	}
	if rec.Fingerprint.Params() != s.params {
		return fmt.Errorf("%w: fingerprint params %+v, store params %+v",
			ErrIncompatibleParams, rec.Fingerprint.Params(), s.params)
	}
	if rec.SourceID == "" {
		return errors.New("store: record has no source ID")
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Generator == "" {
		rec.Generator = fingerprint.GeneratorVersion
	}
	rec.Platform = NormalizePlatform(rec.Platform)

	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO fingerprints (id, source_id, platform, note, bits, frame_count, generator, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.SourceID, rec.Platform, rec.Note,
		rec.Fingerprint.Bytes(), rec.FrameCount, rec.Generator, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting fingerprint record: %w", err)
	}

	s.indexMu.Lock()
	if s.index != nil {
		s.index.Add(rec)
	}
	s.indexMu.Unlock()
	return nil
}

func (s *sqlStore) QuerySimilar(ctx context.Context, fp *fingerprint.Fingerprint, threshold int, opts QueryOptions) ([]Match, error) {
	if fp == nil {
		return nil, errors.New("store: query fingerprint is nil")
	}
	if fp.Params() != s.params {
		return nil, fmt.Errorf("%w: query params %+v, store params %+v",
			ErrIncompatibleParams, fp.Params(), s.params)
	}
	platform := NormalizePlatform(opts.Platform)

	var candidates []Record
	var err error
	if opts.Approx {
		candidates, err = s.approxCandidates(ctx, fp, threshold, opts.Limit, platform)
	} else {
		candidates, err = s.loadRecords(ctx, platform)
	}
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(candidates))
	for _, rec := range candidates {
		distance, err := fp.Distance(rec.Fingerprint)
		if err != nil {
			return nil, fmt.Errorf("comparing against record %s: %w", rec.ID, err)
		}
		if distance < threshold {
			matches = append(matches, Match{
				Record:     rec,
				Distance:   distance,
				Similarity: fingerprint.Similarity(distance, s.params.Bits),
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		if !matches[i].Record.CreatedAt.Equal(matches[j].Record.CreatedAt) {
			return matches[i].Record.CreatedAt.Before(matches[j].Record.CreatedAt)
		}
		return matches[i].Record.ID < matches[j].Record.ID
	})

	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches, nil
}

// approxCandidates routes the query through the in-memory HNSW accelerator.
// Every candidate it returns is still verified with an exact distance in
// QuerySimilar, so the accelerator can only miss matches, never invent them.
func (s *sqlStore) approxCandidates(ctx context.Context, fp *fingerprint.Fingerprint, threshold, limit int, platform string) ([]Record, error) {
	s.indexMu.Lock()
	if s.index == nil {
		all, err := s.loadRecords(ctx, "")
		if err != nil {
			s.indexMu.Unlock()
			return nil, err
		}
		s.index = newHammingIndex()
		for i := range all {
			s.index.Add(&all[i])
		}
	}
	index := s.index
	s.indexMu.Unlock()

	k := limit * 4
	if k < 64 {
		k = 64
	}
	candidates := index.Search(fp, k)

	if platform == "" {
		return candidates, nil
	}
	filtered := candidates[:0]
	for _, rec := range candidates {
		if rec.Platform == platform {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// loadRecords reads every record, optionally restricted to one platform.
func (s *sqlStore) loadRecords(ctx context.Context, platform string) ([]Record, error) {
	query := `
		SELECT id, source_id, platform, note, bits, frame_count, generator, created_at
		FROM fingerprints`
	var args []any
	if platform != "" {
		query += " WHERE platform = ?"
		args = append(args, platform)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying fingerprint records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fingerprint records: %w", err)
	}
	return records, nil
}

func (s *sqlStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT id, source_id, platform, note, bits, frame_count, generator, created_at
		FROM fingerprints WHERE id = ?`), id)
	rec, err := s.scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *sqlStore) scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var packed []byte
	if err := row.Scan(&rec.ID, &rec.SourceID, &rec.Platform, &rec.Note,
		&packed, &rec.FrameCount, &rec.Generator, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning fingerprint record: %w", err)
	}

	fp, err := fingerprint.New(s.params, packed)
	if err != nil {
		return nil, fmt.Errorf("decoding fingerprint of record %s: %w", rec.ID, err)
	}
	rec.Fingerprint = fp
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

func (s *sqlStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.dialect.rebind(
		"DELETE FROM fingerprints WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete of record %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.indexMu.Lock()
	if s.index != nil {
		s.index.Delete(id)
	}
	s.indexMu.Unlock()
	return nil
}

func (s *sqlStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByPlatform: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx,
		"SELECT platform, COUNT(*) FROM fingerprints GROUP BY platform")
	if err != nil {
		return nil, fmt.Errorf("counting records by platform: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var platform string
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, fmt.Errorf("scanning platform count: %w", err)
		}
		stats.ByPlatform[platform] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating platform counts: %w", err)
	}

	if stats.Total > 0 {
		// Plain column selects keep the drivers' time scanning intact;
		// MIN/MAX expressions lose the column type on some of them.
		var oldest, newest time.Time
		if err := s.db.QueryRowContext(ctx,
			"SELECT created_at FROM fingerprints ORDER BY created_at ASC LIMIT 1").
			Scan(&oldest); err != nil {
			return nil, fmt.Errorf("reading oldest record time: %w", err)
		}
		if err := s.db.QueryRowContext(ctx,
			"SELECT created_at FROM fingerprints ORDER BY created_at DESC LIMIT 1").
			Scan(&newest); err != nil {
			return nil, fmt.Errorf("reading newest record time: %w", err)
		}
		stats.Oldest = oldest.UTC()
		stats.Newest = newest.UTC()
	}
	return stats, nil
}

func (s *sqlStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}
