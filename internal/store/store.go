package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	logx "appwatch/pkg/logx"
)

// Config configures the version store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

const schema = `
CREATE TABLE IF NOT EXISTS app_versions (
	app_id     TEXT PRIMARY KEY,
	version    TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Store is the sqlite-backed version mapping.
type Store struct {
	db  *sql.DB
	log logx.Logger

	// firstRun reports whether the database file did not exist before
	// this process opened it. Load errors on a first run fall back to an
	// empty snapshot; on any later run they are surfaced instead of
	// silently reclassifying every app as newly observed.
	firstRun bool
}

// Open opens (creating if needed) the sqlite version store.
func Open(cfg Config, log logx.Logger) (*Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("store: path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	_, statErr := os.Stat(path)
	firstRun := errors.Is(statErr, os.ErrNotExist)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	s := &Store{db: db, log: log, firstRun: firstRun}
	if firstRun {
		log.Info("version store created", logx.String("path", path))
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// FirstRun reports whether this process created the database file.
func (s *Store) FirstRun() bool { return s.firstRun }

// Load reads the full app_id -> version snapshot.
func (s *Store) Load(ctx context.Context) (map[string]string, error) {
	query, args, err := sq.Select("app_id", "version").From("app_versions").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if s.firstRun {
			// Nothing persisted yet; an empty baseline is the correct one.
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("store: load: %w", err)
	}
	defer rows.Close()

	snap := make(map[string]string)
	for rows.Next() {
		var id, version string
		if err := rows.Scan(&id, &version); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		snap[id] = version
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return snap, nil
}

// Apply merges a cycle's staged delta in one transaction. Either every
// id in the delta is committed or none is.
func (s *Store) Apply(ctx context.Context, delta map[string]string) error {
	if len(delta) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for id, version := range delta {
		query, args, err := sq.Insert("app_versions").
			Columns("app_id", "version", "updated_at").
			Values(id, version, now).
			Suffix("ON CONFLICT(app_id) DO UPDATE SET version = excluded.version, updated_at = excluded.updated_at").
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("store: upsert %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	s.log.Debug("version store committed", logx.Int("ids", len(delta)))
	return nil
}
