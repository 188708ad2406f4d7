// Package remotedb persists per-path last-sync timestamps, directory
// flags, and soft-delete state for a sync profile's remote mirror,
// backed by a pure-Go SQLite database.
package remotedb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Entry is a single remote database row.
type Entry struct {
	LastSync    float64
	IsDirectory bool
	Deleted     bool
}

// Store is the SQLite-backed remote database: one row per path known to
// have existed on the remote side, recording when it was last synced and
// whether it currently represents a soft-deleted (trashed) file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	stmtAdd        *sql.Stmt
	stmtRemove     *sql.Stmt
	stmtSetDeleted *sql.Stmt
	stmtUpdateSync *sql.Stmt
	stmtGet        *sql.Stmt
}

// Open opens (or creates) the remote database at dbPath and prepares its
// statements. Use ":memory:" for tests.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("remotedb: open %s: %w", dbPath, err)
	}

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger}
	if err := s.prepare(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("remotedb: prepare statements: %w", err)
	}

	return s, nil
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA foreign_keys = ON",
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("remotedb: set pragma %q: %w", p, err)
		}
	}

	return nil
}

// runMigrations applies all pending schema migrations to the database.
// Uses the goose v3 Provider API (no global state, context-aware), the
// same pattern as the teacher's internal/sync/migrations.go.
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("remotedb: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("remotedb: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("remotedb: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Debug("applied remote db migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

func (s *Store) prepare(ctx context.Context) error {
	var err error

	s.stmtAdd, err = s.db.PrepareContext(ctx, `
		INSERT INTO files (relpath, last_sync, is_directory, deleted)
		SELECT ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM files WHERE relpath = ?)`)
	if err != nil {
		return err
	}

	s.stmtRemove, err = s.db.PrepareContext(ctx, `DELETE FROM files WHERE relpath = ?`)
	if err != nil {
		return err
	}

	s.stmtSetDeleted, err = s.db.PrepareContext(ctx, `UPDATE files SET deleted = ? WHERE relpath = ?`)
	if err != nil {
		return err
	}

	s.stmtUpdateSync, err = s.db.PrepareContext(ctx, `UPDATE files SET last_sync = ? WHERE relpath = ?`)
	if err != nil {
		return err
	}

	s.stmtGet, err = s.db.PrepareContext(ctx, `SELECT last_sync, is_directory, deleted FROM files WHERE relpath = ?`)
	if err != nil {
		return err
	}

	return nil
}

// Close releases the prepared statements and closes the database.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{
		s.stmtAdd, s.stmtRemove, s.stmtSetDeleted, s.stmtUpdateSync, s.stmtGet,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}

	return s.db.Close()
}

// Add inserts files and dirs at the given sync time with the given
// deleted flag, if they don't already have an entry (composite insert, no-op on an
// existing key).
func (s *Store) Add(ctx context.Context, files, dirs map[string]bool, lastSync float64, deleted bool) error {
	for path := range files {
		if _, err := s.stmtAdd.ExecContext(ctx, path, lastSync, false, deleted, path); err != nil {
			return fmt.Errorf("remotedb: add file %s: %w", path, err)
		}
	}

	for path := range dirs {
		if _, err := s.stmtAdd.ExecContext(ctx, path, lastSync, true, deleted, path); err != nil {
			return fmt.Errorf("remotedb: add dir %s: %w", path, err)
		}
	}

	return nil
}

// Remove deletes the entries for every path in paths.
func (s *Store) Remove(ctx context.Context, paths map[string]bool) error {
	for path := range paths {
		if _, err := s.stmtRemove.ExecContext(ctx, path); err != nil {
			return fmt.Errorf("remotedb: remove %s: %w", path, err)
		}
	}

	return nil
}

// SetDeleted flips the deleted flag for relpath. There is no supported
// path back from true to false on the same key: a trashed path is always
// renamed, which changes its key.
func (s *Store) SetDeleted(ctx context.Context, relpath string, deleted bool) error {
	if _, err := s.stmtSetDeleted.ExecContext(ctx, deleted, relpath); err != nil {
		return fmt.Errorf("remotedb: set_deleted %s: %w", relpath, err)
	}

	return nil
}

// UpdateSyncTime sets relpath's last_sync column to now (UTC seconds).
func (s *Store) UpdateSyncTime(ctx context.Context, relpath string, nowUTC float64) error {
	if _, err := s.stmtUpdateSync.ExecContext(ctx, nowUTC, relpath); err != nil {
		return fmt.Errorf("remotedb: update_synctime %s: %w", relpath, err)
	}

	return nil
}

// Get returns the entry for relpath, and whether it exists.
func (s *Store) Get(ctx context.Context, relpath string) (Entry, bool, error) {
	var e Entry

	err := s.stmtGet.QueryRowContext(ctx, relpath).Scan(&e.LastSync, &e.IsDirectory, &e.Deleted)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("remotedb: get %s: %w", relpath, err)
	}

	return e, true, nil
}

// GetTree returns every entry under prefix (itself or nested), optionally
// filtered by directory, deleted, and a last_sync value strictly greater
// than minLastSync. Any filter left nil is not applied.
func (s *Store) GetTree(ctx context.Context, prefix string, directory, deleted *bool, minLastSync *float64) (map[string]Entry, error) {
	query := `SELECT relpath, last_sync, is_directory, deleted FROM files`
	var args []any
	var conditions []string

	if prefix != "" {
		conditions = append(conditions, `(relpath = ? OR relpath LIKE ?)`)
		args = append(args, prefix, prefix+"/%")
	}

	if directory != nil {
		conditions = append(conditions, `is_directory = ?`)
		args = append(args, *directory)
	}

	if deleted != nil {
		conditions = append(conditions, `deleted = ?`)
		args = append(args, *deleted)
	}

	if minLastSync != nil {
		conditions = append(conditions, `last_sync > ?`)
		args = append(args, *minLastSync)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("remotedb: get_tree: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Entry)
	for rows.Next() {
		var relpath string
		var e Entry

		if err := rows.Scan(&relpath, &e.LastSync, &e.IsDirectory, &e.Deleted); err != nil {
			return nil, fmt.Errorf("remotedb: scan row: %w", err)
		}

		out[relpath] = e
	}

	return out, rows.Err()
}
