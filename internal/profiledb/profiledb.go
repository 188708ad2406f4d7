// Package profiledb persists per-path priority scores and directory
// flags for a single sync profile, backed by a pure-Go SQLite database.
package profiledb

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

// Entry is a single profile database row.
type Entry struct {
	Priority    float64
	IsDirectory bool
}

// Store is the SQLite-backed profile database described in the data
// model: one row per tracked relative path, carrying a priority score
// and whether the path is a directory.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	stmtAdd        *sql.Stmt
	stmtRemove     *sql.Stmt
	stmtIncrement  *sql.Stmt
	stmtGet        *sql.Stmt
	stmtMaxPrio    *sql.Stmt
	stmtUpdatePrio *sql.Stmt
}

// Open opens (or creates) the profile database at dbPath and prepares
// its statements. Use ":memory:" for tests.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("profiledb: open %s: %w", dbPath, err)
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
		return nil, fmt.Errorf("profiledb: prepare statements: %w", err)
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
			return fmt.Errorf("profiledb: set pragma %q: %w", p, err)
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
		return fmt.Errorf("profiledb: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("profiledb: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("profiledb: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Debug("applied profile db migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

func (s *Store) prepare(ctx context.Context) error {
	var err error

	s.stmtAdd, err = s.db.PrepareContext(ctx, `
		INSERT INTO files (relpath, priority, is_directory)
		SELECT ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM files WHERE relpath = ?)`)
	if err != nil {
		return err
	}

	s.stmtRemove, err = s.db.PrepareContext(ctx, `DELETE FROM files WHERE relpath = ?`)
	if err != nil {
		return err
	}

	s.stmtIncrement, err = s.db.PrepareContext(ctx, `UPDATE files SET priority = priority + 1 WHERE relpath = ?`)
	if err != nil {
		return err
	}

	s.stmtGet, err = s.db.PrepareContext(ctx, `SELECT priority, is_directory FROM files WHERE relpath = ?`)
	if err != nil {
		return err
	}

	s.stmtMaxPrio, err = s.db.PrepareContext(ctx, `SELECT COALESCE(MAX(priority), 0) FROM files`)
	if err != nil {
		return err
	}

	s.stmtUpdatePrio, err = s.db.PrepareContext(ctx, `UPDATE files SET priority = ? WHERE relpath = ?`)
	if err != nil {
		return err
	}

	return nil
}

// Close releases the prepared statements and closes the database.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{
		s.stmtAdd, s.stmtRemove, s.stmtIncrement, s.stmtGet, s.stmtMaxPrio, s.stmtUpdatePrio,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}

	return s.db.Close()
}

// Add inserts a new entry at priority (default 0 from the caller's
// perspective). A no-op if relpath already has an entry.
func (s *Store) Add(ctx context.Context, relpath string, priority float64, isDirectory bool) error {
	_, err := s.stmtAdd.ExecContext(ctx, relpath, priority, isDirectory, relpath)
	if err != nil {
		return fmt.Errorf("profiledb: add %s: %w", relpath, err)
	}

	return nil
}

// AddInflated adds every path in files and dirs that doesn't already
// have an entry, at priority max(existing priorities)+1. Existing
// entries are left untouched.
func (s *Store) AddInflated(ctx context.Context, files, dirs map[string]bool) error {
	var maxPriority float64
	if err := s.stmtMaxPrio.QueryRowContext(ctx).Scan(&maxPriority); err != nil {
		return fmt.Errorf("profiledb: read max priority: %w", err)
	}

	inflated := maxPriority + 1

	for path := range files {
		if err := s.Add(ctx, path, inflated, false); err != nil {
			return err
		}
	}

	for path := range dirs {
		if err := s.Add(ctx, path, inflated, true); err != nil {
			return err
		}
	}

	return nil
}

// Remove deletes the entry for relpath, if any.
func (s *Store) Remove(ctx context.Context, relpath string) error {
	if _, err := s.stmtRemove.ExecContext(ctx, relpath); err != nil {
		return fmt.Errorf("profiledb: remove %s: %w", relpath, err)
	}

	return nil
}

// RemoveAll deletes every entry in paths.
func (s *Store) RemoveAll(ctx context.Context, paths map[string]bool) error {
	for path := range paths {
		if err := s.Remove(ctx, path); err != nil {
			return err
		}
	}

	return nil
}

// Increment adds 1 to the priority of relpath. A no-op if relpath has no
// entry.
func (s *Store) Increment(ctx context.Context, relpath string) error {
	if _, err := s.stmtIncrement.ExecContext(ctx, relpath); err != nil {
		return fmt.Errorf("profiledb: increment %s: %w", relpath, err)
	}

	return nil
}

// AdjustAll multiplies every priority by factor (typically just under 1,
// implementing exponential decay toward recently-accessed paths).
func (s *Store) AdjustAll(ctx context.Context, factor float64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE files SET priority = priority * ?`, factor); err != nil {
		return fmt.Errorf("profiledb: adjust_all: %w", err)
	}

	return nil
}

// Get returns the entry for relpath, and whether it exists.
func (s *Store) Get(ctx context.Context, relpath string) (Entry, bool, error) {
	var e Entry

	err := s.stmtGet.QueryRowContext(ctx, relpath).Scan(&e.Priority, &e.IsDirectory)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("profiledb: get %s: %w", relpath, err)
	}

	return e, true, nil
}

// GetTree returns every entry whose relpath equals prefix or is nested
// under it (prefix + "/"). An empty prefix returns every entry.
// isDirectory, when non-nil, additionally filters by the is_directory
// column.
func (s *Store) GetTree(ctx context.Context, prefix string, isDirectory *bool) (map[string]Entry, error) {
	query := `SELECT relpath, priority, is_directory FROM files`
	var args []any
	var conditions []string

	if prefix != "" {
		conditions = append(conditions, `(relpath = ? OR relpath LIKE ?)`)
		args = append(args, prefix, prefix+"/%")
	}

	if isDirectory != nil {
		conditions = append(conditions, `is_directory = ?`)
		args = append(args, *isDirectory)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("profiledb: get_tree: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Entry)
	for rows.Next() {
		var relpath string
		var e Entry

		if err := rows.Scan(&relpath, &e.Priority, &e.IsDirectory); err != nil {
			return nil, fmt.Errorf("profiledb: scan row: %w", err)
		}

		out[relpath] = e
	}

	return out, rows.Err()
}
