package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raklev/havik/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Store persists the action history. Undo and retry callables are
// session-scoped and never written; rows reload as display-only
// entries.
type Store struct {
	db *sql.DB
}

// Open opens the requested store file, creating parent directories.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the requested operation.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate handles migrate.
func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS action_log (
			id TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_action_log_created ON action_log(created_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate action_log: %w", err)
		}
	}
	return nil
}

// Append upserts one action entry. Entries are written once as
// pending and again when they settle, so the id conflict path keeps
// the latest status.
func (s *Store) Append(ctx context.Context, entry domain.ActionEntry) error {
	if strings.TrimSpace(entry.ID) == "" {
		return errors.New("action entry id is required")
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO action_log (id, description, status, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			status = excluded.status
	`, entry.ID, entry.Description, string(entry.Status), at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append action entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first, capped at limit.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]domain.ActionEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, status, created_at
		FROM action_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ActionEntry, 0, limit)
	for rows.Next() {
		var (
			entry      domain.ActionEntry
			statusRaw  string
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.Description, &statusRaw, &createdRaw); err != nil {
			return nil, err
		}
		entry.Status = normalizeActionStatus(statusRaw)
		entry.At = parseTS(createdRaw)
		out = append(out, entry)
	}
	return out, rows.Err()
}

// normalizeActionStatus normalizes input into a canonical form.
func normalizeActionStatus(v string) domain.ActionStatus {
	switch domain.ActionStatus(strings.TrimSpace(strings.ToLower(v))) {
	case domain.ActionSuccess:
		return domain.ActionSuccess
	case domain.ActionError:
		return domain.ActionError
	default:
		return domain.ActionPending
	}
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
