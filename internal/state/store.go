// Package state persists the per-tenant reconciliation cursor: the last day
// a sync successfully imported through. Nothing else is stored locally; the
// ledger service owns the transaction history.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_state (
	tenant_id      TEXT PRIMARY KEY,
	last_sync_date TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);`

const dateFormat = "2006-01-02"

// Store is the sqlite-backed cursor store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping state database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sync_state table: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LastSyncDate returns the stored cursor for the tenant. The second return
// is false when the tenant has never synced.
func (s *Store) LastSyncDate(ctx context.Context, tenantID string) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_sync_date FROM sync_state WHERE tenant_id = ?`, tenantID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("LastSyncDate: %w", err)
	}

	date, err := time.Parse(dateFormat, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("LastSyncDate: stored cursor %q: %w", raw, err)
	}
	return date, true, nil
}

// SetLastSyncDate advances the tenant's cursor.
func (s *Store) SetLastSyncDate(ctx context.Context, tenantID string, date time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (tenant_id, last_sync_date, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			last_sync_date = excluded.last_sync_date,
			updated_at     = excluded.updated_at`,
		tenantID, date.Format(dateFormat), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("SetLastSyncDate: %w", err)
	}
	return nil
}
