// Package store persists the settings registry in the shared SQLite store.
package store

import (
	"context"
	"errors"
	"fmt"

	"gmarup/internal/settings"
	storage "gmarup/internal/storage/sqlite"
	"gmarup/pkg/platform/sentinel"
)

// SQLite implements the settings service's Store contract.
type SQLite struct {
	db *storage.Store
}

// NewSQLite constructs a SQLite-backed settings store.
func NewSQLite(db *storage.Store) *SQLite {
	return &SQLite{db: db}
}

// GetAll returns every stored setting keyed by name.
func (s *SQLite) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.Handle(ctx).QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", storage.MapError(err))
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load settings: %w", storage.MapError(err))
	}
	return values, nil
}

// GetKeys returns stored values for the requested keys only. Keys with no
// stored row are absent from the result.
func (s *SQLite) GetKeys(ctx context.Context, keys []string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		var value string
		row := s.db.Handle(ctx).QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key)
		err := row.Scan(&value)
		if err != nil {
			mapped := storage.MapError(err)
			if errors.Is(mapped, sentinel.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load setting %s: %w", key, mapped)
		}
		values[key] = value
	}
	return values, nil
}

// Upsert writes one setting, replacing any existing value.
func (s *SQLite) Upsert(ctx context.Context, setting settings.Setting) error {
	_, err := s.db.Handle(ctx).ExecContext(ctx,
		"INSERT OR REPLACE INTO settings (key, value, updated_at) VALUES (?, ?, ?)",
		setting.Key,
		setting.Value,
		storage.FormatTime(setting.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", setting.Key, storage.MapError(err))
	}
	return nil
}
