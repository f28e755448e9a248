// Package store persists analytics events in the shared SQLite store.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"gmarup/internal/analytics"
	storage "gmarup/internal/storage/sqlite"
)

// SQLite implements the analytics service's Store contract.
type SQLite struct {
	db *storage.Store
}

// NewSQLite constructs a SQLite-backed analytics store.
func NewSQLite(db *storage.Store) *SQLite {
	return &SQLite{db: db}
}

// Insert writes one event row.
func (s *SQLite) Insert(ctx context.Context, event *analytics.Event) error {
	query := `
		INSERT INTO analytics (session_id, category, action, label, value, url, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Handle(ctx).ExecContext(ctx, query,
		event.SessionID,
		event.Category,
		event.Action,
		nullString(event.Label),
		nullInt(event.Value),
		event.URL,
		event.IPAddress,
		storage.FormatTime(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", storage.MapError(err))
	}
	return nil
}

// List returns the most recent events, newest first, capped at limit.
func (s *SQLite) List(ctx context.Context, limit int) ([]*analytics.Event, error) {
	rows, err := s.db.Handle(ctx).QueryContext(ctx, `
		SELECT id, session_id, category, action, label, value, url, ip_address, created_at
		FROM analytics
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analytics events: %w", storage.MapError(err))
	}
	defer rows.Close()

	var events []*analytics.Event
	for rows.Next() {
		var event analytics.Event
		var label sql.NullString
		var value sql.NullInt64
		var createdAt string
		err := rows.Scan(
			&event.ID, &event.SessionID, &event.Category, &event.Action,
			&label, &value, &event.URL, &event.IPAddress, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan analytics event: %w", err)
		}
		if label.Valid {
			event.Label = &label.String
		}
		if value.Valid {
			event.Value = &value.Int64
		}
		event.CreatedAt = storage.ParseTime(createdAt)
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list analytics events: %w", storage.MapError(err))
	}
	return events, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}
