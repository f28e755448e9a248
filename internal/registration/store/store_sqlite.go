// Package store persists registrations and their activity trail in the
// shared SQLite store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gmarup/internal/audit"
	"gmarup/internal/registration"
	storage "gmarup/internal/storage/sqlite"
	"gmarup/pkg/platform/sentinel"
)

// SQLite implements the registration service's Store contract. Every method
// joins the transaction carried by ctx when one is present.
type SQLite struct {
	db *storage.Store
}

// NewSQLite constructs a SQLite-backed registration store.
func NewSQLite(db *storage.Store) *SQLite {
	return &SQLite{db: db}
}

// Insert writes one registration row and returns the assigned id.
func (s *SQLite) Insert(ctx context.Context, reg *registration.Registration) (int64, error) {
	query := `
		INSERT INTO registrations
			(name, email, phone, newsletter, source, status, notes,
			 created_at, updated_at, ip_address, user_agent, attempt_count, lead_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.Handle(ctx).ExecContext(ctx, query,
		reg.Name,
		reg.Email,
		reg.Phone,
		boolToInt(reg.Newsletter),
		reg.Source,
		reg.Status,
		reg.Notes,
		storage.FormatTime(reg.CreatedAt),
		storage.FormatTime(reg.UpdatedAt),
		reg.IPAddress,
		reg.UserAgent,
		reg.AttemptCount,
		reg.LeadScore,
	)
	if err != nil {
		return 0, fmt.Errorf("insert registration: %w", storage.MapError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("registration id: %w", err)
	}
	return id, nil
}

// FindByID loads one registration or sentinel.ErrNotFound.
func (s *SQLite) FindByID(ctx context.Context, id int64) (*registration.Registration, error) {
	row := s.db.Handle(ctx).QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	reg, err := scanRegistration(row)
	if err != nil {
		return nil, fmt.Errorf("find registration: %w", storage.MapError(err))
	}
	return reg, nil
}

// UpdateStatus sets status and notes, refreshes updated_at, and sets
// last_contacted only when a non-nil value is provided; a nil value leaves
// any prior contact time untouched.
func (s *SQLite) UpdateStatus(ctx context.Context, id int64, status, notes string, updatedAt time.Time, lastContacted *time.Time) error {
	query := `
		UPDATE registrations
		SET status = ?, notes = ?, updated_at = ?,
		    last_contacted = COALESCE(?, last_contacted)
		WHERE id = ?
	`
	result, err := s.db.Handle(ctx).ExecContext(ctx, query,
		status,
		notes,
		storage.FormatTime(updatedAt),
		storage.FormatNullTime(lastContacted),
		id,
	)
	if err != nil {
		return fmt.Errorf("update registration status: %w", storage.MapError(err))
	}
	return requireRow(result)
}

// Delete removes the registration row. The caller deletes the trail first,
// inside the same transaction.
func (s *SQLite) Delete(ctx context.Context, id int64) error {
	result, err := s.db.Handle(ctx).ExecContext(ctx, "DELETE FROM registrations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", storage.MapError(err))
	}
	return requireRow(result)
}

// DeleteTrail removes every activity row owned by the registration.
func (s *SQLite) DeleteTrail(ctx context.Context, id int64) error {
	_, err := s.db.Handle(ctx).ExecContext(ctx, "DELETE FROM activity_log WHERE lead_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete registration trail: %w", storage.MapError(err))
	}
	return nil
}

// List returns all registrations, newest first. The id tiebreak keeps
// same-second rows in insertion order.
func (s *SQLite) List(ctx context.Context) ([]*registration.Registration, error) {
	rows, err := s.db.Handle(ctx).QueryContext(ctx, selectColumns+" ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", storage.MapError(err))
	}
	defer rows.Close()

	var regs []*registration.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrations: %w", storage.MapError(err))
	}
	return regs, nil
}

// AppendActivity writes one trail row for the registration.
func (s *SQLite) AppendActivity(ctx context.Context, entry audit.Entry) error {
	_, err := s.db.Handle(ctx).ExecContext(ctx,
		"INSERT INTO activity_log (lead_id, action, details, created_at) VALUES (?, ?, ?, ?)",
		entry.EntityID,
		entry.Action,
		entry.Details,
		storage.FormatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append registration activity: %w", storage.MapError(err))
	}
	return nil
}

// ListActivity returns the trail for one registration, oldest first.
func (s *SQLite) ListActivity(ctx context.Context, id int64) ([]audit.Entry, error) {
	rows, err := s.db.Handle(ctx).QueryContext(ctx,
		"SELECT id, lead_id, action, details, created_at FROM activity_log WHERE lead_id = ? ORDER BY id",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list registration activity: %w", storage.MapError(err))
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var entry audit.Entry
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.EntityID, &entry.Action, &entry.Details, &createdAt); err != nil {
			return nil, fmt.Errorf("scan registration activity: %w", err)
		}
		entry.CreatedAt = storage.ParseTime(createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registration activity: %w", storage.MapError(err))
	}
	return entries, nil
}

const selectColumns = `
	SELECT id, name, email, phone, newsletter, source, status, notes,
	       created_at, updated_at, ip_address, user_agent,
	       attempt_count, lead_score, last_contacted
	FROM registrations
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*registration.Registration, error) {
	var reg registration.Registration
	var newsletter int
	var createdAt, updatedAt string
	var lastContacted sql.NullString
	err := row.Scan(
		&reg.ID, &reg.Name, &reg.Email, &reg.Phone, &newsletter,
		&reg.Source, &reg.Status, &reg.Notes,
		&createdAt, &updatedAt, &reg.IPAddress, &reg.UserAgent,
		&reg.AttemptCount, &reg.LeadScore, &lastContacted,
	)
	if err != nil {
		return nil, err
	}
	reg.Newsletter = newsletter != 0
	reg.CreatedAt = storage.ParseTime(createdAt)
	reg.UpdatedAt = storage.ParseTime(updatedAt)
	reg.LastContacted = storage.ParseNullTime(lastContacted)
	return &reg, nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
