// Package store persists donations and their activity trail in the shared
// SQLite store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gmarup/internal/audit"
	"gmarup/internal/donation"
	storage "gmarup/internal/storage/sqlite"
	"gmarup/pkg/platform/sentinel"
)

// SQLite implements the donation service's Store contract. Every method
// joins the transaction carried by ctx when one is present.
type SQLite struct {
	db *storage.Store
}

// NewSQLite constructs a SQLite-backed donation store.
func NewSQLite(db *storage.Store) *SQLite {
	return &SQLite{db: db}
}

// Insert writes one donation row and returns the assigned numeric id.
// A duplicate public id surfaces as sentinel.ErrConflict.
func (s *SQLite) Insert(ctx context.Context, don *donation.Donation) (int64, error) {
	query := `
		INSERT INTO donations
			(donation_id, amount, donor_name, donor_email, donor_phone, message,
			 is_anonymous, source, status, payment_method,
			 created_at, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.Handle(ctx).ExecContext(ctx, query,
		don.PublicID,
		don.Amount,
		don.DonorName,
		don.DonorEmail,
		don.DonorPhone,
		don.Message,
		boolToInt(don.IsAnonymous),
		don.Source,
		don.Status,
		don.PaymentMethod,
		storage.FormatTime(don.CreatedAt),
		don.IPAddress,
		don.UserAgent,
	)
	if err != nil {
		return 0, fmt.Errorf("insert donation: %w", storage.MapError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("donation id: %w", err)
	}
	return id, nil
}

// FindByID loads one donation or sentinel.ErrNotFound.
func (s *SQLite) FindByID(ctx context.Context, id int64) (*donation.Donation, error) {
	row := s.db.Handle(ctx).QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	don, err := scanDonation(row)
	if err != nil {
		return nil, fmt.Errorf("find donation: %w", storage.MapError(err))
	}
	return don, nil
}

// FindByPublicID loads a donation through its shareable identifier.
func (s *SQLite) FindByPublicID(ctx context.Context, publicID string) (*donation.Donation, error) {
	row := s.db.Handle(ctx).QueryRowContext(ctx, selectColumns+" WHERE donation_id = ?", publicID)
	don, err := scanDonation(row)
	if err != nil {
		return nil, fmt.Errorf("find donation by public id: %w", storage.MapError(err))
	}
	return don, nil
}

// UpdateStatus sets status and stamps completed_at only when completedAt is
// non-nil; otherwise any existing completion time is preserved.
func (s *SQLite) UpdateStatus(ctx context.Context, id int64, status string, completedAt *time.Time) error {
	query := `
		UPDATE donations
		SET status = ?, completed_at = COALESCE(?, completed_at)
		WHERE id = ?
	`
	result, err := s.db.Handle(ctx).ExecContext(ctx, query,
		status,
		storage.FormatNullTime(completedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("update donation status: %w", storage.MapError(err))
	}
	return requireRow(result)
}

// SetTransactionID records the provider's transaction reference.
func (s *SQLite) SetTransactionID(ctx context.Context, id int64, transactionID string) error {
	result, err := s.db.Handle(ctx).ExecContext(ctx,
		"UPDATE donations SET transaction_id = ? WHERE id = ?", transactionID, id)
	if err != nil {
		return fmt.Errorf("set donation transaction id: %w", storage.MapError(err))
	}
	return requireRow(result)
}

// Delete removes the donation row. The caller deletes the trail first,
// inside the same transaction.
func (s *SQLite) Delete(ctx context.Context, id int64) error {
	result, err := s.db.Handle(ctx).ExecContext(ctx, "DELETE FROM donations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete donation: %w", storage.MapError(err))
	}
	return requireRow(result)
}

// DeleteTrail removes every activity row owned by the donation.
func (s *SQLite) DeleteTrail(ctx context.Context, id int64) error {
	_, err := s.db.Handle(ctx).ExecContext(ctx, "DELETE FROM donation_activity WHERE donation_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete donation trail: %w", storage.MapError(err))
	}
	return nil
}

// List returns all donations, newest first.
func (s *SQLite) List(ctx context.Context) ([]*donation.Donation, error) {
	rows, err := s.db.Handle(ctx).QueryContext(ctx, selectColumns+" ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", storage.MapError(err))
	}
	defer rows.Close()

	var dons []*donation.Donation
	for rows.Next() {
		don, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		dons = append(dons, don)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list donations: %w", storage.MapError(err))
	}
	return dons, nil
}

// AppendActivity writes one trail row for the donation.
func (s *SQLite) AppendActivity(ctx context.Context, entry audit.Entry) error {
	_, err := s.db.Handle(ctx).ExecContext(ctx,
		"INSERT INTO donation_activity (donation_id, action, details, created_at) VALUES (?, ?, ?, ?)",
		entry.EntityID,
		entry.Action,
		entry.Details,
		storage.FormatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append donation activity: %w", storage.MapError(err))
	}
	return nil
}

// ListActivity returns the trail for one donation, oldest first.
func (s *SQLite) ListActivity(ctx context.Context, id int64) ([]audit.Entry, error) {
	rows, err := s.db.Handle(ctx).QueryContext(ctx,
		"SELECT id, donation_id, action, details, created_at FROM donation_activity WHERE donation_id = ? ORDER BY id",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list donation activity: %w", storage.MapError(err))
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var entry audit.Entry
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.EntityID, &entry.Action, &entry.Details, &createdAt); err != nil {
			return nil, fmt.Errorf("scan donation activity: %w", err)
		}
		entry.CreatedAt = storage.ParseTime(createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list donation activity: %w", storage.MapError(err))
	}
	return entries, nil
}

const selectColumns = `
	SELECT id, donation_id, amount, donor_name, donor_email, donor_phone, message,
	       is_anonymous, source, status, payment_method, transaction_id,
	       created_at, completed_at, ip_address, user_agent
	FROM donations
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonation(row rowScanner) (*donation.Donation, error) {
	var don donation.Donation
	var anonymous int
	var createdAt string
	var transactionID, completedAt sql.NullString
	err := row.Scan(
		&don.ID, &don.PublicID, &don.Amount, &don.DonorName, &don.DonorEmail,
		&don.DonorPhone, &don.Message, &anonymous, &don.Source, &don.Status,
		&don.PaymentMethod, &transactionID,
		&createdAt, &completedAt, &don.IPAddress, &don.UserAgent,
	)
	if err != nil {
		return nil, err
	}
	don.IsAnonymous = anonymous != 0
	don.CreatedAt = storage.ParseTime(createdAt)
	don.CompletedAt = storage.ParseNullTime(completedAt)
	if transactionID.Valid {
		don.TransactionID = &transactionID.String
	}
	return &don, nil
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
