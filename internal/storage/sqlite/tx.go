package sqlite

import (
	"context"
	"time"

	dErrors "gmarup/pkg/domain-errors"
	txcontext "gmarup/pkg/platform/tx"
)

// defaultTxTimeout bounds how long a writer may wait on the store's lock
// before the operation fails with an unavailable error instead of hanging.
const defaultTxTimeout = 5 * time.Second

// RunInTx executes fn inside one transaction. The transaction is carried in
// the context, so any store method called from fn joins it via Handle.
// Rollback on error guarantees a partial write (entity without its trail
// row) is never observable.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTxTimeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MapError(err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return MapError(err)
	}
	return nil
}

// Handle returns the transaction carried by ctx, or the plain handle when
// the call runs outside any transaction.
func (s *Store) Handle(ctx context.Context) Querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}
