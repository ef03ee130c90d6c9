package repository

import (
	"context"
	"errors"
	"fmt"

	"coupon-admin/internal/model"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// txStarter is satisfied by *pgxpool.Pool and pgx.Tx.
type txStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// withTx runs fn in a transaction that is committed when fn succeeds and
// rolled back otherwise.
func withTx(ctx context.Context, db txStarter, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			// Use a fresh context so a cancelled ctx does not leave the tx open.
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapPgError converts constraint violations into domain errors. It returns
// nil for any other error.
func mapPgError(err error, what string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return model.ErrConflict.WithMessage(what + " already exists").Wrap(err)
	case pgerrcode.ForeignKeyViolation:
		return model.ErrNotFound.WithMessage(what + " references a missing record").Wrap(err)
	}
	return nil
}
