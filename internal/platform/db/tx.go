package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// ErrTxAborted marks a transaction Postgres aborted because of a
// serialization failure or deadlock. Nothing was committed.
var ErrTxAborted = fmt.Errorf("platform/db: transaction aborted: %w", shared.ErrUnavailable)

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("platform/db: commit tx: %w", err))
	}

	return nil
}

// classify tags errors that are safe to retry.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && IsRetryableCode(pgErr.Code) {
		return fmt.Errorf("%w: %w", ErrTxAborted, err)
	}
	return err
}

// IsRetryableCode reports serialization_failure and deadlock_detected.
func IsRetryableCode(code string) bool {
	return code == "40001" || code == "40P01"
}
