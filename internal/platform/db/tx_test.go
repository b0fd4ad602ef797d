package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

func TestClassify(t *testing.T) {
	serialization := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	err := classify(serialization)
	require.ErrorIs(t, err, ErrTxAborted)
	require.ErrorIs(t, err, shared.ErrUnavailable)
	require.ErrorAs(t, err, new(*pgconn.PgError))

	unique := &pgconn.PgError{Code: "23505"}
	require.Same(t, error(unique), classify(unique))

	plain := errors.New("boom")
	require.Equal(t, plain, classify(plain))
}

func TestSchemaCoversTables(t *testing.T) {
	for _, table := range []string{"products", "outlets", "outlet_stock", "stock_movements", "stock_transfers",
		"stock_transfer_destinations", "product_usage", "product_favorites", "idempotency_keys", "audit_logs"} {
		require.Contains(t, Schema(), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
