package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/store/memory"
)

func TestOpenBackendMemory(t *testing.T) {
	backend, err := OpenBackend(context.Background(), &Config{StoreDriver: StoreMemory}, slog.Default())
	require.NoError(t, err)
	defer backend.Close()

	store, ok := backend.Ledger.(*memory.Store)
	require.True(t, ok)
	require.Same(t, store, backend.MasterData)
	require.Nil(t, backend.Pool)
	require.NoError(t, backend.Idempotency.CheckAndInsert(context.Background(), "k", "inventory"))
}

func TestOpenBackendUnknownDriver(t *testing.T) {
	_, err := OpenBackend(context.Background(), &Config{StoreDriver: "sqlite"}, slog.Default())
	require.Error(t, err)
}
