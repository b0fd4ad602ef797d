package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/inventory"
)

// LedgerEventEnqueuer schedules a dashboard warmup for the locations touched
// by each committed ledger operation.
type LedgerEventEnqueuer struct {
	client *Client
	window time.Duration
	logger *slog.Logger
}

// NewLedgerEventEnqueuer returns an inventory.EventHandler backed by client.
func NewLedgerEventEnqueuer(client *Client, window time.Duration, logger *slog.Logger) *LedgerEventEnqueuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerEventEnqueuer{client: client, window: window, logger: logger}
}

// HandleLedgerCommitted implements inventory.EventHandler.
func (e *LedgerEventEnqueuer) HandleLedgerCommitted(ctx context.Context, evt inventory.CommittedEvent) error {
	if e == nil || e.client == nil || len(evt.Locations) == 0 {
		return nil
	}
	keys := make([]string, 0, len(evt.Locations))
	seen := make(map[string]struct{}, len(evt.Locations))
	for _, loc := range evt.Locations {
		key := loc.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if _, err := e.client.EnqueueWarmup(ctx, e.window, keys...); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		e.logger.Warn("enqueue analytics warmup", slog.String("record", evt.RecordID), slog.Any("error", err))
		return err
	}
	return nil
}

var _ inventory.EventHandler = (*LedgerEventEnqueuer)(nil)
