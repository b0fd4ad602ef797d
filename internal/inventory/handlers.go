package inventory

import "context"

// EventHandler receives committed ledger events, e.g. to invalidate derived
// analytics caches.
type EventHandler interface {
	HandleLedgerCommitted(ctx context.Context, evt CommittedEvent) error
}

// EventHandlers fans an event out to several handlers.
type EventHandlers []EventHandler

// HandleLedgerCommitted implements EventHandler and returns the first error.
func (hs EventHandlers) HandleLedgerCommitted(ctx context.Context, evt CommittedEvent) error {
	var first error
	for _, h := range hs {
		if h == nil {
			continue
		}
		if err := h.HandleLedgerCommitted(ctx, evt); err != nil && first == nil {
			first = err
		}
	}
	return first
}
