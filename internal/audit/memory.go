package audit

import (
	"context"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// MemoryLog records audit entries in process memory and mirrors them to a
// structured logger. It backs the memory store deployment.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []TimelineRow
	mirror  *shared.SlogAuditLogger
	now     func() time.Time
}

// NewMemoryLog builds an empty log. A nil logger disables mirroring.
func NewMemoryLog(logger *slog.Logger) *MemoryLog {
	return &MemoryLog{mirror: shared.NewSlogAuditLogger(logger), now: time.Now}
}

// Record implements the ledger audit port.
func (l *MemoryLog) Record(ctx context.Context, entry shared.AuditLog) error {
	if err := l.mirror.Record(ctx, entry); err != nil {
		return err
	}
	at := entry.At
	if at.IsZero() {
		at = l.now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, TimelineRow{
		At:       at,
		Actor:    entry.ActorID,
		Action:   entry.Action,
		Entity:   entry.Entity,
		EntityID: entry.EntityID,
		Meta:     maps.Clone(entry.Meta),
	})
	return nil
}

// AuditTimeline implements Repository.
func (l *MemoryLog) AuditTimeline(_ context.Context, window Window) ([]TimelineRow, error) {
	l.mu.RLock()
	matched := make([]TimelineRow, 0, len(l.entries))
	for _, row := range l.entries {
		if window.matches(row) {
			matched = append(matched, row)
		}
	}
	l.mu.RUnlock()

	// Newest first; equal timestamps keep reverse commit order.
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].At.Before(matched[j].At) })
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	if window.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[window.Offset:]
	if window.Limit > 0 && len(matched) > window.Limit {
		matched = matched[:window.Limit]
	}
	return matched, nil
}
