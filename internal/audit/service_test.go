package audit

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

func seededLog(t *testing.T) *MemoryLog {
	t.Helper()
	log := NewMemoryLog(nil)
	base := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	entries := []shared.AuditLog{
		{ActorID: "u1", Action: "stock.in", Entity: "movement", EntityID: "m1", At: base},
		{ActorID: "u2", Action: "stock.transfer", Entity: "transfer", EntityID: "t1", At: base.Add(time.Hour)},
		{ActorID: "u1", Action: "stock.out", Entity: "movement", EntityID: "m2", At: base.Add(2 * time.Hour), Meta: map[string]any{"qty": 3}},
	}
	for _, e := range entries {
		require.NoError(t, log.Record(context.Background(), e))
	}
	return log
}

func TestTimelinePaging(t *testing.T) {
	svc := NewService(seededLog(t))

	first, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Rows, 2)
	require.Equal(t, "m2", first.Rows[0].EntityID)
	require.True(t, first.Paging.HasNext)
	require.Equal(t, 2, first.Paging.NextPage)

	second, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, second.Rows, 1)
	require.Equal(t, "m1", second.Rows[0].EntityID)
	require.False(t, second.Paging.HasNext)
	require.Equal(t, 1, second.Paging.PrevPage)
}

func TestTimelineFilters(t *testing.T) {
	svc := NewService(seededLog(t))

	rows, err := svc.Export(context.Background(), TimelineFilters{Actor: " u1 ", Entity: "movement"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, 3, rows[0].Meta["qty"])

	rows, err = svc.Export(context.Background(), TimelineFilters{
		From: time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "t1", rows[0].EntityID)
}

func TestMemoryLogRejectsIncompleteEntries(t *testing.T) {
	err := NewMemoryLog(nil).Record(context.Background(), shared.AuditLog{Action: "stock.in"})
	require.Error(t, err)
}

func TestTimelineQueryBuildsFilters(t *testing.T) {
	query, args := timelineQuery(Window{Actor: "u1", Action: "stock.in", Offset: 20, Limit: 21})
	require.Contains(t, query, "WHERE actor_id = @actor AND action = @action")
	require.Contains(t, query, "ORDER BY occurred_at DESC, id DESC LIMIT 21 OFFSET 20")
	require.Len(t, args, 1)
	named, ok := args[0].(pgx.NamedArgs)
	require.True(t, ok)
	require.Equal(t, "u1", named["actor"])

	query, _ = timelineQuery(Window{})
	require.NotContains(t, query, "WHERE")
}

func TestServiceWithoutRepository(t *testing.T) {
	_, err := NewService(nil).Timeline(context.Background(), TimelineFilters{})
	require.Error(t, err)
}
