package analytics

import (
	"time"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/inventory"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
)

// TrendBucket conveys in/out quantities of one contiguous time slice.
type TrendBucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	In    int64     `json:"in"`
	Out   int64     `json:"out"`
	Net   int64     `json:"net"`
}

// Buckets returns the contiguous, gap-free buckets of r ending with the
// bucket containing now. End is exclusive.
func (r TrendRange) Buckets(now time.Time) []TrendBucket {
	today := startOfDay(now)
	var (
		count int
		first time.Time
		step  func(time.Time) time.Time
		label func(time.Time) string
	)
	switch r {
	case TrendMonthly12:
		count = 12
		month := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		first = month.AddDate(0, -(count - 1), 0)
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
		label = func(t time.Time) string { return t.Format("2006-01") }
	case TrendYearly5:
		count = 5
		year := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
		first = year.AddDate(-(count - 1), 0, 0)
		step = func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }
		label = func(t time.Time) string { return t.Format("2006") }
	default:
		count = 30
		first = today.AddDate(0, 0, -(count - 1))
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
		label = func(t time.Time) string { return t.Format("2006-01-02") }
	}
	buckets := make([]TrendBucket, count)
	start := first
	for i := range buckets {
		end := step(start)
		buckets[i] = TrendBucket{Label: label(start), Start: start, End: end}
		start = end
	}
	return buckets
}

// Start is the beginning of the first bucket of r.
func (r TrendRange) Start(now time.Time) time.Time {
	return r.Buckets(now)[0].Start
}

// Trend attributes every visible in/out movement to exactly one bucket.
// Opname adjustments are not counted.
func (a *Aggregator) Trend(r TrendRange, f location.Filter) []TrendBucket {
	buckets := r.Buckets(a.now)
	for _, m := range a.snap.Movements {
		if m.Type == inventory.MovementOpname || !a.scope.Visible(f, m.Location()) {
			continue
		}
		at := m.CreatedAt.In(a.now.Location())
		i := bucketIndex(buckets, at)
		if i < 0 {
			continue
		}
		switch m.Type {
		case inventory.MovementIn:
			buckets[i].In += m.Qty
		case inventory.MovementOut:
			buckets[i].Out += m.Qty
		}
	}
	for i := range buckets {
		buckets[i].Net = buckets[i].In - buckets[i].Out
	}
	return buckets
}

func bucketIndex(buckets []TrendBucket, at time.Time) int {
	lo, hi := 0, len(buckets)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case at.Before(buckets[mid].Start):
			hi = mid - 1
		case !at.Before(buckets[mid].End):
			lo = mid + 1
		default:
			return mid
		}
	}
	return -1
}
