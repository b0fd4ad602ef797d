package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// Period selects the reporting window of dashboard queries.
type Period string

const (
	PeriodToday      Period = "today"
	PeriodLast7Days  Period = "last7days"
	PeriodLast30Days Period = "last30days"
)

// ErrInvalidPeriod rejects unknown period or trend range names.
var ErrInvalidPeriod = fmt.Errorf("analytics: unknown period: %w", shared.ErrValidation)

// ParsePeriod parses a period name. Empty means today.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PeriodToday, nil
	case PeriodToday, PeriodLast7Days, PeriodLast30Days:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
}

func (p Period) days() int {
	switch p {
	case PeriodLast7Days:
		return 7
	case PeriodLast30Days:
		return 30
	default:
		return 1
	}
}

// Window returns [start, now] for the period. Windows are aligned to
// calendar days in now's location.
func (p Period) Window(now time.Time) (time.Time, time.Time) {
	return startOfDay(now).AddDate(0, 0, -(p.days() - 1)), now
}

// TrendRange selects the bucket layout of trend charts.
type TrendRange string

const (
	TrendDaily30   TrendRange = "last30days-daily"
	TrendMonthly12 TrendRange = "monthly-12"
	TrendYearly5   TrendRange = "yearly-5"
)

// ParseTrendRange parses a trend range name. Empty means daily.
func ParseTrendRange(raw string) (TrendRange, error) {
	switch r := TrendRange(strings.ToLower(strings.TrimSpace(raw))); r {
	case "":
		return TrendDaily30, nil
	case TrendDaily30, TrendMonthly12, TrendYearly5:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
}

// InactivityWindow is fixed regardless of the requested period.
const InactivityWindow = 30 * 24 * time.Hour

// NoMovementDays is reported for products that never moved.
const NoMovementDays = 999

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
