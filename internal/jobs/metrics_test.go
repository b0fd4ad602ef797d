package jobmetrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	at := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return at }

	require.NoError(t, m.Track("analytics:warmup").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("analytics:warmup").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("analytics:warmup", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("analytics:warmup", "failure")))
	require.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.lastSuccess.WithLabelValues("analytics:warmup")))
}

func TestFailureKeepsLastSuccess(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	require.Error(t, m.Track("idempotency:cleanup").End(errors.New("down")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.lastSuccess.WithLabelValues("idempotency:cleanup")))
}

func TestNilMetricsTrackerIsInert(t *testing.T) {
	var m *Metrics
	err := errors.New("kept")
	require.Equal(t, err, m.Track("x").End(err))
}
