package cli

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/jobs"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "1", Type: task.Type()}, nil
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestTriggerKnownJobs(t *testing.T) {
	enq := &recordingEnqueuer{}
	c := &JobsCLI{client: enq}

	for _, name := range []string{jobs.TaskAnalyticsWarmup, jobs.TaskAnalyticsCacheBump, jobs.TaskIdempotencyCleanup} {
		info, err := c.Trigger(context.Background(), name, 2*time.Hour)
		require.NoError(t, err)
		require.Equal(t, name, info.Type)
	}
	var payload jobs.IdempotencyCleanupPayload
	require.NoError(t, json.Unmarshal(enq.tasks[2].Payload(), &payload))
	require.Equal(t, 2*time.Hour, payload.Retention)

	_, err := c.Trigger(context.Background(), "reports:build", 0)
	require.Error(t, err)
}

func TestInspectQueue(t *testing.T) {
	c := &JobsCLI{inspector: stubInspector{info: &asynq.QueueInfo{Pending: 3, Retry: 1}}}
	stats, err := c.InspectQueue(context.Background())
	require.NoError(t, err)
	require.Equal(t, QueueStats{Queue: jobs.QueueDefault, Pending: 3, Retry: 1}, stats)

	c = &JobsCLI{inspector: stubInspector{err: errors.New("down")}}
	_, err = c.InspectQueue(context.Background())
	require.Error(t, err)
}
