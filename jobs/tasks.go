package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAnalyticsWarmup precomputes dashboard sections into the cache.
	TaskAnalyticsWarmup = "analytics:warmup"
	// TaskAnalyticsCacheBump invalidates every cached aggregate.
	TaskAnalyticsCacheBump = "analytics:cache-bump"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// AnalyticsWarmupPayload selects which locations to warm. An empty list
// warms central, every outlet and the all-locations view.
type AnalyticsWarmupPayload struct {
	Locations []string `json:"locations,omitempty"`
}

// NewAnalyticsWarmupTask constructs the warmup task.
func NewAnalyticsWarmupTask(locations ...string) (*asynq.Task, error) {
	data, err := json.Marshal(AnalyticsWarmupPayload{Locations: locations})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsWarmup, data), nil
}

// NewAnalyticsCacheBumpTask constructs the cache bump task.
func NewAnalyticsCacheBumpTask() *asynq.Task {
	return asynq.NewTask(TaskAnalyticsCacheBump, nil)
}

// IdempotencyCleanupPayload sets how long processed keys are kept.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
