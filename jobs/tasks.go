package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskLedgerVerify compares stored balances with journal sums.
	TaskLedgerVerify = "ledger:verify"
	// TaskDashboardWarmup fills the dashboard cache for the current month.
	TaskDashboardWarmup = "dashboard:warmup"
	// TaskIdempotencyCleanup drops idempotency keys past retention.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// TaskTypes lists every task the worker handles.
var TaskTypes = []string{TaskLedgerVerify, TaskDashboardWarmup, TaskIdempotencyCleanup}

// CleanupPayload overrides the configured retention when set.
type CleanupPayload struct {
	Retention time.Duration `json:"retention,omitempty"`
}

// NewTask builds a task of a known type with an empty payload.
func NewTask(taskType string) (*asynq.Task, error) {
	switch taskType {
	case TaskLedgerVerify, TaskDashboardWarmup:
		return asynq.NewTask(taskType, nil, asynq.MaxRetry(3), asynq.Timeout(10*time.Minute)), nil
	case TaskIdempotencyCleanup:
		return NewCleanupTask(CleanupPayload{})
	default:
		return nil, fmt.Errorf("jobs: unknown task type %q", taskType)
	}
}

// NewCleanupTask builds an idempotency cleanup task.
func NewCleanupTask(payload CleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.MaxRetry(3)), nil
}
