package jobs

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueSweep persists the Overdue status on past-due invoices.
	TaskOverdueSweep = "invoices:overdue-sweep"
	// TaskLowStockReport reports products at or below their reorder level.
	TaskLowStockReport = "inventory:low-stock-report"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency-cleanup"
)

// TaskTypes lists every task the worker handles.
var TaskTypes = []string{TaskOverdueSweep, TaskLowStockReport, TaskIdempotencyCleanup}

// SchedulePayload carries scheduling metadata shared by the maintenance
// tasks.
type SchedulePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTask builds a task of a known type scheduled for at.
func NewTask(taskType string, at time.Time) (*asynq.Task, error) {
	if !slices.Contains(TaskTypes, taskType) {
		return nil, fmt.Errorf("jobs: unknown task %q", taskType)
	}
	body, err := json.Marshal(SchedulePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

func decodePayload(t *asynq.Task) (SchedulePayload, error) {
	var payload SchedulePayload
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("jobs: decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return payload, nil
}
