package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/erp-api/internal/jobs"
	"github.com/odyssey-erp/erp-api/internal/platform/lock"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

const defaultLockTTL = 10 * time.Minute

// Runner executes task bodies under a single-runner lock and records job
// metrics.
type Runner struct {
	Locker  *lock.Locker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	LockTTL time.Duration
}

// Wrap adapts body into an asynq handler for taskType. body returns the number
// of rows it touched.
func (r *Runner) Wrap(taskType string, body func(ctx context.Context, logger *slog.Logger) (int64, error)) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		payload, err := decodePayload(t)
		if err != nil {
			return err
		}
		logger := r.logger().With(slog.String("task", taskType))
		if !payload.ScheduledFor.IsZero() {
			logger = logger.With(slog.Time("scheduled_for", payload.ScheduledFor))
		}

		tracker := r.Metrics.Track(taskType)
		err = r.Locker.Run(ctx, shared.JobLockKey(taskType), r.lockTTL(), func(ctx context.Context) error {
			count, err := body(ctx, logger)
			if err != nil {
				return err
			}
			r.Metrics.AddItems(taskType, count)
			logger.Info("job finished", slog.Int64("items", count))
			return nil
		})
		if errors.Is(err, lock.ErrNotObtained) {
			logger.Info("job already running elsewhere, skipping")
			return tracker.End(nil)
		}
		if err != nil {
			logger.Error("job failed", slog.Any("error", err))
		}
		return tracker.End(err)
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) lockTTL() time.Duration {
	if r.LockTTL <= 0 {
		return defaultLockTTL
	}
	return r.LockTTL
}
