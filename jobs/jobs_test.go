package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/erp-api/internal/jobs"
	"github.com/odyssey-erp/erp-api/internal/masterdata/products"
	"github.com/odyssey-erp/erp-api/internal/platform/lock"
	"github.com/odyssey-erp/erp-api/internal/shared"
	_ "github.com/odyssey-erp/erp-api/testing"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSweeper struct {
	calls int
	count int64
	err   error
}

func (f *fakeSweeper) SweepOverdue(context.Context) (int64, error) {
	f.calls++
	return f.count, f.err
}

type fakeStock struct{ items []products.Product }

func (f fakeStock) LowStock(context.Context) ([]products.Product, error) {
	return f.items, nil
}

type fakeKeys struct{ olderThan time.Duration }

func (f *fakeKeys) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return 7, nil
}

func newRunner(t *testing.T) (*Runner, *prometheus.Registry) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	reg := prometheus.NewRegistry()
	return &Runner{
		Locker:  lock.New(rdb),
		Logger:  quietLogger,
		Metrics: jobmetrics.NewMetrics(reg),
	}, reg
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
	next:
		for _, m := range fam.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func handlerFor(t *testing.T, handlers []TaskHandler, taskType string) asynq.HandlerFunc {
	t.Helper()
	for _, h := range handlers {
		if h.Type == taskType {
			return h.Handler
		}
	}
	t.Fatalf("no handler for %s", taskType)
	return nil
}

func TestNewTaskRejectsUnknownType(t *testing.T) {
	_, err := NewTask("invoices:unknown", time.Now())
	require.Error(t, err)

	task, err := NewTask(TaskOverdueSweep, time.Date(2026, 3, 15, 0, 15, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, TaskOverdueSweep, task.Type())

	var payload SchedulePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, 2026, payload.ScheduledFor.Year())
}

func TestMaintenanceHandlersRunBodies(t *testing.T) {
	runner, reg := newRunner(t)
	sweeper := &fakeSweeper{count: 4}
	keys := &fakeKeys{}
	m := &Maintenance{
		Invoices: sweeper,
		Stock: fakeStock{items: []products.Product{
			{SKU: "PROD-003", Name: "Office Chair", Stock: 3, ReorderLevel: 5},
		}},
		Keys: keys,
	}
	handlers := m.Handlers(runner)
	require.Len(t, handlers, len(TaskTypes))

	ctx := context.Background()
	for _, taskType := range TaskTypes {
		task, err := NewTask(taskType, time.Now())
		require.NoError(t, err)
		require.NoError(t, handlerFor(t, handlers, taskType)(ctx, task))
	}

	require.Equal(t, 1, sweeper.calls)
	require.Equal(t, 72*time.Hour, keys.olderThan)
	require.Equal(t, 4.0, counterValue(t, reg, "erp_job_items_total", map[string]string{"job": TaskOverdueSweep}))
	require.Equal(t, 1.0, counterValue(t, reg, "erp_job_items_total", map[string]string{"job": TaskLowStockReport}))
	require.Equal(t, 1.0, counterValue(t, reg, "erp_jobs_total", map[string]string{"job": TaskIdempotencyCleanup, "status": "success"}))
}

func TestRunnerSkipsWhenLockHeld(t *testing.T) {
	runner, reg := newRunner(t)
	sweeper := &fakeSweeper{count: 1}
	handler := (&Maintenance{Invoices: sweeper}).Handlers(runner)[0].Handler
	task, err := NewTask(TaskOverdueSweep, time.Now())
	require.NoError(t, err)

	ctx := context.Background()
	err = runner.Locker.Run(ctx, shared.JobLockKey(TaskOverdueSweep), time.Minute, func(ctx context.Context) error {
		return handler(ctx, task)
	})
	require.NoError(t, err)
	require.Zero(t, sweeper.calls)
	require.Equal(t, 1.0, counterValue(t, reg, "erp_jobs_total", map[string]string{"job": TaskOverdueSweep, "status": "success"}))

	require.NoError(t, handler(ctx, task))
	require.Equal(t, 1, sweeper.calls)
}

func TestRunnerRecordsFailure(t *testing.T) {
	runner, reg := newRunner(t)
	boom := errors.New("boom")
	handler := (&Maintenance{Invoices: &fakeSweeper{err: boom}}).Handlers(runner)[0].Handler
	task, err := NewTask(TaskOverdueSweep, time.Now())
	require.NoError(t, err)

	require.ErrorIs(t, handler(context.Background(), task), boom)
	require.Equal(t, 1.0, counterValue(t, reg, "erp_jobs_failures_total", map[string]string{"job": TaskOverdueSweep}))
}

func TestRunnerRejectsMalformedPayload(t *testing.T) {
	runner, _ := newRunner(t)
	sweeper := &fakeSweeper{}
	handler := (&Maintenance{Invoices: sweeper}).Handlers(runner)[0].Handler

	err := handler(context.Background(), asynq.NewTask(TaskOverdueSweep, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Zero(t, sweeper.calls)

	require.NoError(t, handler(context.Background(), asynq.NewTask(TaskOverdueSweep, nil)))
	require.Equal(t, 1, sweeper.calls)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func serveHealth(t *testing.T, inspector QueueInspector) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(inspector, quietLogger).MountRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rec
}

func TestHealthReportsQueueDepth(t *testing.T) {
	rec := serveHealth(t, fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4, Retry: 1}})
	require.Equal(t, http.StatusOK, rec.Code)

	var body QueueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, QueueDefault, body.Queue)
	require.Equal(t, 4, body.Pending)
	require.Equal(t, 1, body.Retry)
}

func TestHealthHandlesMissingQueue(t *testing.T) {
	rec := serveHealth(t, fakeInspector{err: asynq.ErrQueueNotFound})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serveHealth(t, fakeInspector{err: errors.New("redis down")})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
