package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/odyssey-erp/erp-api/internal/masterdata/products"
)

// OverdueSweeper marks past-due invoices Overdue.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
}

// LowStockSource lists products needing reorder.
type LowStockSource interface {
	LowStock(ctx context.Context) ([]products.Product, error)
}

// KeyCleaner deletes idempotency keys older than a retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Maintenance holds the dependencies of the scheduled tasks.
type Maintenance struct {
	Invoices             OverdueSweeper
	Stock                LowStockSource
	Keys                 KeyCleaner
	IdempotencyRetention time.Duration
}

// Handlers returns the task handlers wrapped by runner.
func (m *Maintenance) Handlers(runner *Runner) []TaskHandler {
	return []TaskHandler{
		{Type: TaskOverdueSweep, Handler: runner.Wrap(TaskOverdueSweep, m.sweepOverdue)},
		{Type: TaskLowStockReport, Handler: runner.Wrap(TaskLowStockReport, m.reportLowStock)},
		{Type: TaskIdempotencyCleanup, Handler: runner.Wrap(TaskIdempotencyCleanup, m.cleanupKeys)},
	}
}

func (m *Maintenance) sweepOverdue(ctx context.Context, _ *slog.Logger) (int64, error) {
	return m.Invoices.SweepOverdue(ctx)
}

func (m *Maintenance) reportLowStock(ctx context.Context, logger *slog.Logger) (int64, error) {
	items, err := m.Stock.LowStock(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range items {
		logger.Warn("product needs reorder",
			slog.String("sku", p.SKU),
			slog.String("name", p.Name),
			slog.Int("stock", p.Stock),
			slog.Int("reorder_level", p.ReorderLevel))
	}
	return int64(len(items)), nil
}

func (m *Maintenance) cleanupKeys(ctx context.Context, _ *slog.Logger) (int64, error) {
	retention := m.IdempotencyRetention
	if retention <= 0 {
		retention = 72 * time.Hour
	}
	return m.Keys.Cleanup(ctx, retention)
}
