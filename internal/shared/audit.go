package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID int64
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == 0 {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	var actor *int64
	if log.ActorID > 0 {
		actor = &log.ActorID
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`,
		actor, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, log AuditLog) error
}

// AuditTrail is what services write audit entries through. Actions use the
// entity.action form, e.g. "sales_order.create". A failed write is logged at
// Warn and never fails the request.
type AuditTrail struct {
	recorder AuditRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuditTrail wraps recorder. logger may be nil.
func NewAuditTrail(recorder AuditRecorder, logger *slog.Logger) *AuditTrail {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditTrail{recorder: recorder, logger: logger, now: time.Now}
}

// Write records entry, stamping At when the caller left it empty.
func (t *AuditTrail) Write(ctx context.Context, entry AuditLog) {
	if t == nil || t.recorder == nil {
		return
	}
	if entry.At.IsZero() {
		entry.At = t.now()
	}
	if err := t.recorder.Record(ctx, entry); err != nil {
		t.logger.WarnContext(ctx, "audit record failed",
			slog.String("action", entry.Action),
			slog.String("entity", entry.Entity),
			slog.Int64("entity_id", entry.EntityID),
			slog.Any("error", err))
	}
}
