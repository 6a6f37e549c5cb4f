package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/leasecraft/leasecraft/internal/audit"
)

// AuditRecordJob writes queued audit entries to PostgreSQL.
type AuditRecordJob struct {
	writer *audit.Logger
	logger *slog.Logger
}

// NewAuditRecordJob constructs the job.
func NewAuditRecordJob(writer *audit.Logger, logger *slog.Logger) *AuditRecordJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditRecordJob{writer: writer, logger: logger}
}

// Handle processes TaskAuditRecord tasks. A malformed payload is dropped
// rather than retried; a write error is returned so Asynq retries it, which
// is the only durability audit entries get.
func (j *AuditRecordJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AuditRecordPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger.Warn("audit record payload malformed", slog.Any("error", err))
		return asynq.SkipRetry
	}
	err := j.writer.Insert(ctx, audit.Entry{
		Action:     payload.Action,
		Entity:     payload.Entity,
		EntityID:   payload.EntityID,
		ActorID:    payload.ActorID,
		Diff:       payload.Diff,
		Meta:       payload.Meta,
		OccurredAt: payload.OccurredAt,
	})
	if err != nil {
		j.logger.Warn("audit record write failed", slog.Any("error", err))
	}
	return err
}
