package jobs

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

// AuditEnqueuer satisfies the Auditor contracts around the codebase by
// enqueueing the entry for the background worker instead of writing inline.
// The enqueue happens after the triggering mutation committed; its failure
// surfaces as an error for the caller to log, nothing more.
type AuditEnqueuer struct {
	client *asynq.Client
}

// NewAuditEnqueuer constructs an AuditEnqueuer.
func NewAuditEnqueuer(client *asynq.Client) *AuditEnqueuer {
	return &AuditEnqueuer{client: client}
}

// Record enqueues the audit entry.
func (r *AuditEnqueuer) Record(ctx context.Context, action, entity, entityID string, actorID int64, diff, meta map[string]any) error {
	task, err := NewAuditRecordTask(AuditRecordPayload{
		Action:     action,
		Entity:     entity,
		EntityID:   entityID,
		ActorID:    actorID,
		Diff:       diff,
		Meta:       meta,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}
