package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Logger writes records into audit_logs. It satisfies the engine's Auditor
// contract directly for synchronous, post-commit writes.
type Logger struct {
	pool *pgxpool.Pool
}

// NewLogger returns a new Logger.
func NewLogger(pool *pgxpool.Pool) *Logger {
	return &Logger{pool: pool}
}

// Record persists an audit entry.
func (l *Logger) Record(ctx context.Context, action, entity, entityID string, actorID int64, diff, meta map[string]any) error {
	if l == nil || l.pool == nil {
		return errors.New("audit: logger not initialised")
	}
	return l.Insert(ctx, Entry{
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		ActorID:  actorID,
		Diff:     diff,
		Meta:     meta,
	})
}

// Insert appends a fully-formed entry. A missing ID or timestamp is filled in.
func (l *Logger) Insert(ctx context.Context, e Entry) error {
	if e.Action == "" || e.Entity == "" || e.EntityID == "" {
		return errors.New("audit: entry requires action/entity/entity_id")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	diffJSON, err := json.Marshal(e.Diff)
	if err != nil {
		return err
	}
	metaJSON, err := json.Marshal(e.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, action, entity, entity_id, actor_id, diff, meta, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Action, e.Entity, e.EntityID, e.ActorID, diffJSON, metaJSON, e.OccurredAt)
	return err
}
