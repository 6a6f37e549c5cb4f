package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TrailRepository provides read access to audit_logs.
type TrailRepository interface {
	TrailWindow(ctx context.Context, filters TrailFilters, offset, limit int) ([]Entry, error)
}

// Service coordinates audit trail reads.
type Service struct {
	repo TrailRepository
}

// NewService builds a trail service.
func NewService(repo TrailRepository) *Service {
	return &Service{repo: repo}
}

// Trail returns entries for a resource, newest first, with paging.
func (s *Service) Trail(ctx context.Context, filters TrailFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize
	rows, err := s.repo.TrailWindow(ctx, filters, offset, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// PGTrailRepository reads audit_logs from PostgreSQL.
type PGTrailRepository struct {
	pool *pgxpool.Pool
}

// NewPGTrailRepository constructs a repository.
func NewPGTrailRepository(pool *pgxpool.Pool) *PGTrailRepository {
	return &PGTrailRepository{pool: pool}
}

var _ TrailRepository = (*PGTrailRepository)(nil)

// TrailWindow returns a page of entries matching the filters.
func (r *PGTrailRepository) TrailWindow(ctx context.Context, filters TrailFilters, offset, limit int) ([]Entry, error) {
	conds := []string{"TRUE"}
	args := []any{}
	n := 1
	add := func(cond string, value any) {
		conds = append(conds, fmt.Sprintf(cond, n))
		args = append(args, value)
		n++
	}
	if v := strings.TrimSpace(filters.EntityID); v != "" {
		add("entity_id = $%d", v)
	}
	if v := strings.TrimSpace(filters.Entity); v != "" {
		add("entity = $%d", v)
	}
	if v := strings.TrimSpace(filters.Action); v != "" {
		add("action = $%d", v)
	}
	query := fmt.Sprintf(
		`SELECT id, action, entity, entity_id, actor_id, diff, meta, occurred_at
		 FROM audit_logs WHERE %s ORDER BY occurred_at DESC OFFSET $%d LIMIT $%d`,
		strings.Join(conds, " AND "), n, n+1)
	args = append(args, offset, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var diffJSON, metaJSON []byte
		var at time.Time
		if err := rows.Scan(&e.ID, &e.Action, &e.Entity, &e.EntityID, &e.ActorID, &diffJSON, &metaJSON, &at); err != nil {
			return nil, err
		}
		e.OccurredAt = at
		if len(diffJSON) > 0 {
			_ = json.Unmarshal(diffJSON, &e.Diff)
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &e.Meta)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
