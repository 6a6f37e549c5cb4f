package agreements

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/leasecraft/leasecraft/internal/accesscontrol"
)

// ErrAccessDenied marks an operation the access engine refused. The wrapped
// message carries the decision reason.
var ErrAccessDenied = errors.New("agreements: access denied")

// RepositoryPort defines data access methods for agreements.
type RepositoryPort interface {
	List(ctx context.Context, filter accesscontrol.Filter) ([]Agreement, error)
	Get(ctx context.Context, id int64) (Agreement, error)
	Create(ctx context.Context, a Agreement) (Agreement, error)
	Update(ctx context.Context, a Agreement) (Agreement, error)
	Delete(ctx context.Context, id int64) error
}

// AccessEngine is the slice of the decision engine the service needs.
type AccessEngine interface {
	CheckAccess(ctx context.Context, principalID int64, record accesscontrol.Record, action accesscontrol.Action) (accesscontrol.Decision, error)
	ScopeQuery(ctx context.Context, principalID int64, resourceType string, base accesscontrol.Filter) (accesscontrol.Filter, error)
}

// Auditor records agreement mutations, best-effort.
type Auditor interface {
	Record(ctx context.Context, action, entity, entityID string, actorID int64, diff, meta map[string]any) error
}

// Service handles agreement business logic behind the access engine. Every
// single-record operation goes through CheckAccess; listings go through
// ScopeQuery so a principal with only own-scoped view sees only owned rows and
// a principal with neither scope sees none.
type Service struct {
	repo    RepositoryPort
	engine  AccessEngine
	auditor Auditor
}

// NewService builds Service instance. auditor may be nil.
func NewService(repo RepositoryPort, engine AccessEngine, auditor Auditor) *Service {
	return &Service{repo: repo, engine: engine, auditor: auditor}
}

// List returns the agreements the principal may see.
func (s *Service) List(ctx context.Context, principalID int64, base accesscontrol.Filter) ([]Agreement, error) {
	scoped, err := s.engine.ScopeQuery(ctx, principalID, accesscontrol.ResourceAgreement, base)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scoped)
}

// Get fetches one agreement if the principal may view it.
func (s *Service) Get(ctx context.Context, principalID, id int64) (Agreement, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Agreement{}, err
	}
	decision, err := s.engine.CheckAccess(ctx, principalID, a.AccessRecord(), accesscontrol.ActionView)
	if err != nil {
		return Agreement{}, err
	}
	if !decision.Allowed {
		return Agreement{}, fmt.Errorf("%w: %s", ErrAccessDenied, decision.Reason)
	}
	return a, nil
}

// Create drafts a new agreement owned by its creator unless an explicit
// customer is attached.
func (s *Service) Create(ctx context.Context, principalID int64, a Agreement) (Agreement, error) {
	if strings.TrimSpace(a.Title) == "" {
		return Agreement{}, errors.New("agreements: title required")
	}
	a.CreatedBy = principalID
	if a.CustomerID == nil && a.UserID == nil && a.OwnerID == nil {
		owner := principalID
		a.OwnerID = &owner
	}
	if a.Status == "" {
		a.Status = StatusDraft
	}
	decision, err := s.engine.CheckAccess(ctx, principalID, a.AccessRecord(), accesscontrol.ActionEdit)
	if err != nil {
		return Agreement{}, err
	}
	if !decision.Allowed {
		return Agreement{}, fmt.Errorf("%w: %s", ErrAccessDenied, decision.Reason)
	}
	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return Agreement{}, err
	}
	s.recordAudit(ctx, "agreement.create", created.ID, principalID,
		map[string]any{"after": map[string]any{"title": created.Title, "status": string(created.Status)}})
	return created, nil
}

// Update rewrites an agreement if the principal may edit it.
func (s *Service) Update(ctx context.Context, principalID int64, a Agreement) (Agreement, error) {
	current, err := s.repo.Get(ctx, a.ID)
	if err != nil {
		return Agreement{}, err
	}
	decision, err := s.engine.CheckAccess(ctx, principalID, current.AccessRecord(), accesscontrol.ActionEdit)
	if err != nil {
		return Agreement{}, err
	}
	if !decision.Allowed {
		return Agreement{}, fmt.Errorf("%w: %s", ErrAccessDenied, decision.Reason)
	}
	updated, err := s.repo.Update(ctx, a)
	if err != nil {
		return Agreement{}, err
	}
	s.recordAudit(ctx, "agreement.update", updated.ID, principalID, map[string]any{
		"before": map[string]any{"title": current.Title, "status": string(current.Status)},
		"after":  map[string]any{"title": updated.Title, "status": string(updated.Status)},
	})
	return updated, nil
}

// Delete removes an agreement if the principal may delete it.
func (s *Service) Delete(ctx context.Context, principalID, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	decision, err := s.engine.CheckAccess(ctx, principalID, current.AccessRecord(), accesscontrol.ActionDelete)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", ErrAccessDenied, decision.Reason)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "agreement.delete", id, principalID,
		map[string]any{"before": map[string]any{"title": current.Title}})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id, actorID int64, diff map[string]any) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Record(ctx, action, "agreement", strconv.FormatInt(id, 10), actorID, diff, nil)
}
