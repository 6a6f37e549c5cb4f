package accesscontrol

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Service carries the administrative operations: the permission catalog, role
// management and per-principal overrides. Every mutation is followed by a
// best-effort audit record and a cache version bump; neither can fail the
// mutation itself.
type Service struct {
	store    Store
	auditor  Auditor
	versions *VersionCache
	logger   *slog.Logger
}

// NewService constructs a Service. auditor and versions may be nil.
func NewService(store Store, auditor Auditor, versions *VersionCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, auditor: auditor, versions: versions, logger: logger}
}

// RegisterPermission adds a permission code to the catalog.
func (s *Service) RegisterPermission(ctx context.Context, actorID int64, code, description string) (Permission, error) {
	code = strings.TrimSpace(strings.ToLower(code))
	if code == "" {
		return Permission{}, errors.New("accesscontrol: permission code required")
	}
	perm, err := s.store.CreatePermission(ctx, code, strings.TrimSpace(description))
	if err != nil {
		return Permission{}, err
	}
	s.finishMutation(ctx, actorID, "permission.register", "permission", perm.Code,
		map[string]any{"after": map[string]any{"code": perm.Code, "description": perm.Description}}, nil)
	return perm, nil
}

// GetPermission fetches a permission by code.
func (s *Service) GetPermission(ctx context.Context, code string) (Permission, error) {
	return s.store.GetPermission(ctx, strings.TrimSpace(strings.ToLower(code)))
}

// ListPermissions returns the full catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// UpdatePermissionDescription edits the only mutable field of a permission.
func (s *Service) UpdatePermissionDescription(ctx context.Context, actorID int64, code, description string) (Permission, error) {
	before, err := s.store.GetPermission(ctx, code)
	if err != nil {
		return Permission{}, err
	}
	perm, err := s.store.UpdatePermissionDescription(ctx, code, strings.TrimSpace(description))
	if err != nil {
		return Permission{}, err
	}
	s.finishMutation(ctx, actorID, "permission.update", "permission", perm.Code,
		map[string]any{"before": map[string]any{"description": before.Description}, "after": map[string]any{"description": perm.Description}}, nil)
	return perm, nil
}

// CreateRole inserts a new role. isBypass marks the distinguished super-admin
// role and is immutable afterwards.
func (s *Service) CreateRole(ctx context.Context, actorID int64, name, description string, isBypass bool) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("accesscontrol: role name required")
	}
	role, err := s.store.CreateRole(ctx, name, strings.TrimSpace(description), isBypass)
	if err != nil {
		return Role{}, err
	}
	s.finishMutation(ctx, actorID, "role.create", "role", strconv.FormatInt(role.ID, 10),
		map[string]any{"after": map[string]any{"name": role.Name, "is_bypass": role.IsBypass}}, nil)
	return role, nil
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.store.GetRole(ctx, id)
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// DeleteRole removes a role. Principals still holding the role block deletion
// with ErrRoleInUse; callers must reassign them first.
func (s *Service) DeleteRole(ctx context.Context, actorID, id int64) error {
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.finishMutation(ctx, actorID, "role.delete", "role", strconv.FormatInt(id, 10),
		map[string]any{"before": map[string]any{"name": role.Name}}, nil)
	return nil
}

// AssignPermission attaches a permission to a role. Idempotent.
func (s *Service) AssignPermission(ctx context.Context, actorID, roleID int64, permissionCode string) error {
	perm, err := s.store.GetPermission(ctx, permissionCode)
	if err != nil {
		return err
	}
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.store.AttachPermission(ctx, roleID, perm.ID); err != nil {
		return err
	}
	s.finishMutation(ctx, actorID, "role.permission.assign", "role", strconv.FormatInt(roleID, 10),
		map[string]any{"after": map[string]any{"permission": perm.Code}}, nil)
	return nil
}

// RevokePermission detaches a permission from a role. Idempotent.
func (s *Service) RevokePermission(ctx context.Context, actorID, roleID int64, permissionCode string) error {
	perm, err := s.store.GetPermission(ctx, permissionCode)
	if err != nil {
		return err
	}
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.store.DetachPermission(ctx, roleID, perm.ID); err != nil {
		return err
	}
	s.finishMutation(ctx, actorID, "role.permission.revoke", "role", strconv.FormatInt(roleID, 10),
		map[string]any{"before": map[string]any{"permission": perm.Code}}, nil)
	return nil
}

// PermissionsOf returns the permission codes attached to a role.
func (s *Service) PermissionsOf(ctx context.Context, roleID int64) ([]string, error) {
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.store.RolePermissionCodes(ctx, roleID)
}

// AssignRole grants a role to a principal. Idempotent.
func (s *Service) AssignRole(ctx context.Context, actorID, principalID, roleID int64) error {
	if _, err := s.store.GetPrincipal(ctx, principalID); err != nil {
		return err
	}
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.store.AssignRole(ctx, principalID, roleID); err != nil {
		return err
	}
	s.finishMutation(ctx, actorID, "principal.role.assign", "principal", strconv.FormatInt(principalID, 10),
		map[string]any{"after": map[string]any{"role_id": roleID}}, nil)
	return nil
}

// RemoveRole removes a role from a principal. Idempotent.
func (s *Service) RemoveRole(ctx context.Context, actorID, principalID, roleID int64) error {
	if _, err := s.store.GetPrincipal(ctx, principalID); err != nil {
		return err
	}
	if err := s.store.RemoveRole(ctx, principalID, roleID); err != nil {
		return err
	}
	s.finishMutation(ctx, actorID, "principal.role.remove", "principal", strconv.FormatInt(principalID, 10),
		map[string]any{"before": map[string]any{"role_id": roleID}}, nil)
	return nil
}

// SetOverride records a manual ADD or REMOVE for a (principal, permission)
// pair, replacing whatever override existed before. This is the only override
// mutation; there is no separate update.
func (s *Service) SetOverride(ctx context.Context, actorID, principalID int64, permissionCode string, kind OverrideKind) error {
	if !kind.Valid() {
		return ErrInvalidOverrideKind
	}
	if _, err := s.store.GetPrincipal(ctx, principalID); err != nil {
		return err
	}
	perm, err := s.store.GetPermission(ctx, permissionCode)
	if err != nil {
		return err
	}
	previous, err := s.store.OverridesFor(ctx, principalID)
	if err != nil {
		return err
	}
	if err := s.store.UpsertOverride(ctx, principalID, perm.Code, kind, actorID); err != nil {
		return err
	}
	diff := map[string]any{"after": map[string]any{"permission": perm.Code, "kind": string(kind)}}
	if prev, ok := previous[perm.Code]; ok {
		diff["before"] = map[string]any{"permission": perm.Code, "kind": string(prev)}
	}
	s.finishMutation(ctx, actorID, "override.set", "principal", strconv.FormatInt(principalID, 10), diff, nil)
	return nil
}

// ClearOverride deletes the override for a (principal, permission) pair,
// reverting the principal to role-only behavior for that permission.
func (s *Service) ClearOverride(ctx context.Context, actorID, principalID int64, permissionCode string) error {
	if _, err := s.store.GetPrincipal(ctx, principalID); err != nil {
		return err
	}
	perm, err := s.store.GetPermission(ctx, permissionCode)
	if err != nil {
		return err
	}
	previous, err := s.store.OverridesFor(ctx, principalID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteOverride(ctx, principalID, perm.Code); err != nil {
		return err
	}
	diff := map[string]any{}
	if prev, ok := previous[perm.Code]; ok {
		diff["before"] = map[string]any{"permission": perm.Code, "kind": string(prev)}
	}
	s.finishMutation(ctx, actorID, "override.clear", "principal", strconv.FormatInt(principalID, 10), diff, nil)
	return nil
}

// OverridesFor returns the principal's current override map.
func (s *Service) OverridesFor(ctx context.Context, principalID int64) (map[string]OverrideKind, error) {
	if _, err := s.store.GetPrincipal(ctx, principalID); err != nil {
		return nil, err
	}
	return s.store.OverridesFor(ctx, principalID)
}

// finishMutation runs after a successful commit: it bumps the cache version so
// no stale resolution survives, then records the audit entry. Failures in
// either step are logged and swallowed; they never roll back the mutation.
func (s *Service) finishMutation(ctx context.Context, actorID int64, action, entity, entityID string, diff, meta map[string]any) {
	if s.versions != nil {
		if err := s.versions.Bump(ctx); err != nil {
			s.logger.Warn("permission cache bump failed", slog.Any("error", err))
		}
	}
	if s.auditor != nil {
		if err := s.auditor.Record(ctx, action, entity, entityID, actorID, diff, meta); err != nil {
			s.logger.Warn("audit write failed",
				slog.String("action", action),
				slog.String("entity", entity),
				slog.String("entity_id", entityID),
				slog.Any("error", err))
		}
	}
}
