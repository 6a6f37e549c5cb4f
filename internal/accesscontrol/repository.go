package accesscontrol

import "context"

// Store defines the persistence operations the engine needs. The relational
// schema behind it (permissions, roles, role_permissions, principal_roles,
// permission_overrides) is owned by the surrounding application; the engine
// only consumes it through this interface.
type Store interface {
	// Catalog.
	CreatePermission(ctx context.Context, code, description string) (Permission, error)
	GetPermission(ctx context.Context, code string) (Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	UpdatePermissionDescription(ctx context.Context, code, description string) (Permission, error)

	// Roles.
	CreateRole(ctx context.Context, name, description string, isBypass bool) (Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	// DeleteRole fails with ErrRoleInUse while any principal holds the role.
	DeleteRole(ctx context.Context, id int64) error
	// AttachPermission and DetachPermission are idempotent.
	AttachPermission(ctx context.Context, roleID, permissionID int64) error
	DetachPermission(ctx context.Context, roleID, permissionID int64) error
	RolePermissionCodes(ctx context.Context, roleID int64) ([]string, error)

	// Principals.
	GetPrincipal(ctx context.Context, id int64) (Principal, error)
	PrincipalRoles(ctx context.Context, principalID int64) ([]Role, error)
	// AssignRole and RemoveRole are idempotent.
	AssignRole(ctx context.Context, principalID, roleID int64) error
	RemoveRole(ctx context.Context, principalID, roleID int64) error

	// Overrides. UpsertOverride atomically replaces any existing override for
	// the (principal, permission) pair; the pair never holds two rows.
	UpsertOverride(ctx context.Context, principalID int64, permissionCode string, kind OverrideKind, grantedBy int64) error
	DeleteOverride(ctx context.Context, principalID int64, permissionCode string) error
	OverridesFor(ctx context.Context, principalID int64) (map[string]OverrideKind, error)
}

// Auditor records permission-affecting mutations. Implementations must be safe
// to call after the mutation committed; the engine treats failures as
// observability loss, not as a reason to fail the mutation.
type Auditor interface {
	Record(ctx context.Context, action, entity, entityID string, actorID int64, diff, meta map[string]any) error
}
