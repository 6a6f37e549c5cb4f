package accesscontrol

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leasecraft/leasecraft/internal/platform/db"
)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PostgreSQL-backed store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

var _ Store = (*PGStore)(nil)

const uniqueViolation = "23505"

// CreatePermission inserts a catalog entry.
func (s *PGStore) CreatePermission(ctx context.Context, code, description string) (Permission, error) {
	var perm Permission
	err := s.pool.QueryRow(ctx,
		`INSERT INTO permissions (code, description) VALUES ($1, $2) RETURNING id, code, description, created_at`,
		code, description,
	).Scan(&perm.ID, &perm.Code, &perm.Description, &perm.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Permission{}, ErrDuplicatePermission
		}
		return Permission{}, err
	}
	return perm, nil
}

// GetPermission fetches a permission by code.
func (s *PGStore) GetPermission(ctx context.Context, code string) (Permission, error) {
	var perm Permission
	err := s.pool.QueryRow(ctx,
		`SELECT id, code, description, created_at FROM permissions WHERE code = $1`,
		code,
	).Scan(&perm.ID, &perm.Code, &perm.Description, &perm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrPermissionNotFound
		}
		return Permission{}, err
	}
	return perm, nil
}

// ListPermissions returns the full catalog ordered by code.
func (s *PGStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, code, description, created_at FROM permissions ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Code, &perm.Description, &perm.CreatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

// UpdatePermissionDescription edits a permission's description.
func (s *PGStore) UpdatePermissionDescription(ctx context.Context, code, description string) (Permission, error) {
	var perm Permission
	err := s.pool.QueryRow(ctx,
		`UPDATE permissions SET description = $2 WHERE code = $1 RETURNING id, code, description, created_at`,
		code, description,
	).Scan(&perm.ID, &perm.Code, &perm.Description, &perm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrPermissionNotFound
		}
		return Permission{}, err
	}
	return perm, nil
}

// CreateRole inserts a role.
func (s *PGStore) CreateRole(ctx context.Context, name, description string, isBypass bool) (Role, error) {
	var role Role
	err := s.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, is_bypass) VALUES ($1, $2, $3)
		 RETURNING id, name, description, is_bypass, created_at, updated_at`,
		name, description, isBypass,
	).Scan(&role.ID, &role.Name, &role.Description, &role.IsBypass, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Role{}, ErrDuplicateRoleName
		}
		return Role{}, err
	}
	return role, nil
}

// GetRole fetches a role by ID.
func (s *PGStore) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, is_bypass, created_at, updated_at FROM roles WHERE id = $1`,
		id,
	).Scan(&role.ID, &role.Name, &role.Description, &role.IsBypass, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrRoleNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// ListRoles returns all roles ordered by name.
func (s *PGStore) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, is_bypass, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsBypass, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// DeleteRole removes a role unless a principal still holds it.
func (s *PGStore) DeleteRole(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var assigned int64
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM principal_roles WHERE role_id = $1`, id,
		).Scan(&assigned); err != nil {
			return err
		}
		if assigned > 0 {
			return ErrRoleInUse
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrRoleNotFound
		}
		return nil
	})
}

// AttachPermission links a permission to a role. Repeats are no-ops.
func (s *PGStore) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roleID, permissionID)
	return err
}

// DetachPermission unlinks a permission from a role. Repeats are no-ops.
func (s *PGStore) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
		roleID, permissionID)
	return err
}

// RolePermissionCodes returns the permission codes attached to a role.
func (s *PGStore) RolePermissionCodes(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.code FROM role_permissions rp JOIN permissions p ON p.id = rp.permission_id
		 WHERE rp.role_id = $1 ORDER BY p.code`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// GetPrincipal fetches the resolution-relevant view of a principal.
func (s *PGStore) GetPrincipal(ctx context.Context, id int64) (Principal, error) {
	var principal Principal
	var kind string
	err := s.pool.QueryRow(ctx,
		`SELECT id, kind, is_active FROM principals WHERE id = $1`, id,
	).Scan(&principal.ID, &kind, &principal.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, ErrPrincipalNotFound
		}
		return Principal{}, err
	}
	principal.Kind = PrincipalKind(strings.ToLower(kind))
	return principal, nil
}

// PrincipalRoles returns the roles held by a principal.
func (s *PGStore) PrincipalRoles(ctx context.Context, principalID int64) ([]Role, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.name, r.description, r.is_bypass, r.created_at, r.updated_at
		 FROM principal_roles pr JOIN roles r ON r.id = pr.role_id
		 WHERE pr.principal_id = $1 ORDER BY r.name`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsBypass, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// AssignRole grants a role to a principal. Repeats are no-ops.
func (s *PGStore) AssignRole(ctx context.Context, principalID, roleID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO principal_roles (principal_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		principalID, roleID)
	return err
}

// RemoveRole removes a role from a principal. Repeats are no-ops.
func (s *PGStore) RemoveRole(ctx context.Context, principalID, roleID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM principal_roles WHERE principal_id = $1 AND role_id = $2`,
		principalID, roleID)
	return err
}

// UpsertOverride replaces the override for (principal, permission) in a single
// statement, so the pair is never observable with two rows or none mid-flight.
func (s *PGStore) UpsertOverride(ctx context.Context, principalID int64, permissionCode string, kind OverrideKind, grantedBy int64) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO permission_overrides (principal_id, permission_id, kind, granted_by)
		 SELECT $1, p.id, $3, $4 FROM permissions p WHERE p.code = $2
		 ON CONFLICT (principal_id, permission_id)
		 DO UPDATE SET kind = EXCLUDED.kind, granted_by = EXCLUDED.granted_by, created_at = NOW()`,
		principalID, permissionCode, string(kind), grantedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPermissionNotFound
	}
	return nil
}

// DeleteOverride drops the override row for (principal, permission).
func (s *PGStore) DeleteOverride(ctx context.Context, principalID int64, permissionCode string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM permission_overrides o USING permissions p
		 WHERE o.permission_id = p.id AND o.principal_id = $1 AND p.code = $2`,
		principalID, permissionCode)
	return err
}

// OverridesFor returns the principal's current override map.
func (s *PGStore) OverridesFor(ctx context.Context, principalID int64) (map[string]OverrideKind, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.code, o.kind FROM permission_overrides o JOIN permissions p ON p.id = o.permission_id
		 WHERE o.principal_id = $1`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	overrides := make(map[string]OverrideKind)
	for rows.Next() {
		var code, kind string
		if err := rows.Scan(&code, &kind); err != nil {
			return nil, err
		}
		overrides[code] = OverrideKind(kind)
	}
	return overrides, rows.Err()
}
