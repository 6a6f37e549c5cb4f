package accesscontrol

import (
	"context"
	"sort"
	"time"
)

type memStore struct {
	nextPermID int64
	nextRoleID int64

	perms          map[string]Permission
	roles          map[int64]Role
	rolePerms      map[int64]map[int64]struct{}
	principals     map[int64]Principal
	principalRoles map[int64]map[int64]struct{}
	overrides      map[int64]map[string]OverrideKind
}

func newMemStore() *memStore {
	return &memStore{
		perms:          make(map[string]Permission),
		roles:          make(map[int64]Role),
		rolePerms:      make(map[int64]map[int64]struct{}),
		principals:     make(map[int64]Principal),
		principalRoles: make(map[int64]map[int64]struct{}),
		overrides:      make(map[int64]map[string]OverrideKind),
	}
}

var _ Store = (*memStore)(nil)

func (m *memStore) CreatePermission(_ context.Context, code, description string) (Permission, error) {
	if _, ok := m.perms[code]; ok {
		return Permission{}, ErrDuplicatePermission
	}
	m.nextPermID++
	perm := Permission{ID: m.nextPermID, Code: code, Description: description, CreatedAt: time.Now()}
	m.perms[code] = perm
	return perm, nil
}

func (m *memStore) GetPermission(_ context.Context, code string) (Permission, error) {
	perm, ok := m.perms[code]
	if !ok {
		return Permission{}, ErrPermissionNotFound
	}
	return perm, nil
}

func (m *memStore) ListPermissions(_ context.Context) ([]Permission, error) {
	perms := make([]Permission, 0, len(m.perms))
	for _, p := range m.perms {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Code < perms[j].Code })
	return perms, nil
}

func (m *memStore) UpdatePermissionDescription(_ context.Context, code, description string) (Permission, error) {
	perm, ok := m.perms[code]
	if !ok {
		return Permission{}, ErrPermissionNotFound
	}
	perm.Description = description
	m.perms[code] = perm
	return perm, nil
}

func (m *memStore) CreateRole(_ context.Context, name, description string, isBypass bool) (Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			return Role{}, ErrDuplicateRoleName
		}
	}
	m.nextRoleID++
	role := Role{ID: m.nextRoleID, Name: name, Description: description, IsBypass: isBypass, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.roles[role.ID] = role
	m.rolePerms[role.ID] = make(map[int64]struct{})
	return role, nil
}

func (m *memStore) GetRole(_ context.Context, id int64) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, ErrRoleNotFound
	}
	return role, nil
}

func (m *memStore) ListRoles(_ context.Context) ([]Role, error) {
	roles := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (m *memStore) DeleteRole(_ context.Context, id int64) error {
	if _, ok := m.roles[id]; !ok {
		return ErrRoleNotFound
	}
	for _, held := range m.principalRoles {
		if _, ok := held[id]; ok {
			return ErrRoleInUse
		}
	}
	delete(m.roles, id)
	delete(m.rolePerms, id)
	return nil
}

func (m *memStore) AttachPermission(_ context.Context, roleID, permissionID int64) error {
	if m.rolePerms[roleID] == nil {
		m.rolePerms[roleID] = make(map[int64]struct{})
	}
	m.rolePerms[roleID][permissionID] = struct{}{}
	return nil
}

func (m *memStore) DetachPermission(_ context.Context, roleID, permissionID int64) error {
	delete(m.rolePerms[roleID], permissionID)
	return nil
}

func (m *memStore) RolePermissionCodes(_ context.Context, roleID int64) ([]string, error) {
	var codes []string
	for _, p := range m.perms {
		if _, ok := m.rolePerms[roleID][p.ID]; ok {
			codes = append(codes, p.Code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (m *memStore) GetPrincipal(_ context.Context, id int64) (Principal, error) {
	principal, ok := m.principals[id]
	if !ok {
		return Principal{}, ErrPrincipalNotFound
	}
	return principal, nil
}

func (m *memStore) PrincipalRoles(_ context.Context, principalID int64) ([]Role, error) {
	var roles []Role
	for roleID := range m.principalRoles[principalID] {
		if role, ok := m.roles[roleID]; ok {
			roles = append(roles, role)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (m *memStore) AssignRole(_ context.Context, principalID, roleID int64) error {
	if m.principalRoles[principalID] == nil {
		m.principalRoles[principalID] = make(map[int64]struct{})
	}
	m.principalRoles[principalID][roleID] = struct{}{}
	return nil
}

func (m *memStore) RemoveRole(_ context.Context, principalID, roleID int64) error {
	delete(m.principalRoles[principalID], roleID)
	return nil
}

func (m *memStore) UpsertOverride(_ context.Context, principalID int64, permissionCode string, kind OverrideKind, _ int64) error {
	if _, ok := m.perms[permissionCode]; !ok {
		return ErrPermissionNotFound
	}
	if m.overrides[principalID] == nil {
		m.overrides[principalID] = make(map[string]OverrideKind)
	}
	m.overrides[principalID][permissionCode] = kind
	return nil
}

func (m *memStore) DeleteOverride(_ context.Context, principalID int64, permissionCode string) error {
	delete(m.overrides[principalID], permissionCode)
	return nil
}

func (m *memStore) OverridesFor(_ context.Context, principalID int64) (map[string]OverrideKind, error) {
	out := make(map[string]OverrideKind, len(m.overrides[principalID]))
	for code, kind := range m.overrides[principalID] {
		out[code] = kind
	}
	return out, nil
}

// Seed helpers keeping test setup terse.

func (m *memStore) mustPermission(code string) Permission {
	perm, err := m.CreatePermission(context.Background(), code, "")
	if err != nil {
		panic(err)
	}
	return perm
}

func (m *memStore) mustRole(name string, isBypass bool, permCodes ...string) Role {
	role, err := m.CreateRole(context.Background(), name, "", isBypass)
	if err != nil {
		panic(err)
	}
	for _, code := range permCodes {
		perm, ok := m.perms[code]
		if !ok {
			perm = m.mustPermission(code)
		}
		m.rolePerms[role.ID][perm.ID] = struct{}{}
	}
	return role
}

func (m *memStore) mustPrincipal(id int64, kind PrincipalKind, active bool, roles ...int64) Principal {
	principal := Principal{ID: id, Kind: kind, IsActive: active}
	m.principals[id] = principal
	for _, roleID := range roles {
		_ = m.AssignRole(context.Background(), id, roleID)
	}
	return principal
}
