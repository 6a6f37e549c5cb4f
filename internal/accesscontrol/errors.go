package accesscontrol

import "errors"

// Validation and lookup failures surfaced to callers. Access denial is not in
// this list: CheckAccess reports denial as a Decision value.
var (
	// ErrPermissionNotFound indicates an unknown permission code.
	ErrPermissionNotFound = errors.New("accesscontrol: permission not found")
	// ErrRoleNotFound indicates the requested role does not exist.
	ErrRoleNotFound = errors.New("accesscontrol: role not found")
	// ErrDuplicatePermission indicates the permission code is already registered.
	ErrDuplicatePermission = errors.New("accesscontrol: duplicate permission")
	// ErrDuplicateRoleName indicates a role with that name already exists.
	ErrDuplicateRoleName = errors.New("accesscontrol: duplicate role name")
	// ErrRoleInUse blocks deleting a role still assigned to principals.
	ErrRoleInUse = errors.New("accesscontrol: role in use")
	// ErrPrincipalNotFound indicates the principal does not exist.
	ErrPrincipalNotFound = errors.New("accesscontrol: principal not found")
	// ErrInvalidOverrideKind indicates an override kind outside ADD/REMOVE.
	ErrInvalidOverrideKind = errors.New("accesscontrol: invalid override kind")
)
