// Package accesscontrol implements the permission-resolution engine: the
// permission catalog, roles, per-principal overrides, effective-permission
// resolution and record/list access decisions.
package accesscontrol

import (
	"fmt"
	"sort"
	"time"
)

// Action is an operation performed on a resource record.
type Action string

// Supported record actions.
const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Scope qualifies how far a permission reaches.
type Scope string

// Supported permission scopes.
const (
	ScopeAll Scope = "all"
	ScopeOwn Scope = "own"
)

// Code builds the canonical permission code for a resource, action and scope,
// e.g. "agreement.view.own".
func Code(resource string, action Action, scope Scope) string {
	return fmt.Sprintf("%s.%s.%s", resource, action, scope)
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64
	Code        string
	Description string
	CreatedAt   time.Time
}

// Role represents a named bundle of permissions.
// IsBypass marks the single distinguished role whose holders resolve to the
// full catalog; it is set at creation and never changed, so bypass identity is
// never a matter of comparing display names.
type Role struct {
	ID          int64
	Name        string
	Description string
	IsBypass    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PrincipalKind tags the underlying account shape of a principal.
type PrincipalKind string

// Principal kinds.
const (
	KindUser     PrincipalKind = "user"
	KindCustomer PrincipalKind = "customer"
)

// Principal is the acting identity, user or customer, unified for resolution.
type Principal struct {
	ID       int64
	Kind     PrincipalKind
	IsActive bool
}

// OverrideKind distinguishes a manual grant from a manual revocation.
type OverrideKind string

// Override kinds.
const (
	OverrideAdd    OverrideKind = "ADD"
	OverrideRemove OverrideKind = "REMOVE"
)

// Valid reports whether the kind is one of the two supported values.
func (k OverrideKind) Valid() bool {
	return k == OverrideAdd || k == OverrideRemove
}

// Override is a per-principal manual ADD or REMOVE layered on role permissions.
// At most one override exists per (principal, permission) pair.
type Override struct {
	PrincipalID    int64
	PermissionCode string
	Kind           OverrideKind
	GrantedBy      int64
	CreatedAt      time.Time
}

// PermissionSet is a resolved set of permission codes.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from codes.
func NewPermissionSet(codes ...string) PermissionSet {
	set := make(PermissionSet, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the code.
func (s PermissionSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Codes returns the sorted permission codes in the set.
func (s PermissionSet) Codes() []string {
	codes := make([]string, 0, len(s))
	for c := range s {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Record describes the ownership-relevant part of a resource record for an
// access decision. Ownership may be carried by a customer, user or owner
// reference depending on the record shape.
type Record struct {
	Type       string
	ID         int64
	CustomerID *int64
	UserID     *int64
	OwnerID    *int64
}

// OwnerRef returns the record's owning principal; the first populated
// reference wins. ok is false when the record carries no ownership at all.
func (r Record) OwnerRef() (id int64, ok bool) {
	switch {
	case r.CustomerID != nil:
		return *r.CustomerID, true
	case r.UserID != nil:
		return *r.UserID, true
	case r.OwnerID != nil:
		return *r.OwnerID, true
	}
	return 0, false
}

// Decision is the structured result of a record access check. Denial is a
// normal outcome, never an error.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Decision reasons. Callers and tests rely on these to tell which clause fired.
const (
	ReasonBypass       = "super admin bypass"
	ReasonAll          = "all permission"
	ReasonOwn          = "own permission + ownership match"
	ReasonInsufficient = "insufficient permissions"
)
