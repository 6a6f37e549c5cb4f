package principals

import (
	"time"

	"github.com/leasecraft/leasecraft/internal/accesscontrol"
)

// Principal represents a user or customer account for management. The engine
// sees only the resolution-relevant slice of this (id, kind, active flag).
type Principal struct {
	ID           int64
	Kind         accesscontrol.PrincipalKind
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
