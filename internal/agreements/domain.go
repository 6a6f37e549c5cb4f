package agreements

import (
	"time"

	"github.com/leasecraft/leasecraft/internal/accesscontrol"
)

// Status of a rental agreement document.
type Status string

// Agreement statuses.
const (
	StatusDraft      Status = "draft"
	StatusActive     Status = "active"
	StatusTerminated Status = "terminated"
)

// Agreement represents a rental agreement record. Ownership may sit on the
// customer the agreement was drafted for, the user it was handed to, or an
// explicit owner; whichever reference is populated first decides whose
// "own"-scoped permissions apply.
type Agreement struct {
	ID              int64
	Title           string
	PropertyAddress string
	Status          Status
	RentAmountCents int64
	CustomerID      *int64
	UserID          *int64
	OwnerID         *int64
	CreatedBy       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AccessRecord converts the agreement into the engine's record descriptor.
func (a Agreement) AccessRecord() accesscontrol.Record {
	return accesscontrol.Record{
		Type:       accesscontrol.ResourceAgreement,
		ID:         a.ID,
		CustomerID: a.CustomerID,
		UserID:     a.UserID,
		OwnerID:    a.OwnerID,
	}
}

// OwnershipExpr is the SQL expression identifying the owning principal in
// agreement list queries. It mirrors AccessRecord: first populated reference
// wins.
const OwnershipExpr = "COALESCE(customer_id, user_id, owner_id)"
