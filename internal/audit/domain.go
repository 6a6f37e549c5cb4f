// Package audit records permission-affecting mutations and serves the audit
// trail. Entries are append-only; nothing in this package updates or deletes
// them. Writes are observability, not a transactional guarantee: a failed
// write is logged and swallowed, never propagated to the mutation that
// triggered it.
package audit

import "time"

// Entry represents a record stored in audit_logs.
type Entry struct {
	ID         string
	Action     string
	Entity     string
	EntityID   string
	ActorID    int64
	Diff       map[string]any
	Meta       map[string]any
	OccurredAt time.Time
}

// TrailFilters narrows a trail listing.
type TrailFilters struct {
	EntityID string
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// PagingInfo carries simple pagination metadata.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Result bundles trail rows with paging information.
type Result struct {
	Rows   []Entry
	Paging PagingInfo
}
