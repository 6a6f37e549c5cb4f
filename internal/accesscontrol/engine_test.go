package accesscontrol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func newTestEngine(store *memStore) *Engine {
	resolver := NewResolver(store, nil, nil)
	return NewEngine(store, resolver, WithOwnership(ResourceAgreement, "COALESCE(customer_id, user_id, owner_id)"))
}

func TestCheckAccessAllScope(t *testing.T) {
	store := newMemStore()
	role := store.mustRole("Staff", false, "agreement.view.all")
	store.mustPrincipal(1, KindUser, true, role.ID)
	engine := newTestEngine(store)

	record := Record{Type: ResourceAgreement, ID: 10, CustomerID: ptr(99)}
	decision, err := engine.CheckAccess(context.Background(), 1, record, ActionView)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, ReasonAll, decision.Reason)
}

func TestCheckAccessOwnScope(t *testing.T) {
	store := newMemStore()
	role := store.mustRole("Customer", false, "agreement.view.own")
	store.mustPrincipal(42, KindCustomer, true, role.ID)
	store.mustPrincipal(43, KindCustomer, true, role.ID)
	engine := newTestEngine(store)
	ctx := context.Background()

	owned := Record{Type: ResourceAgreement, ID: 10, CustomerID: ptr(42)}
	decision, err := engine.CheckAccess(ctx, 42, owned, ActionView)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, ReasonOwn, decision.Reason)

	// Same permission, someone else's record.
	decision, err = engine.CheckAccess(ctx, 43, owned, ActionView)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonInsufficient, decision.Reason)
}

func TestCheckAccessOwnershipPrecedence(t *testing.T) {
	store := newMemStore()
	role := store.mustRole("Customer", false, "agreement.view.own")
	store.mustPrincipal(1, KindCustomer, true, role.ID)
	store.mustPrincipal(2, KindUser, true, role.ID)
	engine := newTestEngine(store)
	ctx := context.Background()

	// CustomerID outranks UserID and OwnerID when more than one is set.
	record := Record{Type: ResourceAgreement, ID: 5, CustomerID: ptr(1), UserID: ptr(2), OwnerID: ptr(2)}

	decision, err := engine.CheckAccess(ctx, 1, record, ActionView)
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	decision, err = engine.CheckAccess(ctx, 2, record, ActionView)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
}

func TestCheckAccessOwnerlessRecordWithOwnScope(t *testing.T) {
	store := newMemStore()
	role := store.mustRole("Customer", false, "agreement.view.own")
	store.mustPrincipal(1, KindCustomer, true, role.ID)
	engine := newTestEngine(store)

	record := Record{Type: ResourceAgreement, ID: 5}
	decision, err := engine.CheckAccess(context.Background(), 1, record, ActionView)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonInsufficient, decision.Reason)
}

func TestCheckAccessBypass(t *testing.T) {
	store := newMemStore()
	super := store.mustRole("SuperAdmin", true)
	store.mustPrincipal(1, KindUser, true, super.ID)
	engine := newTestEngine(store)

	record := Record{Type: ResourceAgreement, ID: 10, CustomerID: ptr(99)}
	decision, err := engine.CheckAccess(context.Background(), 1, record, ActionDelete)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, ReasonBypass, decision.Reason)
}

func TestCheckAccessInactivePrincipal(t *testing.T) {
	store := newMemStore()
	super := store.mustRole("SuperAdmin", true)
	store.mustPrincipal(1, KindUser, false, super.ID)
	engine := newTestEngine(store)

	record := Record{Type: ResourceAgreement, ID: 10}
	decision, err := engine.CheckAccess(context.Background(), 1, record, ActionView)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonInsufficient, decision.Reason)
}

func TestCheckAccessActionsAreIndependent(t *testing.T) {
	store := newMemStore()
	role := store.mustRole("Viewer", false, "agreement.view.all")
	store.mustPrincipal(1, KindUser, true, role.ID)
	engine := newTestEngine(store)
	ctx := context.Background()

	record := Record{Type: ResourceAgreement, ID: 10, OwnerID: ptr(1)}
	decision, err := engine.CheckAccess(ctx, 1, record, ActionView)
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	decision, err = engine.CheckAccess(ctx, 1, record, ActionDelete)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
}

func TestScopeQueryAllPassesBaseThrough(t *testing.T) {
	store := newMemStore()
	role := store.mustRole("Staff", false, "agreement.view.all")
	store.mustPrincipal(1, KindUser, true, role.ID)
	engine := newTestEngine(store)

	base := Filter{}.Where("status = ?", "active")
	scoped, err := engine.ScopeQuery(context.Background(), 1, ResourceAgreement, base)
	require.NoError(t, err)

	where, args := scoped.SQL(1)
	require.Equal(t, "status = $1", where)
	require.Equal(t, []any{"active"}, args)
}

func TestScopeQueryOwnAddsOwnershipConstraint(t *testing.T) {
	store := newMemStore()
	role := store.mustRole("Customer", false, "agreement.view.own")
	store.mustPrincipal(42, KindCustomer, true, role.ID)
	engine := newTestEngine(store)

	base := Filter{}.Where("status = ?", "active")
	scoped, err := engine.ScopeQuery(context.Background(), 42, ResourceAgreement, base)
	require.NoError(t, err)

	where, args := scoped.SQL(1)
	require.Equal(t, "status = $1 AND COALESCE(customer_id, user_id, owner_id) = $2", where)
	require.Equal(t, []any{"active", int64(42)}, args)
}

func TestScopeQueryNoPermissionMatchesNothing(t *testing.T) {
	store := newMemStore()
	role := store.mustRole("Clerk", false, "customer.view.all")
	store.mustPrincipal(1, KindUser, true, role.ID)
	engine := newTestEngine(store)

	scoped, err := engine.ScopeQuery(context.Background(), 1, ResourceAgreement, Filter{})
	require.NoError(t, err)
	require.True(t, scoped.IsNone())

	where, _ := scoped.SQL(1)
	require.Equal(t, "FALSE", where)
}

func TestScopeQueryInactiveMatchesNothing(t *testing.T) {
	store := newMemStore()
	super := store.mustRole("SuperAdmin", true)
	store.mustPrincipal(1, KindUser, false, super.ID)
	engine := newTestEngine(store)

	scoped, err := engine.ScopeQuery(context.Background(), 1, ResourceAgreement, Filter{})
	require.NoError(t, err)
	require.True(t, scoped.IsNone())
}

func TestScopeQueryBypassPassesBaseThrough(t *testing.T) {
	store := newMemStore()
	super := store.mustRole("SuperAdmin", true)
	store.mustPrincipal(1, KindUser, true, super.ID)
	engine := newTestEngine(store)

	scoped, err := engine.ScopeQuery(context.Background(), 1, ResourceAgreement, Filter{})
	require.NoError(t, err)
	require.False(t, scoped.IsNone())

	where, _ := scoped.SQL(1)
	require.Equal(t, "TRUE", where)
}

func TestScopeQueryOwnWithoutRegisteredOwnershipMatchesNothing(t *testing.T) {
	store := newMemStore()
	role := store.mustRole("Customer", false, "customer.view.own")
	store.mustPrincipal(1, KindCustomer, true, role.ID)
	engine := newTestEngine(store)

	scoped, err := engine.ScopeQuery(context.Background(), 1, ResourceCustomer, Filter{})
	require.NoError(t, err)
	require.True(t, scoped.IsNone())
}
