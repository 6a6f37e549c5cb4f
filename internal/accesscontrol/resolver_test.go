package accesscontrol

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestResolveInactivePrincipal(t *testing.T) {
	store := newMemStore()
	role := store.mustRole("Staff", false, "agreement.view.all")
	store.mustPrincipal(1, KindUser, false, role.ID)
	store.overrides[1] = map[string]OverrideKind{"agreement.view.all": OverrideAdd}

	resolver := NewResolver(store, nil, nil)
	set, err := resolver.Resolve(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, set.Codes())
}

func TestResolveUnknownPrincipal(t *testing.T) {
	resolver := NewResolver(newMemStore(), nil, nil)
	_, err := resolver.Resolve(context.Background(), 99)
	require.ErrorIs(t, err, ErrPrincipalNotFound)
}

func TestResolveBypassReturnsLiveCatalog(t *testing.T) {
	store := newMemStore()
	store.mustPermission("agreement.view.all")
	store.mustPermission("agreement.edit.all")
	super := store.mustRole("SuperAdmin", true)
	store.mustPrincipal(1, KindUser, true, super.ID)
	// A REMOVE override must not dent the bypass grant.
	store.overrides[1] = map[string]OverrideKind{"agreement.view.all": OverrideRemove}

	resolver := NewResolver(store, nil, nil)
	ctx := context.Background()

	set, err := resolver.Resolve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"agreement.edit.all", "agreement.view.all"}, set.Codes())

	// A permission registered later shows up on the next resolve without any
	// role edit: bypass follows the catalog, not a snapshot.
	store.mustPermission("reports.view.all")
	set, err = resolver.Resolve(ctx, 1)
	require.NoError(t, err)
	require.True(t, set.Has("reports.view.all"))
}

func TestResolveRoleUnionWithOverrides(t *testing.T) {
	store := newMemStore()
	viewer := store.mustRole("Viewer", false, "agreement.view.all", "customer.view.all")
	editor := store.mustRole("Editor", false, "agreement.edit.all", "agreement.view.all")
	store.mustPrincipal(7, KindUser, true, viewer.ID, editor.ID)
	store.mustPermission("audit.view.all")
	store.overrides[7] = map[string]OverrideKind{
		"customer.view.all": OverrideRemove,
		"audit.view.all":    OverrideAdd,
	}

	resolver := NewResolver(store, nil, nil)
	set, err := resolver.Resolve(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, []string{"agreement.edit.all", "agreement.view.all", "audit.view.all"}, set.Codes())
}

func TestResolveClearOverrideRestoresRoleBehavior(t *testing.T) {
	store := newMemStore()
	role := store.mustRole("Staff", false, "agreement.view.all")
	store.mustPrincipal(3, KindUser, true, role.ID)
	resolver := NewResolver(store, nil, nil)
	ctx := context.Background()

	require.NoError(t, store.UpsertOverride(ctx, 3, "agreement.view.all", OverrideRemove, 1))
	set, err := resolver.Resolve(ctx, 3)
	require.NoError(t, err)
	require.False(t, set.Has("agreement.view.all"))

	require.NoError(t, store.DeleteOverride(ctx, 3, "agreement.view.all"))
	set, err = resolver.Resolve(ctx, 3)
	require.NoError(t, err)
	require.True(t, set.Has("agreement.view.all"))
}

func TestResolveOverrideForUnheldPermission(t *testing.T) {
	store := newMemStore()
	store.mustPermission("agreement.delete.all")
	role := store.mustRole("Staff", false, "agreement.view.all")
	store.mustPrincipal(4, KindUser, true, role.ID)
	// REMOVE for a permission the roles never granted is a no-op.
	store.overrides[4] = map[string]OverrideKind{"agreement.delete.all": OverrideRemove}

	resolver := NewResolver(store, nil, nil)
	set, err := resolver.Resolve(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, []string{"agreement.view.all"}, set.Codes())
}

func TestResolveServesCachedSetUntilVersionBump(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewVersionCache(client, time.Minute)

	store := newMemStore()
	role := store.mustRole("Staff", false, "agreement.view.all")
	store.mustPrincipal(5, KindUser, true, role.ID)

	resolver := NewResolver(store, cache, nil)
	ctx := context.Background()

	set, err := resolver.Resolve(ctx, 5)
	require.NoError(t, err)
	require.True(t, set.Has("agreement.view.all"))

	// Mutating the store without bumping the version leaves the cached set in
	// effect; this is exactly the staleness window the bump closes.
	perm := store.perms["agreement.view.all"]
	require.NoError(t, store.DetachPermission(ctx, role.ID, perm.ID))
	set, err = resolver.Resolve(ctx, 5)
	require.NoError(t, err)
	require.True(t, set.Has("agreement.view.all"))

	require.NoError(t, cache.Bump(ctx))
	set, err = resolver.Resolve(ctx, 5)
	require.NoError(t, err)
	require.False(t, set.Has("agreement.view.all"))
}

func TestResolveRecomputesWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewVersionCache(client, time.Minute)

	store := newMemStore()
	role := store.mustRole("Staff", false, "agreement.view.all")
	store.mustPrincipal(6, KindUser, true, role.ID)

	resolver := NewResolver(store, cache, nil)
	mr.Close()

	set, err := resolver.Resolve(context.Background(), 6)
	require.NoError(t, err)
	require.True(t, set.Has("agreement.view.all"))
}

func TestHasBypass(t *testing.T) {
	store := newMemStore()
	super := store.mustRole("SuperAdmin", true)
	staff := store.mustRole("Staff", false)
	store.mustPrincipal(1, KindUser, true, super.ID)
	store.mustPrincipal(2, KindUser, true, staff.ID)
	store.mustPrincipal(3, KindUser, false, super.ID)

	resolver := NewResolver(store, nil, nil)
	ctx := context.Background()

	ok, err := resolver.HasBypass(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = resolver.HasBypass(ctx, 2)
	require.NoError(t, err)
	require.False(t, ok)

	// Deactivation trumps the bypass role.
	ok, err = resolver.HasBypass(ctx, 3)
	require.NoError(t, err)
	require.False(t, ok)
}
