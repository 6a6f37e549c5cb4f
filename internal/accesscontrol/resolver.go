package accesscontrol

import (
	"context"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// Resolver computes a principal's effective permission set:
//
//  1. inactive principal: empty set, regardless of roles and overrides
//  2. bypass role held: the entire current catalog, live, never a snapshot
//  3. otherwise: union of role permissions, minus REMOVE overrides, plus ADD
//     overrides
//
// Resolution is pure for a given snapshot of catalog/roles/overrides. With a
// VersionCache attached, results are served from Redis keyed by the mutation
// version; without one, every call recomputes.
type Resolver struct {
	store  Store
	cache  *VersionCache
	group  singleflight.Group
	logger *slog.Logger
}

// NewResolver constructs a Resolver. cache may be nil.
func NewResolver(store Store, cache *VersionCache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, cache: cache, logger: logger}
}

// Resolve returns the principal's effective permission set.
func (r *Resolver) Resolve(ctx context.Context, principalID int64) (PermissionSet, error) {
	if r.cache == nil {
		return r.compute(ctx, principalID)
	}

	version, err := r.cache.Current(ctx)
	if err != nil {
		// Cache unavailability degrades to recompute, never to stale data.
		r.logger.Warn("permission cache version read failed", slog.Any("error", err))
		return r.compute(ctx, principalID)
	}

	if set, ok, err := r.cache.Get(ctx, principalID, version); err != nil {
		r.logger.Warn("permission cache read failed", slog.Any("error", err))
	} else if ok {
		return set, nil
	}

	key := strconv.FormatInt(principalID, 10) + ":" + strconv.FormatInt(version, 10)
	result, err, _ := r.group.Do(key, func() (any, error) {
		set, err := r.compute(ctx, principalID)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Put(ctx, principalID, version, set); err != nil {
			r.logger.Warn("permission cache write failed", slog.Any("error", err))
		}
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(PermissionSet), nil
}

// HasBypass reports whether an active principal holds the bypass role.
func (r *Resolver) HasBypass(ctx context.Context, principalID int64) (bool, error) {
	principal, err := r.store.GetPrincipal(ctx, principalID)
	if err != nil {
		return false, err
	}
	if !principal.IsActive {
		return false, nil
	}
	roles, err := r.store.PrincipalRoles(ctx, principalID)
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		if role.IsBypass {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) compute(ctx context.Context, principalID int64) (PermissionSet, error) {
	principal, err := r.store.GetPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if !principal.IsActive {
		return PermissionSet{}, nil
	}

	roles, err := r.store.PrincipalRoles(ctx, principalID)
	if err != nil {
		return nil, err
	}

	for _, role := range roles {
		if role.IsBypass {
			perms, err := r.store.ListPermissions(ctx)
			if err != nil {
				return nil, err
			}
			set := make(PermissionSet, len(perms))
			for _, p := range perms {
				set[p.Code] = struct{}{}
			}
			return set, nil
		}
	}

	set := PermissionSet{}
	for _, role := range roles {
		codes, err := r.store.RolePermissionCodes(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		for _, code := range codes {
			set[code] = struct{}{}
		}
	}

	overrides, err := r.store.OverridesFor(ctx, principalID)
	if err != nil {
		return nil, err
	}
	for code, kind := range overrides {
		switch kind {
		case OverrideRemove:
			delete(set, code)
		case OverrideAdd:
			set[code] = struct{}{}
		}
	}
	return set, nil
}
