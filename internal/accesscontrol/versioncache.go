package accesscontrol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const versionKey = "authz:version"

// VersionCache caches resolved permission sets in Redis, stamped with a
// monotonically increasing version counter. Every catalog, role or override
// mutation bumps the counter after its transaction commits, so a cached set
// can never outlive a mutation: the next resolve reads a higher version and
// misses. A nil VersionCache disables caching; resolution then recomputes per
// call.
type VersionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewVersionCache constructs a VersionCache.
func NewVersionCache(client *redis.Client, ttl time.Duration) *VersionCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &VersionCache{client: client, ttl: ttl}
}

// Current returns the current mutation version. A missing counter reads as 0.
func (c *VersionCache) Current(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, versionKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return ver, nil
}

// Bump advances the mutation version, invalidating every cached set. Call it
// strictly after the mutating transaction has committed.
func (c *VersionCache) Bump(ctx context.Context) error {
	return c.client.Incr(ctx, versionKey).Err()
}

// Get returns the cached set for (principal, version), if present.
func (c *VersionCache) Get(ctx context.Context, principalID, version int64) (PermissionSet, bool, error) {
	data, err := c.client.Get(ctx, c.setKey(principalID, version)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return nil, false, err
	}
	return NewPermissionSet(codes...), true, nil
}

// Put stores the resolved set for (principal, version).
func (c *VersionCache) Put(ctx context.Context, principalID, version int64, set PermissionSet) error {
	data, err := json.Marshal(set.Codes())
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.setKey(principalID, version), data, c.ttl).Err()
}

func (c *VersionCache) setKey(principalID, version int64) string {
	return fmt.Sprintf("authz:perms:%d:%d", principalID, version)
}
