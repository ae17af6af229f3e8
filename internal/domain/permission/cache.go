package permission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DecisionCache is a cache-aside layer over positive validation results,
// one Redis hash per user keyed by (resource, action, scope). Denials are
// never cached. Invalidation deletes the whole hash for the user and runs
// before the mutating request is acknowledged. A nil Redis client disables
// caching entirely.
type DecisionCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewDecisionCache creates the cache. client may be nil.
func NewDecisionCache(client *redis.Client, ttl time.Duration) *DecisionCache {
	return &DecisionCache{redis: client, ttl: ttl}
}

func cacheKey(userID uuid.UUID) string {
	return "perm:" + userID.String()
}

func cacheField(resource ResourceType, action Action, scope Scope) string {
	return string(resource) + ":" + string(action) + ":" + string(scope)
}

// Get reports whether a positive decision is cached for the tuple
func (c *DecisionCache) Get(ctx context.Context, userID uuid.UUID, resource ResourceType, action Action, scope Scope) bool {
	if c == nil || c.redis == nil {
		return false
	}
	val, err := c.redis.HGet(ctx, cacheKey(userID), cacheField(resource, action, scope)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("Permission cache read failed")
		}
		return false
	}
	return val == "1"
}

// Set records a positive decision for the tuple
func (c *DecisionCache) Set(ctx context.Context, userID uuid.UUID, resource ResourceType, action Action, scope Scope) {
	if c == nil || c.redis == nil {
		return
	}
	key := cacheKey(userID)
	pipe := c.redis.TxPipeline()
	pipe.HSet(ctx, key, cacheField(resource, action, scope), "1")
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Msg("Permission cache write failed")
	}
}

// Invalidate drops every cached decision for the user. Must complete before
// the grant/revoke response is sent; a failed delete is surfaced as an error
// so the caller does not acknowledge a mutation over a stale cache.
func (c *DecisionCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if c == nil || c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, cacheKey(userID)).Err()
}
