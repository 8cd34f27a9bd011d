package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSeenTTL is how long a persisted posting's key stays in the cache.
// After expiry the database's unique constraint still guarantees dedup; the
// cache only saves the round trip.
const DefaultSeenTTL = 30 * 24 * time.Hour

// RedisSeenCache is a Redis-backed cache of recently persisted
// (source, external_id) pairs, used to short-circuit duplicate inserts. The
// database ON CONFLICT constraint remains the deduplication authority.
//
// Checking and marking are separate operations: a posting is marked only
// after it was actually persisted, so a failed insert leaves the pair unseen
// and the next cycle re-attempts it.
type RedisSeenCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSeenCache creates a seen-posting cache.
func NewSeenCache(rdb *redis.Client, ttl time.Duration) *RedisSeenCache {
	if ttl <= 0 {
		ttl = DefaultSeenTTL
	}
	return &RedisSeenCache{rdb: rdb, ttl: ttl}
}

// Seen reports whether the pair was recently persisted.
func (c *RedisSeenCache) Seen(ctx context.Context, sourceID int64, externalID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, seenKey(sourceID, externalID)).Result()
	if err != nil {
		return false, fmt.Errorf("seen cache EXISTS failed: %w", err)
	}
	return n > 0, nil
}

// MarkSeen records the pair after it was persisted. Re-marking refreshes the
// TTL.
func (c *RedisSeenCache) MarkSeen(ctx context.Context, sourceID int64, externalID string) error {
	if err := c.rdb.Set(ctx, seenKey(sourceID, externalID), 1, c.ttl).Err(); err != nil {
		return fmt.Errorf("seen cache SET failed: %w", err)
	}
	return nil
}

func seenKey(sourceID int64, externalID string) string {
	return fmt.Sprintf("jobmatch:seen:%d:%s", sourceID, externalID)
}
