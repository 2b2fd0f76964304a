// Package cache provides a Redis backed occupancy cache so several service
// instances share derived slot sets.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/roombooking/internal/application"
	"github.com/example/roombooking/internal/timegrid"
)

const (
	defaultPrefix = "roombooking:occupancy"
	// generationTTL bounds how long a version counter outlives its last
	// invalidation. A reset counter only rejects writers, never admits stale ones.
	generationTTL = 24 * time.Hour
)

// errStaleGeneration aborts a watched Store whose key was invalidated.
var errStaleGeneration = errors.New("cache: occupancy generation changed")

// RedisOccupancy implements application.OccupancyCache on Redis strings holding
// a JSON array of slot keys, with a version counter per key guarding writes.
// Redis failures degrade to cache misses.
type RedisOccupancy struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

var _ application.OccupancyCache = (*RedisOccupancy)(nil)

// NewRedisOccupancy wraps rdb. A non-positive ttl falls back to 30 seconds.
func NewRedisOccupancy(rdb *redis.Client, ttl time.Duration, prefix string, logger *slog.Logger) *RedisOccupancy {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisOccupancy{rdb: rdb, ttl: ttl, prefix: prefix, logger: logger}
}

func (c *RedisOccupancy) key(roomID string, date timegrid.Date) string {
	return c.prefix + ":" + application.OccupancyKey(roomID, date)
}

func (c *RedisOccupancy) generationKey(roomID string, date timegrid.Date) string {
	return c.prefix + ":gen:" + application.OccupancyKey(roomID, date)
}

// Get returns the cached slot set for the room and date.
func (c *RedisOccupancy) Get(ctx context.Context, roomID string, date timegrid.Date) (timegrid.SlotSet, bool) {
	key := c.key(roomID, date)
	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "occupancy cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		c.logger.WarnContext(ctx, "occupancy cache entry is corrupt", "key", key, "error", err)
		c.rdb.Del(ctx, key)
		return nil, false
	}
	slots, err := timegrid.SlotSetFromKeys(keys)
	if err != nil {
		c.logger.WarnContext(ctx, "occupancy cache entry is corrupt", "key", key, "error", err)
		c.rdb.Del(ctx, key)
		return nil, false
	}
	return slots, true
}

// Generation returns the version counter of the room and date.
func (c *RedisOccupancy) Generation(ctx context.Context, roomID string, date timegrid.Date) uint64 {
	key := c.generationKey(roomID, date)
	gen, err := c.rdb.Get(ctx, key).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "occupancy generation read failed", "key", key, "error", err)
	}
	return gen
}

// Store caches slots for the configured TTL when the version counter still
// equals generation. The check and the write run under WATCH.
func (c *RedisOccupancy) Store(ctx context.Context, roomID string, date timegrid.Date, generation uint64, slots timegrid.SlotSet) bool {
	keys := slots.Keys()
	if keys == nil {
		keys = []string{}
	}
	payload, err := json.Marshal(keys)
	if err != nil {
		return false
	}
	key := c.key(roomID, date)
	genKey := c.generationKey(roomID, date)

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
		return true
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		c.logger.DebugContext(ctx, "occupancy cache write skipped, key was invalidated", "key", key)
	default:
		c.logger.WarnContext(ctx, "occupancy cache write failed", "key", key, "error", err)
	}
	return false
}

// Invalidate drops the entry for the room and date and bumps its version.
func (c *RedisOccupancy) Invalidate(ctx context.Context, roomID string, date timegrid.Date) {
	key := c.key(roomID, date)
	genKey := c.generationKey(roomID, date)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "occupancy cache invalidation failed", "key", key, "error", err)
	}
}

// Ping checks connectivity.
func (c *RedisOccupancy) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
