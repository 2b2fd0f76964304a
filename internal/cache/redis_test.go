package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/roombooking/internal/timegrid"
)

var day = timegrid.Date{Year: 2030, Month: time.June, Day: 3}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisOccupancy) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisOccupancy(client, time.Minute, "", nil)
}

func TestRedisOccupancy_StoreAndGet(t *testing.T) {
	mr, cache := setupTestRedis(t)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "room-1", day)
	assert.False(t, ok, "expected miss before store")

	cache.Store(ctx, "room-1", day, cache.Generation(ctx, "room-1", day), timegrid.NewSlotSet(10, 13))

	raw, err := mr.Get("roombooking:occupancy:room-1|2030-06-03")
	require.NoError(t, err)
	assert.JSONEq(t, `["10:00:00","13:00:00"]`, raw)
	assert.Equal(t, time.Minute, mr.TTL("roombooking:occupancy:room-1|2030-06-03"))

	slots, ok := cache.Get(ctx, "room-1", day)
	require.True(t, ok)
	assert.Equal(t, []int{10, 13}, slots.Hours())

	_, ok = cache.Get(ctx, "room-2", day)
	assert.False(t, ok, "entries are per room")
}

func TestRedisOccupancy_EmptySetIsCached(t *testing.T) {
	_, cache := setupTestRedis(t)
	ctx := context.Background()

	cache.Store(ctx, "room-1", day, cache.Generation(ctx, "room-1", day), timegrid.NewSlotSet())
	slots, ok := cache.Get(ctx, "room-1", day)
	require.True(t, ok)
	assert.Empty(t, slots.Hours())
}

func TestRedisOccupancy_ExpiresAndInvalidates(t *testing.T) {
	mr, cache := setupTestRedis(t)
	ctx := context.Background()

	cache.Store(ctx, "room-1", day, cache.Generation(ctx, "room-1", day), timegrid.NewSlotSet(9))
	mr.FastForward(2 * time.Minute)
	_, ok := cache.Get(ctx, "room-1", day)
	assert.False(t, ok, "expected entry to expire")

	cache.Store(ctx, "room-1", day, cache.Generation(ctx, "room-1", day), timegrid.NewSlotSet(9))
	cache.Invalidate(ctx, "room-1", day)
	_, ok = cache.Get(ctx, "room-1", day)
	assert.False(t, ok, "expected entry to be invalidated")
}

func TestRedisOccupancy_CorruptEntryIsDropped(t *testing.T) {
	mr, cache := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("roombooking:occupancy:room-1|2030-06-03", `["nine"]`))
	_, ok := cache.Get(ctx, "room-1", day)
	assert.False(t, ok)
	assert.False(t, mr.Exists("roombooking:occupancy:room-1|2030-06-03"))
}

func TestRedisOccupancy_UnavailableRedisIsAMiss(t *testing.T) {
	mr, cache := setupTestRedis(t)
	ctx := context.Background()
	mr.Close()

	cache.Store(ctx, "room-1", day, cache.Generation(ctx, "room-1", day), timegrid.NewSlotSet(9))
	_, ok := cache.Get(ctx, "room-1", day)
	assert.False(t, ok)
	assert.Error(t, cache.Ping(ctx))
}

func TestRedisOccupancy_StaleGenerationIsNotStored(t *testing.T) {
	mr, cache := setupTestRedis(t)
	ctx := context.Background()

	before := cache.Generation(ctx, "room-1", day)
	assert.Equal(t, uint64(0), before)

	cache.Invalidate(ctx, "room-1", day)
	assert.Equal(t, uint64(1), cache.Generation(ctx, "room-1", day))
	assert.True(t, mr.Exists("roombooking:occupancy:gen:room-1|2030-06-03"))

	assert.False(t, cache.Store(ctx, "room-1", day, before, timegrid.NewSlotSet()))
	_, ok := cache.Get(ctx, "room-1", day)
	assert.False(t, ok, "stale read must not be cached")

	assert.True(t, cache.Store(ctx, "room-1", day, cache.Generation(ctx, "room-1", day), timegrid.NewSlotSet(10)))
	slots, ok := cache.Get(ctx, "room-1", day)
	require.True(t, ok)
	assert.Equal(t, []int{10}, slots.Hours())
}
