package application

import (
	"context"
	"testing"
	"time"

	"github.com/example/roombooking/internal/timegrid"
)

var cacheDate = timegrid.Date{Year: 2024, Month: time.May, Day: 1}

func TestMemoryOccupancyCacheStoresAndReturnsCopies(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := NewMemoryOccupancyCache(time.Minute, 4, func() time.Time { return current })

	original := timegrid.NewSlotSet(10, 11)
	cache.Store(ctx, "room-1", cacheDate, cache.Generation(ctx, "room-1", cacheDate), original)

	// Mutating the original set should not affect the cached copy.
	original.Add(12, 1)

	cached, ok := cache.Get(ctx, "room-1", cacheDate)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if cached.Contains(12) {
		t.Fatalf("expected cached set to remain unchanged, got %v", cached.Keys())
	}

	cached.Add(15, 1)
	again, ok := cache.Get(ctx, "room-1", cacheDate)
	if !ok {
		t.Fatalf("expected cache hit on second read")
	}
	if again.Contains(15) {
		t.Fatalf("expected cache to return independent copy, got %v", again.Keys())
	}

	if _, ok := cache.Get(ctx, "room-1", cacheDate.AddDays(1)); ok {
		t.Fatalf("expected miss for another date")
	}
}

func TestMemoryOccupancyCacheExpiresEntries(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := NewMemoryOccupancyCache(time.Second, 4, func() time.Time { return current })

	cache.Store(ctx, "room-1", cacheDate, cache.Generation(ctx, "room-1", cacheDate), timegrid.NewSlotSet(9))
	if _, ok := cache.Get(ctx, "room-1", cacheDate); !ok {
		t.Fatalf("expected cache hit before expiry")
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get(ctx, "room-1", cacheDate); ok {
		t.Fatalf("expected cache entry to expire")
	}
}

func TestMemoryOccupancyCacheInvalidateAndEvict(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryOccupancyCache(time.Minute, 2, time.Now)

	cache.Store(ctx, "room-1", cacheDate, cache.Generation(ctx, "room-1", cacheDate), timegrid.NewSlotSet(9))
	cache.Invalidate(ctx, "room-1", cacheDate)
	if _, ok := cache.Get(ctx, "room-1", cacheDate); ok {
		t.Fatalf("expected cache to be empty after invalidation")
	}

	for _, room := range []string{"a", "b", "c"} {
		cache.Store(ctx, room, cacheDate, cache.Generation(ctx, room, cacheDate), timegrid.NewSlotSet(9))
	}
	if got := cache.Len(); got != 2 {
		t.Fatalf("expected eviction to cap entries at 2, got %d", got)
	}
}

func TestMemoryOccupancyCacheRejectsStaleStore(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryOccupancyCache(time.Minute, 4, time.Now)

	// A reader samples the generation, a booking lands, then the reader
	// tries to publish what it read before the booking.
	before := cache.Generation(ctx, "room-1", cacheDate)
	cache.Invalidate(ctx, "room-1", cacheDate)
	if cache.Store(ctx, "room-1", cacheDate, before, timegrid.NewSlotSet()) {
		t.Fatalf("expected store with a pre-invalidation generation to be rejected")
	}
	if _, ok := cache.Get(ctx, "room-1", cacheDate); ok {
		t.Fatalf("expected miss after rejected store")
	}

	after := cache.Generation(ctx, "room-1", cacheDate)
	if !cache.Store(ctx, "room-1", cacheDate, after, timegrid.NewSlotSet(10)) {
		t.Fatalf("expected store with a fresh generation to be accepted")
	}

	// Invalidating another key does not reject this one.
	other := cache.Generation(ctx, "room-2", cacheDate)
	cache.Invalidate(ctx, "room-1", cacheDate.AddDays(1))
	if !cache.Store(ctx, "room-2", cacheDate, other, timegrid.NewSlotSet(9)) {
		t.Fatalf("expected store for an untouched key to be accepted")
	}
}

func TestMemoryOccupancyCachePrunesInvalidationStamps(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryOccupancyCache(time.Minute, 2, time.Now)

	before := cache.Generation(ctx, "room-z", cacheDate)
	for _, room := range []string{"a", "b", "c", "d"} {
		cache.Invalidate(ctx, room, cacheDate)
	}
	if cache.Store(ctx, "room-z", cacheDate, before, timegrid.NewSlotSet()) {
		t.Fatalf("expected generations older than the pruned stamps to be rejected")
	}
	if !cache.Store(ctx, "room-z", cacheDate, cache.Generation(ctx, "room-z", cacheDate), timegrid.NewSlotSet()) {
		t.Fatalf("expected current generation to be accepted after pruning")
	}
}
