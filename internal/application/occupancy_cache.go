package application

import (
	"context"
	"sync"
	"time"

	"github.com/example/roombooking/internal/timegrid"
)

// OccupancyCache holds derived occupied slot sets per room and date. Entries
// must be invalidated whenever bookings for the key change.
//
// Readers take a Generation before loading bookings and hand it back to Store.
// Store keeps the set only when no Invalidate for the key happened in between,
// so a slow reader cannot put back a set that predates a committed change.
type OccupancyCache interface {
	Get(ctx context.Context, roomID string, date timegrid.Date) (timegrid.SlotSet, bool)
	Generation(ctx context.Context, roomID string, date timegrid.Date) uint64
	Store(ctx context.Context, roomID string, date timegrid.Date, generation uint64, slots timegrid.SlotSet) bool
	Invalidate(ctx context.Context, roomID string, date timegrid.Date)
}

// MemoryOccupancyCache is a process-local OccupancyCache with TTL expiry.
//
// Generations come from one counter. Invalidate stamps the key with the next
// value; Store rejects a generation older than the key's stamp. When stamps
// are pruned the floor rises to the counter, which rejects every older reader.
type MemoryOccupancyCache struct {
	mu          sync.RWMutex
	now         func() time.Time
	ttl         time.Duration
	maxEntries  int
	entries     map[string]occupancyEntry
	counter     uint64
	floor       uint64
	invalidated map[string]uint64
}

type occupancyEntry struct {
	slots     timegrid.SlotSet
	expiresAt time.Time
}

// NewMemoryOccupancyCache builds a cache. Non-positive ttl and maxEntries fall
// back to 30 seconds and 512 entries.
func NewMemoryOccupancyCache(ttl time.Duration, maxEntries int, now func() time.Time) *MemoryOccupancyCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 512
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryOccupancyCache{
		now:         now,
		ttl:         ttl,
		maxEntries:  maxEntries,
		entries:     make(map[string]occupancyEntry),
		invalidated: make(map[string]uint64),
	}
}

// OccupancyKey is the cache key shared by every OccupancyCache implementation.
func OccupancyKey(roomID string, date timegrid.Date) string {
	return roomID + "|" + date.String()
}

func (c *MemoryOccupancyCache) Get(_ context.Context, roomID string, date timegrid.Date) (timegrid.SlotSet, bool) {
	if c == nil {
		return nil, false
	}
	key := OccupancyKey(roomID, date)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.slots.Clone(), true
}

func (c *MemoryOccupancyCache) Generation(context.Context, string, timegrid.Date) uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counter
}

func (c *MemoryOccupancyCache) Store(_ context.Context, roomID string, date timegrid.Date, generation uint64, slots timegrid.SlotSet) bool {
	if c == nil {
		return false
	}
	key := OccupancyKey(roomID, date)
	cloned := slots.Clone()
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if generation < c.floor || generation < c.invalidated[key] {
		return false
	}
	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = occupancyEntry{slots: cloned, expiresAt: expiry}
	return true
}

func (c *MemoryOccupancyCache) Invalidate(_ context.Context, roomID string, date timegrid.Date) {
	if c == nil {
		return
	}
	key := OccupancyKey(roomID, date)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.counter++
	delete(c.entries, key)
	if len(c.invalidated) >= c.maxEntries {
		c.invalidated = make(map[string]uint64)
		c.floor = c.counter
	}
	c.invalidated[key] = c.counter
}

// Len reports the number of live and expired entries still held.
func (c *MemoryOccupancyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryOccupancyCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *MemoryOccupancyCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

type noopOccupancyCache struct{}

func (noopOccupancyCache) Get(context.Context, string, timegrid.Date) (timegrid.SlotSet, bool) {
	return nil, false
}
func (noopOccupancyCache) Generation(context.Context, string, timegrid.Date) uint64 { return 0 }
func (noopOccupancyCache) Store(context.Context, string, timegrid.Date, uint64, timegrid.SlotSet) bool {
	return false
}
func (noopOccupancyCache) Invalidate(context.Context, string, timegrid.Date) {}
