package notify

import (
	"sync"
	"time"

	"github.com/mkrasov/planner/internal/clock"
)

// Dedup windows. A tick can straddle a minute boundary with its
// neighbor; the window keeps the same logical event from firing twice.
const (
	dedupWindow = 60 * time.Second
	dedupTTL    = 90 * time.Second
)

// DedupKind distinguishes the two logical event streams in the cache.
type DedupKind string

// Dedup kinds.
const (
	DedupPlanning DedupKind = "planning"
	DedupSession  DedupKind = "session"
)

type dedupKey struct {
	entityID string
	kind     DedupKind
}

// DedupCache records when a notification was last sent for an entity so
// near-duplicate dispatches are suppressed. It is in-memory and process
// local; a restart clears it, which at worst costs one duplicate
// notification. Entries are evicted lazily once older than the TTL.
type DedupCache struct {
	mu      sync.Mutex
	entries map[dedupKey]time.Time
	clk     clock.Clock
}

// NewDedupCache creates a cache using clk for time.
func NewDedupCache(clk clock.Clock) *DedupCache {
	if clk == nil {
		clk = clock.System{}
	}
	return &DedupCache{
		entries: make(map[dedupKey]time.Time),
		clk:     clk,
	}
}

// WasSentRecently reports whether a notification for (entityID, kind) was
// sent within the dedup window. Expired entries encountered on the way
// are pruned.
func (c *DedupCache) WasSentRecently(entityID string, kind DedupKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()
	c.evictLocked(now)

	sentAt, ok := c.entries[dedupKey{entityID: entityID, kind: kind}]
	if !ok {
		return false
	}
	return now.Sub(sentAt) < dedupWindow
}

// MarkSent records that a notification for (entityID, kind) was sent now.
func (c *DedupCache) MarkSent(entityID string, kind DedupKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[dedupKey{entityID: entityID, kind: kind}] = c.clk.Now()
}

func (c *DedupCache) evictLocked(now time.Time) {
	for key, sentAt := range c.entries {
		if now.Sub(sentAt) > dedupTTL {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of live entries. Used by tests.
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
