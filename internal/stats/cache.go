package stats

import (
	"sync"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
)

// Cache memoizes Calculate per session. Event logs are append-only, so an
// entry is reused while the event count, the first and last event ids, the
// timing and the limits are unchanged. Freshly loaded slices of the same log
// hit the cache. Options.Turns is assumed to be derived from the events and
// is not part of the key. Callers that rewrite stored events must call
// Invalidate.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	hits    uint64
}

type cacheEntry struct {
	key   cacheKey
	stats domain.CalculatedStats
}

type cacheKey struct {
	length  int
	firstID string
	lastID  string
	timing  Timing
	limits  domain.SessionLimits
	hasLim  bool
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Calculate returns the memoized stats for sessionID, recomputing when the
// input changed. The result is shared between callers and must not be modified.
func (c *Cache) Calculate(sessionID string, events []domain.Event, opts Options) domain.CalculatedStats {
	key := keyFor(events, opts)

	c.mu.Lock()
	if e, ok := c.entries[sessionID]; ok && e.key == key {
		c.hits++
		c.mu.Unlock()
		return e.stats
	}
	c.mu.Unlock()

	stats := Calculate(events, opts)

	c.mu.Lock()
	c.entries[sessionID] = cacheEntry{key: key, stats: stats}
	c.mu.Unlock()
	return stats
}

// Invalidate drops the entry of sessionID.
func (c *Cache) Invalidate(sessionID string) {
	c.mu.Lock()
	delete(c.entries, sessionID)
	c.mu.Unlock()
}

// Len returns the number of cached sessions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Hits returns how many Calculate calls were served from the cache.
func (c *Cache) Hits() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

func keyFor(events []domain.Event, opts Options) cacheKey {
	k := cacheKey{length: len(events), timing: opts.Timing}
	if len(events) > 0 {
		k.firstID = events[0].Env().ID
		k.lastID = events[len(events)-1].Env().ID
	}
	if opts.Limits != nil {
		k.limits = *opts.Limits
		k.hasLim = true
	}
	return k
}
