package correct

import (
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

type cacheEntry struct {
	matches []Match
	expires time.Time
}

// Cache holds service responses keyed by the BLAKE3 hash of language and
// paragraph text. Extraction is deterministic, so an unchanged paragraph
// re-exported within the TTL skips the network.
type Cache struct {
	mu      sync.Mutex
	entries map[[32]byte]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Cache{
		entries: make(map[[32]byte]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// CacheKey hashes language and text with a separator no language tag
// contains.
func CacheKey(language, text string) [32]byte {
	buf := make([]byte, 0, len(language)+1+len(text))
	buf = append(buf, language...)
	buf = append(buf, 0)
	buf = append(buf, text...)
	return blake3.Sum256(buf)
}

func (c *Cache) Get(language, text string) ([]Match, bool) {
	key := CacheKey(language, text)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.matches, true
}

func (c *Cache) Set(language, text string, matches []Match) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(now)
	c.entries[CacheKey(language, text)] = cacheEntry{matches: matches, expires: now.Add(c.ttl)}
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(now)
	return len(c.entries)
}

func (c *Cache) pruneLocked(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
}
