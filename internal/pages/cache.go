package pages

import (
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheLimit is the number of live handles kept for regenerable pages.
const DefaultCacheLimit = 20

// Handle is a renderable resource created from decoded page bytes.
type Handle interface {
	// Release frees the underlying resource. Releasing twice is a no-op.
	Release()
}

// HandleFactory turns decoded page bytes into a Handle.
type HandleFactory interface {
	NewHandle(name string, data []byte) (Handle, error)
}

// Cache maps pages to their live handles.
//
// Handles of regenerable pages are kept in an LRU bounded by the cache limit;
// evicting one releases the handle and drops the page's bytes. The pages on
// screen are skipped when choosing what to evict. Handles of pinned pages are
// held outside the LRU and only released by Clear.
type Cache struct {
	mu      sync.Mutex
	lru     *lru.Cache[*Page, Handle]
	limit   int
	pinned  map[*Page]Handle
	shown   map[*Page]struct{}
	gen     uint64
	purging bool
	log     *slog.Logger
	metrics Metrics
}

// NewCache creates a cache holding at most limit regenerable handles.
// A non-positive limit selects DefaultCacheLimit.
func NewCache(limit int, logger *slog.Logger, metrics Metrics) *Cache {
	if limit <= 0 {
		limit = DefaultCacheLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	c := &Cache{
		limit:   limit,
		pinned:  make(map[*Page]Handle),
		shown:   make(map[*Page]struct{}),
		log:     logger,
		metrics: metrics,
	}
	// NewWithEvict only fails for a non-positive size.
	c.lru, _ = lru.NewWithEvict[*Page, Handle](limit, c.onEvict)
	return c
}

// onEvict runs synchronously inside Add, Remove and Purge, with c.mu held.
func (c *Cache) onEvict(p *Page, h Handle) {
	h.Release()
	p.release()
	if c.purging {
		return
	}
	c.metrics.Evict()
	c.log.Debug("cache evict", "page", p.Name())
}

// Get returns the live handle for p and marks it most recently used.
func (c *Cache) Get(p *Page) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.pinned[p]; ok {
		c.metrics.Hit()
		return h, true
	}
	h, ok := c.lru.Get(p)
	if ok {
		c.metrics.Hit()
	} else {
		c.metrics.Miss()
	}
	return h, ok
}

// Put stores h as the handle for p, replacing and releasing any previous one.
// When the limit is exceeded the least recently used regenerable page that
// is not on screen is evicted before Put returns.
func (c *Cache) Put(p *Page, h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(p, h)
}

// Generation identifies the cache contents between two calls to Clear.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// PutIf is Put for a handle decoded while gen was current. If the cache has
// been cleared since, h is released instead and PutIf returns false.
func (c *Cache) PutIf(p *Page, h Handle, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		h.Release()
		return false
	}
	c.store(p, h)
	return true
}

func (c *Cache) store(p *Page, h Handle) {
	if p.Pinned() {
		if old, ok := c.pinned[p]; ok && old != h {
			old.Release()
		}
		c.pinned[p] = h
		c.metrics.Size(c.lru.Len() + len(c.pinned))
		return
	}

	if old, ok := c.lru.Peek(p); ok {
		if old != h {
			old.Release()
		}
	} else if c.lru.Len() >= c.limit {
		c.makeRoom()
	}
	c.lru.Add(p, h)
	c.metrics.Size(c.lru.Len() + len(c.pinned))
}

// makeRoom evicts the oldest page that is not on screen.
func (c *Cache) makeRoom() {
	for _, p := range c.lru.Keys() {
		if _, ok := c.shown[p]; !ok {
			c.lru.Remove(p)
			return
		}
	}
}

// SetShown records the pages currently on screen. Their handles stay live
// until they are no longer shown, even if they are the least recently used.
func (c *Cache) SetShown(pages ...*Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.shown)
	for _, p := range pages {
		if p != nil {
			c.shown[p] = struct{}{}
		}
	}
}

// lookup is Get without recency or metric side effects.
func (c *Cache) lookup(p *Page) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.pinned[p]; ok {
		return h, true
	}
	return c.lru.Peek(p)
}

// Contains reports whether p has a live handle without touching recency.
func (c *Cache) Contains(p *Page) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pinned[p]; ok {
		return true
	}
	return c.lru.Contains(p)
}

// Len returns the number of live handles, pinned ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len() + len(c.pinned)
}

// Clear releases every handle and empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	clear(c.shown)
	c.purging = true
	c.lru.Purge()
	c.purging = false
	for p, h := range c.pinned {
		h.Release()
		p.release()
	}
	clear(c.pinned)
	c.metrics.Size(0)
}
