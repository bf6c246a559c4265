package pagesession

import (
	"container/list"
	"sync"

	"github.com/retio-ai/pagemap/internal/pagemodel"
)

// defaultCacheCapacity bounds the per-session PageMap LRU (spec.md §3:
// "bounded LRU of URL -> PageMap, plus one active slot").
const defaultCacheCapacity = 8

type cacheItem struct {
	url string
	pm  *pagemodel.PageMap
}

// PageMapCache holds the most recently built PageMaps for one session: a
// bounded LRU keyed by URL, plus a distinguished "active" slot that
// execute_action and navigate_back resolve refs against. A navigating
// action invalidates active without touching the LRU entries (they remain
// valid history, just no longer the ref-resolution target).
type PageMapCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	items    map[string]*list.Element

	active *pagemodel.PageMap
}

// NewPageMapCache constructs a cache bounded at capacity entries (<=0 uses
// the default).
func NewPageMapCache(capacity int) *PageMapCache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &PageMapCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Active returns the current active PageMap, or nil if none (a fresh
// session, or one whose refs were expired by a navigating action).
func (c *PageMapCache) Active() *pagemodel.PageMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// InvalidateActive clears the active slot without touching LRU history
// (spec.md §4.11: a navigating action expires refs but prior PageMaps
// already returned to the caller stay valid records of what was seen).
func (c *PageMapCache) InvalidateActive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = nil
}

// Store records pm as both the LRU entry for its URL and the new active
// PageMap (spec.md §4.10: get_page_map's result becomes the ref-resolution
// target for subsequent execute_action calls against this session).
func (c *PageMapCache) Store(pm *pagemodel.PageMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked(pm)
	c.active = pm
}

// StoreInLRUOnly records pm in the history LRU without changing which
// PageMap is active (spec.md §4.14: batch_get_page_map builds PageMaps for
// URLs the session never navigates to, so none of them should become the
// ref-resolution target).
func (c *PageMapCache) StoreInLRUOnly(pm *pagemodel.PageMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked(pm)
}

// Get returns the cached PageMap for url, if still present in the LRU.
func (c *PageMapCache) Get(url string) (*pagemodel.PageMap, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[url]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheItem).pm, true
}

func (c *PageMapCache) touchLocked(pm *pagemodel.PageMap) {
	if el, ok := c.items[pm.URL]; ok {
		el.Value.(*cacheItem).pm = pm
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cacheItem{url: pm.URL, pm: pm})
	c.items[pm.URL] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheItem).url)
		}
	}
}

// Len reports the number of URLs currently held in the LRU.
func (c *PageMapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every LRU entry and the active slot, used when a session's
// browser is recycled (spec.md §4.6: "clear the session's page-map cache").
func (c *PageMapCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
	c.active = nil
}
