package prepared

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// entry is the linked-list payload backing PlanCache's LRU ordering:
// the list order is recency (front = most recently used), the map gives
// O(1) lookup into that list by fingerprint hash.
type entry struct {
	key       uint64
	plan      *PreparedPlan
	timestamp time.Time
}

// PlanCache is the prepared-plan store of spec §4.9: thread-safe,
// LRU (move-to-most-recent on hit), capacity-bounded, with an optional
// TTL checked on read. Grounded on datalog/planner/cache.go's
// PlanCache shape (mutex-protected map, hits/misses atomics,
// evictExpired/evictOldest) with container/list added so eviction is
// genuine LRU (oldest-unused) rather than the teacher's
// oldest-inserted-timestamp scan, and with the (c) validator hook and
// (a)/(b) invalidation entry points spec §4.9 names.
type PlanCache struct {
	mu       sync.Mutex
	order    *list.List // front = most recently used
	elements map[uint64]*list.Element

	maxSize int
	ttl     time.Duration

	hits   int64
	misses int64
}

// NewPlanCache creates a PlanCache with the given capacity and TTL.
// A non-positive ttl disables expiration.
func NewPlanCache(maxSize int, ttl time.Duration) *PlanCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &PlanCache{
		order:    list.New(),
		elements: make(map[uint64]*list.Element),
		maxSize:  maxSize,
		ttl:      ttl,
	}
}

// Get retrieves a cached PreparedPlan by fingerprint, promoting it to
// most-recently-used on a hit. An expired entry counts as a miss and is
// evicted lazily.
func (c *PlanCache) Get(fp QueryFingerprint) (*PreparedPlan, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.elements[fp.Hash()]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	e := el.Value.(*entry)

	if c.ttl > 0 && time.Since(e.timestamp) > c.ttl {
		c.removeElement(el)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	c.order.MoveToFront(el)
	atomic.AddInt64(&c.hits, 1)
	return e.plan, true
}

// Put stores p under its own Fingerprint, evicting the least-recently
// used entry (after first dropping any expired ones) if the cache is at
// capacity.
func (c *PlanCache) Put(p *PreparedPlan) {
	if c == nil || p == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := p.Fingerprint.Hash()
	if el, ok := c.elements[key]; ok {
		el.Value.(*entry).plan = p
		el.Value.(*entry).timestamp = time.Now()
		c.order.MoveToFront(el)
		return
	}

	if len(c.elements) >= c.maxSize {
		c.evictExpiredLocked()
		if len(c.elements) >= c.maxSize {
			c.evictOldestLocked()
		}
	}

	el := c.order.PushFront(&entry{key: key, plan: p, timestamp: time.Now()})
	c.elements[key] = el
}

// Remove implements spec §4.9(a): explicit eviction of a single
// fingerprint.
func (c *PlanCache) Remove(fp QueryFingerprint) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.elements[fp.Hash()]; ok {
		c.removeElement(el)
	}
}

// Invalidate implements spec §4.9(b): drop every cached plan whose
// fingerprint's TypeName equals typeName.
func (c *PlanCache) Invalidate(typeName string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for _, el := range c.elements {
		if el.Value.(*entry).plan.Fingerprint.TypeName == typeName {
			toRemove = append(toRemove, el)
		}
	}
	for _, el := range toRemove {
		c.removeElement(el)
	}
}

// Validate implements spec §4.9(c): rejects (and evicts) a cached plan
// whose template references an index not present in currentIndexes,
// reporting false so the caller falls through to re-planning.
func (c *PlanCache) Validate(fp QueryFingerprint, currentIndexes map[string]bool) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.elements[fp.Hash()]
	if !ok {
		return false
	}
	e := el.Value.(*entry)
	for name := range usedIndexNames(e.plan.PlanTemplate) {
		if !currentIndexes[name] {
			c.removeElement(el)
			return false
		}
	}
	return true
}

// Clear empties the cache and resets hit/miss counters.
func (c *PlanCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.elements = make(map[uint64]*list.Element)
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// Stats reports cumulative hit/miss counts and current size.
func (c *PlanCache) Stats() (hits, misses int64, size int) {
	if c == nil {
		return 0, 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses), len(c.elements)
}

func (c *PlanCache) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.elements, el.Value.(*entry).key)
}

func (c *PlanCache) evictExpiredLocked() {
	if c.ttl <= 0 {
		return
	}
	now := time.Now()
	var expired []*list.Element
	for _, el := range c.elements {
		if now.Sub(el.Value.(*entry).timestamp) > c.ttl {
			expired = append(expired, el)
		}
	}
	for _, el := range expired {
		c.removeElement(el)
	}
}

func (c *PlanCache) evictOldestLocked() {
	back := c.order.Back()
	if back != nil {
		c.removeElement(back)
	}
}
