// Package pages is the backing store of the pool. It owns every byte
// obtained from the operating system, tracks it as spans of whole pages,
// and satisfies span requests by best fit: the smallest free span with
// enough pages is split, the excess re-bucketed. Released spans coalesce
// with free neighbours on both sides before returning to a bucket.
//
// All state lives under one mutex. The mutex ranks below the central
// layer's class locks; a class lock may be held across calls in here, the
// reverse never happens.
package pages

import (
	"sort"
	"sync"

	"github.com/joshuapare/poolkit/internal/size"
	"github.com/joshuapare/poolkit/internal/sysmem"
)

const pageSize = size.PageSize

// Stats holds page-layer counters, readable via GetStats.
type Stats struct {
	SysAllocs     int   // reservations requested from the OS
	SysPages      int64 // pages obtained from the OS
	SpansSplit    int   // best-fit splits
	SpansMerged   int   // coalesce operations (each absorbs one neighbour)
	SpansReleased int   // spans returned to the OS by Trim
	ReleasedPages int64 // pages returned to the OS by Trim
}

// Cache is the page layer. The zero value is not usable; create instances
// with New, or share the process-wide one via Get.
type Cache struct {
	mu sync.Mutex

	free    map[int]*Span     // page count -> head of free-span list
	counts  []int             // sorted page counts with non-empty buckets
	byStart map[uintptr]*Span // registry: base address -> span, free or carved
	byEnd   map[uintptr]*Span // end address -> span, free spans only

	freePages int // total pages across all free buckets
	highWater int // free-page mark above which spans go back to the OS; 0 retains forever

	stats Stats
}

// Option configures a Cache.
type Option func(*Cache)

// WithHighWater sets the free-page high-water mark. Whenever a release
// leaves more than mark pages sitting in free buckets, whole free spans are
// handed back to the OS until the total is at or below the mark. The
// default mark of zero disables the release path entirely.
func WithHighWater(mark int) Option {
	return func(c *Cache) { c.highWater = mark }
}

// New creates an empty page cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		free:    make(map[int]*Span),
		byStart: make(map[uintptr]*Span),
		byEnd:   make(map[uintptr]*Span),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	shared     *Cache
	sharedOnce sync.Once
)

// Get returns the process-wide page cache, creating it on first use.
func Get() *Cache {
	sharedOnce.Do(func() {
		shared = New()
	})
	return shared
}

// AllocateSpan returns the base address of a span covering exactly npages.
// A larger free span is split; the excess stays free. With no suitable
// span on hand, fresh pages come from the OS, zero-filled.
func (c *Cache) AllocateSpan(npages int) (uintptr, error) {
	if npages <= 0 {
		return 0, ErrBadPages
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Best fit: smallest bucket holding at least npages.
	i := sort.SearchInts(c.counts, npages)
	if i < len(c.counts) {
		s := c.popBucket(c.counts[i])
		delete(c.byEnd, s.end())
		c.freePages -= s.npages

		if s.npages > npages {
			// Split off the tail and keep it free.
			c.stats.SpansSplit++
			tail := &Span{
				base:   s.base + uintptr(npages)*pageSize,
				npages: s.npages - npages,
				state:  spanFree,
			}
			s.npages = npages
			c.byStart[tail.base] = tail
			c.byEnd[tail.end()] = tail
			c.pushBucket(tail)
			c.freePages += tail.npages
		}

		s.state = spanCarved
		return s.base, nil
	}

	base, err := sysmem.Reserve(npages)
	if err != nil {
		return 0, ErrNoMemory
	}
	c.stats.SysAllocs++
	c.stats.SysPages += int64(npages)

	s := &Span{base: base, npages: npages, state: spanCarved}
	c.byStart[base] = s
	return base, nil
}

// ReleaseSpan returns a span to the free buckets. Pointers this layer never
// issued are ignored, as are spans that are already free. The span merges
// with its forward and backward neighbours when those are free, and the
// high-water policy, if configured, then trims excess back to the OS.
func (c *Cache) ReleaseSpan(ptr uintptr, npages int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.byStart[ptr]
	if !ok || s.state != spanCarved {
		return
	}

	// Forward: absorb a free span starting where this one ends.
	if next, ok := c.byStart[s.end()]; ok && next.state == spanFree {
		c.stats.SpansMerged++
		c.removeBucket(next)
		c.freePages -= next.npages
		delete(c.byEnd, next.end())
		delete(c.byStart, next.base)
		s.npages += next.npages
	}

	// Backward: fold this span into a free span ending at our base.
	if prev, ok := c.byEnd[s.base]; ok && prev.state == spanFree {
		c.stats.SpansMerged++
		c.removeBucket(prev)
		c.freePages -= prev.npages
		delete(c.byEnd, s.base)
		delete(c.byStart, s.base)
		prev.npages += s.npages
		s = prev
	}

	s.state = spanFree
	c.pushBucket(s)
	c.byEnd[s.end()] = s
	c.freePages += s.npages

	if c.highWater > 0 && c.freePages > c.highWater {
		c.trimLocked(c.highWater)
	}
}

// Trim releases whole free spans back to the OS, largest first, until at
// most maxFreePages remain bucketed. Carved spans are never touched.
func (c *Cache) Trim(maxFreePages int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trimLocked(maxFreePages)
}

func (c *Cache) trimLocked(maxFreePages int) {
	for c.freePages > maxFreePages && len(c.counts) > 0 {
		s := c.popBucket(c.counts[len(c.counts)-1])
		delete(c.byEnd, s.end())
		delete(c.byStart, s.base)
		c.freePages -= s.npages

		if err := sysmem.Release(s.base, s.npages); err != nil {
			// Could not give it back; keep it bucketed instead.
			c.byStart[s.base] = s
			c.byEnd[s.end()] = s
			c.pushBucket(s)
			c.freePages += s.npages
			return
		}
		c.stats.SpansReleased++
		c.stats.ReleasedPages += int64(s.npages)
	}
}

// FreePages returns the total pages currently sitting in free buckets.
func (c *Cache) FreePages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.freePages
}

// GetStats returns a snapshot of the page-layer counters.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// ============================================================================
// Free-bucket maintenance
// ============================================================================

// pushBucket links s in front of its page-count bucket, registering the
// count in the sorted key slice when the bucket was empty.
func (c *Cache) pushBucket(s *Span) {
	head, ok := c.free[s.npages]
	s.next = head
	c.free[s.npages] = s
	if !ok {
		i := sort.SearchInts(c.counts, s.npages)
		c.counts = append(c.counts, 0)
		copy(c.counts[i+1:], c.counts[i:])
		c.counts[i] = s.npages
	}
}

// popBucket unlinks and returns the head span of the bucket for npages.
// The bucket must be non-empty.
func (c *Cache) popBucket(npages int) *Span {
	s := c.free[npages]
	if s.next != nil {
		c.free[npages] = s.next
	} else {
		delete(c.free, npages)
		c.dropCount(npages)
	}
	s.next = nil
	return s
}

// removeBucket unlinks s from whichever position it holds in its bucket.
func (c *Cache) removeBucket(s *Span) {
	head := c.free[s.npages]
	if head == s {
		c.popBucket(s.npages)
		return
	}
	for prev := head; prev != nil; prev = prev.next {
		if prev.next == s {
			prev.next = s.next
			s.next = nil
			return
		}
	}
}

func (c *Cache) dropCount(npages int) {
	i := sort.SearchInts(c.counts, npages)
	if i < len(c.counts) && c.counts[i] == npages {
		c.counts = append(c.counts[:i], c.counts[i+1:]...)
	}
}
