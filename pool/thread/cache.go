// Package thread is the fast path of the pool: a per-owner cache of
// size-segregated block lists. Hits touch nothing but plain fields, so a
// cache must only ever be driven by one goroutine at a time; callers
// synchronize externally or lease caches through the pool façade. Misses
// refill in batches from the central layer, and lists past their water
// mark drain back there wholesale.
package thread

import (
	"unsafe"

	"github.com/joshuapare/poolkit/internal/block"
	"github.com/joshuapare/poolkit/internal/size"
	"github.com/joshuapare/poolkit/pool/central"
	"github.com/joshuapare/poolkit/pool/pages"
)

// Stats holds per-cache counters. Plain ints: the owner is the only writer.
type Stats struct {
	Hits     int // allocations served from a local list
	Misses   int // allocations that fetched from central
	Drains   int // whole-list returns to central
	Bypasses int // requests above MaxBytes routed to the page layer
}

// Cache is one owner's block cache.
type Cache struct {
	central *central.Cache
	pages   *pages.Cache

	heads  [size.NumClasses]unsafe.Pointer
	counts [size.NumClasses]uint32

	stats Stats
}

// New creates a cache that refills from c and bypasses large requests to p.
func New(c *central.Cache, p *pages.Cache) *Cache {
	return &Cache{central: c, pages: p}
}

// Allocate returns an n-byte block, aligned to at least size.Alignment.
// Zero-byte requests are served as one-byte ones so the pointer is real
// and round-trips through Deallocate. Requests above size.MaxBytes go
// straight to the page layer and come back page-aligned.
func (t *Cache) Allocate(n int) (unsafe.Pointer, error) {
	if n == 0 {
		n = 1
	}
	if n > size.MaxBytes {
		t.stats.Bypasses++
		base, err := t.pages.AllocateSpan(size.Pages(n))
		if err != nil {
			return nil, err
		}
		return unsafe.Pointer(base), nil
	}

	i := size.Index(n)
	if h := t.heads[i]; h != nil {
		t.heads[i] = block.Next(h)
		t.counts[i]--
		t.stats.Hits++
		return h, nil
	}
	return t.fetchFromCentral(i)
}

// Deallocate puts an n-byte block back. n must equal the n passed to
// Allocate for this pointer. Lists past their water mark drain to central
// in one piece.
func (t *Cache) Deallocate(p unsafe.Pointer, n int) {
	if p == nil {
		return
	}
	if n == 0 {
		n = 1
	}
	if n > size.MaxBytes {
		t.stats.Bypasses++
		t.pages.ReleaseSpan(uintptr(p), size.Pages(n))
		return
	}

	i := size.Index(n)
	t.heads[i] = block.Push(t.heads[i], p)
	t.counts[i]++

	if int(t.counts[i]) > size.ReturnThreshold(i) {
		t.drainClass(i)
	}
}

// Drain returns every cached block to the central layer. Called when a
// cache goes out of service so its blocks are not orphaned.
func (t *Cache) Drain() {
	for i := range t.heads {
		if t.heads[i] != nil {
			t.drainClass(i)
		}
	}
}

// GetStats returns a snapshot of this cache's counters.
func (t *Cache) GetStats() Stats {
	return t.stats
}

// fetchFromCentral pulls a batch of class-i blocks, keeps the surplus on
// the local list and returns the first block. Short batches are fine; the
// central layer may deliver fewer than asked right after carving a span.
func (t *Cache) fetchFromCentral(i int) (unsafe.Pointer, error) {
	batch := size.BatchFor(size.BlockSize(i))
	head, n, err := t.central.FetchRange(i, batch)
	if err != nil {
		return nil, err
	}
	t.stats.Misses++

	t.heads[i] = block.Next(head)
	t.counts[i] += uint32(n - 1)
	block.SetNext(head, nil)
	return head, nil
}

func (t *Cache) drainClass(i int) {
	t.central.ReturnRange(t.heads[i], i)
	t.heads[i] = nil
	t.counts[i] = 0
	t.stats.Drains++
}
