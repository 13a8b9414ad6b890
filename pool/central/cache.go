// Package central is the shared middle layer of the pool: one free list
// per size class, each behind its own spin lock. Thread caches pull blocks
// from here in batches and push whole lists back; empty lists refill by
// pulling a span from the page layer and carving it into equal blocks.
//
// A goroutine holds at most one class lock at a time. The page-layer mutex
// may be taken while a class lock is held, never the other way around.
package central

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/joshuapare/poolkit/internal/block"
	"github.com/joshuapare/poolkit/internal/size"
	"github.com/joshuapare/poolkit/pool/pages"
)

// Stats holds central-layer counters, readable via GetStats.
type Stats struct {
	Fetches    int64 // FetchRange calls that handed out blocks
	Refills    int64 // fetches that had to carve a fresh span
	Returns    int64 // ReturnRange calls
	BlocksOut  int64 // blocks handed to thread caches
	BlocksBack int64 // blocks accepted from thread caches
}

type stats struct {
	fetches    atomic.Int64
	refills    atomic.Int64
	returns    atomic.Int64
	blocksOut  atomic.Int64
	blocksBack atomic.Int64
}

// Cache is the central layer. Create isolated instances with New, or share
// the process-wide one via Get.
type Cache struct {
	pages *pages.Cache

	// heads[i] is the class-i free list. Plain pointers: every access
	// happens under locks[i], whose acquire/release orders them.
	heads [size.NumClasses]unsafe.Pointer
	locks [size.NumClasses]spinLock

	stats stats
}

// New creates a central cache backed by the given page cache.
func New(p *pages.Cache) *Cache {
	return &Cache{pages: p}
}

var (
	shared     *Cache
	sharedOnce sync.Once
)

// Get returns the process-wide central cache, creating it on first use
// over the shared page cache.
func Get() *Cache {
	sharedOnce.Do(func() {
		shared = New(pages.Get())
	})
	return shared
}

// FetchRange hands out up to batch blocks of class idx as a nil-terminated
// list, refilling from the page layer when the class list is empty. The
// returned count may fall short of batch when a fresh span carves into
// fewer blocks; callers must tolerate that.
func (c *Cache) FetchRange(idx, batch int) (unsafe.Pointer, int, error) {
	if idx < 0 || idx >= size.NumClasses {
		return nil, 0, ErrBadIndex
	}
	if batch <= 0 {
		return nil, 0, ErrBadBatch
	}

	c.locks[idx].Lock()
	defer c.locks[idx].Unlock()

	head := c.heads[idx]
	if head == nil {
		h, n, err := c.refill(idx, batch)
		if err != nil {
			return nil, 0, err
		}
		c.stats.fetches.Add(1)
		c.stats.blocksOut.Add(int64(n))
		return h, n, nil
	}

	// Cut a prefix of up to batch nodes off the class list.
	var prev unsafe.Pointer
	cur := head
	n := 0
	for cur != nil && n < batch {
		prev = cur
		cur = block.Next(cur)
		n++
	}
	block.SetNext(prev, nil)
	c.heads[idx] = cur

	c.stats.fetches.Add(1)
	c.stats.blocksOut.Add(int64(n))
	return head, n, nil
}

// ReturnRange splices a nil-terminated list of class-idx blocks onto the
// class list. The incoming list is walked to its terminator whatever its
// length; nothing is dropped.
func (c *Cache) ReturnRange(head unsafe.Pointer, idx int) {
	if head == nil || idx < 0 || idx >= size.NumClasses {
		return
	}

	c.locks[idx].Lock()
	defer c.locks[idx].Unlock()

	tail := head
	n := 1
	for block.Next(tail) != nil {
		tail = block.Next(tail)
		n++
	}
	block.SetNext(tail, c.heads[idx])
	c.heads[idx] = head

	c.stats.returns.Add(1)
	c.stats.blocksBack.Add(int64(n))
}

// refill pulls a span from the page layer, carves it into class-idx
// blocks, hands the caller up to batch of them and stashes the rest on the
// class list. Called with locks[idx] held.
func (c *Cache) refill(idx, batch int) (unsafe.Pointer, int, error) {
	c.stats.refills.Add(1)

	blockSize := size.BlockSize(idx)
	spanPages := size.SpanPages
	if blockSize > size.SpanPages*size.PageSize {
		spanPages = size.Pages(blockSize)
	}

	base, err := c.pages.AllocateSpan(spanPages)
	if err != nil {
		return nil, 0, err
	}

	total := spanPages * size.PageSize / blockSize
	if total == 0 {
		return nil, 0, ErrCarve
	}
	give := batch
	if total < give {
		give = total
	}

	start := unsafe.Pointer(base)
	for i := 1; i < give; i++ {
		block.SetNext(block.Add(start, (i-1)*blockSize), block.Add(start, i*blockSize))
	}
	block.SetNext(block.Add(start, (give-1)*blockSize), nil)

	if total > give {
		remain := block.Add(start, give*blockSize)
		for i := give + 1; i < total; i++ {
			block.SetNext(block.Add(start, (i-1)*blockSize), block.Add(start, i*blockSize))
		}
		block.SetNext(block.Add(start, (total-1)*blockSize), nil)
		c.heads[idx] = remain
	}

	return start, give, nil
}

// GetStats returns a snapshot of the central-layer counters.
func (c *Cache) GetStats() Stats {
	return Stats{
		Fetches:    c.stats.fetches.Load(),
		Refills:    c.stats.refills.Load(),
		Returns:    c.stats.returns.Load(),
		BlocksOut:  c.stats.blocksOut.Load(),
		BlocksBack: c.stats.blocksBack.Load(),
	}
}
