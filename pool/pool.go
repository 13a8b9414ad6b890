package pool

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"github.com/joshuapare/poolkit/pool/central"
	"github.com/joshuapare/poolkit/pool/pages"
	"github.com/joshuapare/poolkit/pool/thread"
)

// Runtime debug flag for allocation logging - controlled by POOLKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("POOLKIT_LOG_ALLOC") != ""

// caches distributes thread caches across goroutines. sync.Pool keeps them
// per-P, so the lease around each operation stays contention-free; caches
// the pool evicts are finalized, which drains their blocks to central.
var caches = sync.Pool{
	New: func() any { return newCache() },
}

func newCache() *thread.Cache {
	tc := thread.New(central.Get(), pages.Get())
	runtime.SetFinalizer(tc, (*thread.Cache).Drain)
	return tc
}

// Allocate returns a pointer to n usable bytes, aligned to at least 8
// (page-aligned above 256 KiB), or nil when the OS is out of memory.
// Allocate(0) returns a valid pointer the caller must not dereference.
func Allocate(n int) unsafe.Pointer {
	tc := caches.Get().(*thread.Cache)
	p, err := tc.Allocate(n)
	caches.Put(tc)
	if err != nil {
		if logAlloc {
			fmt.Fprintf(os.Stderr, "[POOL] allocate %d failed: %v\n", n, err)
		}
		return nil
	}
	return p
}

// Deallocate returns the block at p. n must equal the n passed to the
// Allocate that produced p; mismatches corrupt the free lists.
func Deallocate(p unsafe.Pointer, n int) {
	if p == nil {
		return
	}
	tc := caches.Get().(*thread.Cache)
	tc.Deallocate(p, n)
	caches.Put(tc)
}

// Malloc returns an n-byte slice backed by pool memory, or nil when the OS
// is out. Release it with Free; slicing it shorter before Free loses the
// original length and breaks the size contract.
func Malloc(n int) []byte {
	p := Allocate(n)
	if p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(p), n)
}

// Free returns a slice obtained from Malloc, using its length as the size.
func Free(b []byte) {
	if b == nil {
		return
	}
	Deallocate(unsafe.Pointer(unsafe.SliceData(b)), len(b))
}

// Stats aggregates the counters of the shared layers. Thread-cache
// counters are per-lease and not included.
type Stats struct {
	Central central.Stats
	Pages   pages.Stats
}

// GetStats snapshots the shared layers' counters.
func GetStats() Stats {
	return Stats{
		Central: central.Get().GetStats(),
		Pages:   pages.Get().GetStats(),
	}
}
