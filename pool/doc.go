// Package pool provides a three-tier memory allocator for small-to-medium
// byte requests, cheaper than the general-purpose allocator under churn by
// amortising OS reservations across many allocations, keeping the fast
// path free of cross-goroutine contention, and recycling freed blocks in
// size-segregated lists.
//
// # Layers
//
// The package is a thin façade over three cooperating layers:
//
//   - pool/thread: per-owner caches of block lists. Hits are plain field
//     reads, no synchronisation at all.
//   - pool/central: a process-wide cache with one free list and one spin
//     lock per size class. Refills thread caches in batches, absorbs their
//     overflow.
//   - pool/pages: the backing store. Obtains page runs (spans) from the
//     OS, splits them to fit, coalesces freed neighbours in both
//     directions, and can hand fully-free spans back above a high-water
//     mark.
//
// # Usage
//
//	p := pool.Allocate(64)        // 8-byte aligned, non-nil unless the OS is out
//	defer pool.Deallocate(p, 64)  // size must match the allocation
//
// or through the slice convenience layer:
//
//	buf := pool.Malloc(64)
//	defer pool.Free(buf)
//
// # Contract
//
// Deallocate must receive the exact size passed to Allocate for that
// pointer; the pool never derives size from the pointer. Allocate(0)
// returns a valid pointer that must not be dereferenced. Requests above
// 256 KiB bypass the caches and come back page-aligned. Allocation failure
// (OS exhaustion) surfaces as a nil pointer.
//
// # Ownership
//
// Package-level calls lease a thread cache from an internal distribution
// pool around each operation, so any goroutine may call them freely. A
// cache dropped by the distribution pool drains its blocks back to the
// central layer before it goes.
//
// Set POOLKIT_LOG_ALLOC=1 to trace allocation failures on stderr.
package pool
