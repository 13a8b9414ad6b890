//go:build !unix && !windows

// Package sysmem reserves page-aligned regions from the operating system for
// the page layer. On unix the regions are anonymous mappings; elsewhere they
// are carved from heap buffers pinned for the process lifetime, since blocks
// are handed out as raw pointers the garbage collector must never reclaim.
package sysmem

import (
	"sync"
	"unsafe"

	"github.com/joshuapare/poolkit/internal/size"
)

var (
	pinMu  sync.Mutex
	pinned [][]byte
)

// Reserve carves npages of zeroed, page-aligned memory from a pinned heap
// buffer when real mappings are not available.
func Reserve(npages int) (uintptr, error) {
	buf := make([]byte, npages*size.PageSize+size.PageSize-1)
	pinMu.Lock()
	pinned = append(pinned, buf)
	pinMu.Unlock()

	base := uintptr(unsafe.Pointer(&buf[0]))
	if rem := base % size.PageSize; rem != 0 {
		base += size.PageSize - rem
	}
	return base, nil
}

// Release is a no-op: pinned heap buffers stay resident until process exit.
func Release(base uintptr, npages int) error {
	return nil
}
