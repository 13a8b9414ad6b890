//go:build windows

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
// buffer on Windows.
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
