//go:build unix

package sysmem

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/poolkit/internal/size"
)

// Reserve maps npages of anonymous, private, read-write memory. The mapping
// is page-aligned and zero-filled by the kernel.
func Reserve(npages int) (uintptr, error) {
	b, err := unix.Mmap(-1, 0, npages*size.PageSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, err
	}
	return uintptr(unsafe.Pointer(&b[0])), nil
}

// Release unmaps npages starting at base. The range must lie inside memory
// obtained from Reserve; partial ranges are fine as long as they are
// page-aligned.
func Release(base uintptr, npages int) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(base)), npages*size.PageSize)
	err := unix.Munmap(b)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}
