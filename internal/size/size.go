// Package size holds the size-class arithmetic shared by every pool layer.
// The class scheme is a fixed arithmetic progression: class i serves blocks
// of exactly (i+1)*Alignment bytes, up to MaxBytes.
package size

const (
	// Alignment is the block alignment and class granularity. Must be a
	// power of two and at least one pointer wide, since the first word of a
	// free block stores the free-list link.
	Alignment = 8

	// MaxBytes is the largest request served from the class lists. Anything
	// bigger bypasses straight to the page layer.
	MaxBytes = 256 * 1024

	// NumClasses is the number of size classes.
	NumClasses = MaxBytes / Alignment

	// PageSize is the unit the page layer reserves from the OS.
	PageSize = 4096

	// SpanPages is the default span length, in pages, pulled by the central
	// layer when refilling a class list.
	SpanPages = 8

	alignMask = Alignment - 1
)

// RoundUp returns n aligned up to the next Alignment boundary.
//
// Example:
//
//	RoundUp(1)  = 8
//	RoundUp(8)  = 8
//	RoundUp(9)  = 16
func RoundUp(n int) int {
	return (n + alignMask) & ^alignMask
}

// Index returns the class index for an n-byte request. Requests below
// Alignment clamp to class 0. Valid for 0 < n <= MaxBytes; callers route
// larger requests around the class lists entirely.
func Index(n int) int {
	if n < Alignment {
		n = Alignment
	}
	return (n+alignMask)/Alignment - 1
}

// BlockSize returns the byte size of blocks in class i, so that
// RoundUp(n) == BlockSize(Index(n)) for every 0 < n <= MaxBytes.
func BlockSize(i int) int {
	return (i + 1) * Alignment
}

// Pages returns the page count covering n bytes, at least one.
func Pages(n int) int {
	p := (n + PageSize - 1) / PageSize
	if p < 1 {
		p = 1
	}
	return p
}

// BatchFor returns how many blocks of the given byte size a thread cache
// pulls from the central layer in one refill. Smaller classes move in
// bigger batches to keep the per-refill byte volume bounded.
func BatchFor(blockSize int) int {
	switch {
	case blockSize <= 16:
		return 512
	case blockSize <= 64:
		return 256
	case blockSize <= 256:
		return 64
	case blockSize <= 1024:
		return 16
	case blockSize <= 4*1024:
		return 8
	case blockSize <= 16*1024:
		return 4
	default:
		return 2
	}
}

// ReturnThreshold returns the water mark for class i: once a thread-local
// list grows past it, the whole list drains back to the central layer.
func ReturnThreshold(i int) int {
	return BatchFor(BlockSize(i))
}
