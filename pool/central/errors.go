package central

import "errors"

var (
	// ErrBadIndex indicates a class index outside [0, size.NumClasses).
	ErrBadIndex = errors.New("central: class index out of range")

	// ErrBadBatch indicates a non-positive batch request.
	ErrBadBatch = errors.New("central: batch must be positive")

	// ErrCarve indicates a refill span too small to hold a single block.
	// The span sizing rule makes this unreachable; the check stays anyway.
	ErrCarve = errors.New("central: span carved into zero blocks")
)
