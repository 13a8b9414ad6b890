package pages

import "errors"

var (
	// ErrNoMemory indicates the operating system refused to reserve more
	// pages. It propagates unchanged through the central and thread layers.
	ErrNoMemory = errors.New("pages: out of memory")

	// ErrBadPages indicates a span request for zero or negative pages.
	ErrBadPages = errors.New("pages: page count must be positive")
)
