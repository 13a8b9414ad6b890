// Package block implements the intrusive singly-linked free list the pool
// layers thread through raw memory: the first machine word of every free
// block holds the pointer to the next free block of the same class. No
// separate node allocation ever happens; a block either belongs to the
// caller or carries a link.
package block

import "unsafe"

// Next reads the link stored in the first word of a free block.
func Next(p unsafe.Pointer) unsafe.Pointer {
	return *(*unsafe.Pointer)(p)
}

// SetNext writes the link stored in the first word of a free block.
func SetNext(p, next unsafe.Pointer) {
	*(*unsafe.Pointer)(p) = next
}

// Push links p in front of head and returns the new head.
func Push(head, p unsafe.Pointer) unsafe.Pointer {
	SetNext(p, head)
	return p
}

// Len walks a nil-terminated list and returns its length.
func Len(head unsafe.Pointer) int {
	n := 0
	for p := head; p != nil; p = Next(p) {
		n++
	}
	return n
}

// Tail walks a nil-terminated, non-empty list and returns its last node.
func Tail(head unsafe.Pointer) unsafe.Pointer {
	p := head
	for Next(p) != nil {
		p = Next(p)
	}
	return p
}

// Add returns the address n bytes past p. Valid only while p and the result
// stay inside one reservation handed out by the page layer.
func Add(p unsafe.Pointer, n int) unsafe.Pointer {
	return unsafe.Add(p, n)
}
