package alloc

import "errors"

var (
	// ErrNegativeSize indicates a negative allocation size.
	ErrNegativeSize = errors.New("alloc: negative size")

	// ErrOverflow indicates that count*size does not fit in an int.
	ErrOverflow = errors.New("alloc: size overflow")

	// ErrFreed indicates an operation on a block that was already released.
	ErrFreed = errors.New("alloc: block already freed")
)
