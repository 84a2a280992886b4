// Package alloc provides the instrumented allocation facade backing leak detection.
//
// # Overview
//
// Code under test that wants its memory accounted for allocates through an
// Allocator instead of calling make directly. Every successful allocation
// and every deallocation bumps a process-wide atomic counter and is
// forwarded to the active Observer (normally the resolved hook table of the
// running suite).
//
// # Allocator Interface
//
//   - Malloc(size): allocate a block of size bytes
//   - Calloc(n, size): allocate n*size zeroed bytes, failing on overflow
//   - Realloc(b, size): resize a block, moving it to a new address
//   - Free(b): release a block
//
// # Counting Rules
//
// Counters are cumulative for the life of the process until Reset is
// called. Realloc of a live block counts as one allocation plus one
// deallocation, since the block moves. Realloc(nil, n) behaves as Malloc and
// Realloc(b, 0) behaves as Free. Failed calls are not counted.
//
// Every event is forwarded, from whichever goroutine raised it. An
// observer that allocates inside its own callback must go through
// Unobserved: those events are counted once and never forwarded, so
// bookkeeping can't recurse into itself.
//
// # Usage Example
//
//	b, err := alloc.Malloc(128)
//	if err != nil {
//	    return err
//	}
//	copy(b.Bytes(), payload)
//	defer alloc.Free(b)
//
// # Size Classes
//
// Histogram buckets block sizes into ten fixed classes:
//
//	Class 0:    < 16 bytes
//	Class 1:   16 -   31 bytes
//	Class 2:   32 -   63 bytes
//	Class 3:   64 -  127 bytes
//	Class 4:  128 -  255 bytes
//	Class 5:  256 -  511 bytes
//	Class 6:  512 - 1023 bytes
//	Class 7:    1 -    2 KB
//	Class 8:    2 -    4 KB
//	Class 9:   >= 4 KB
//
// # Thread Safety
//
// Counters are atomic and the observer is swapped atomically, so any
// goroutine may allocate. Observers must tolerate calls from goroutines
// other than the runner's.
package alloc
