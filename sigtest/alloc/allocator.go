package alloc

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// Observer receives allocation events. Addresses identify blocks for the
// lifetime of the block only; a released address may be handed out again.
type Observer interface {
	OnAlloc(size int, addr uintptr)
	OnFree(addr uintptr)
}

// Counts is a snapshot of the allocation counters.
type Counts struct {
	Allocs uint64
	Frees  uint64
}

// Sub returns the events recorded between o and c.
func (c Counts) Sub(o Counts) Counts {
	return Counts{Allocs: c.Allocs - o.Allocs, Frees: c.Frees - o.Frees}
}

// Add folds o into c.
func (c Counts) Add(o Counts) Counts {
	return Counts{Allocs: c.Allocs + o.Allocs, Frees: c.Frees + o.Frees}
}

// Outstanding returns allocations not matched by a free, never below zero.
func (c Counts) Outstanding() uint64 {
	if c.Allocs > c.Frees {
		return c.Allocs - c.Frees
	}
	return 0
}

// Block is a region handed out by an Allocator.
type Block struct {
	data  []byte
	addr  uintptr
	freed bool
}

// Bytes returns the block's memory. It is nil once the block is freed.
func (b *Block) Bytes() []byte { return b.data }

// Len returns the block size in bytes.
func (b *Block) Len() int { return len(b.data) }

// Addr returns the block's address.
func (b *Block) Addr() uintptr { return b.addr }

// Freed reports whether the block has been released.
func (b *Block) Freed() bool { return b.freed }

type observerBox struct {
	o Observer
}

// Allocator is the instrumented allocation facade.
// The zero value is ready to use and has no observer.
type Allocator struct {
	allocs   atomic.Uint64
	frees    atomic.Uint64
	observer atomic.Pointer[observerBox]
}

// New creates an Allocator with zeroed counters.
func New() *Allocator {
	return &Allocator{}
}

// SetObserver installs o as the event sink and returns the previous one.
// A nil o stops forwarding; counting continues.
func (a *Allocator) SetObserver(o Observer) Observer {
	var box *observerBox
	if o != nil {
		box = &observerBox{o: o}
	}
	prev := a.observer.Swap(box)
	if prev == nil {
		return nil
	}
	return prev.o
}

// Observer returns the active observer, or nil.
func (a *Allocator) Observer() Observer {
	if box := a.observer.Load(); box != nil {
		return box.o
	}
	return nil
}

// Counts returns a snapshot of the counters.
func (a *Allocator) Counts() Counts {
	return Counts{Allocs: a.allocs.Load(), Frees: a.frees.Load()}
}

// Reset zeroes both counters.
func (a *Allocator) Reset() {
	a.allocs.Store(0)
	a.frees.Store(0)
}

// Malloc allocates a block of size bytes.
func (a *Allocator) Malloc(size int) (*Block, error) { return a.malloc(size, true) }

// Calloc allocates n*size zeroed bytes.
func (a *Allocator) Calloc(n, size int) (*Block, error) { return a.calloc(n, size, true) }

// Realloc resizes b to size bytes, preserving the common prefix.
// A nil b allocates; a zero size frees b and returns nil.
func (a *Allocator) Realloc(b *Block, size int) (*Block, error) { return a.realloc(b, size, true) }

// Free releases b. Freeing nil is a no-op.
func (a *Allocator) Free(b *Block) error { return a.free(b, true) }

// Unobserved returns a handle that allocates from a and updates its
// counters without notifying the observer. An observer that allocates
// inside its own callback uses it so the event is counted once and never
// forwarded back into itself.
func (a *Allocator) Unobserved() Unobserved { return Unobserved{a: a} }

// Unobserved allocates through an Allocator without forwarding events.
type Unobserved struct {
	a *Allocator
}

// Malloc allocates a block of size bytes.
func (u Unobserved) Malloc(size int) (*Block, error) { return u.a.malloc(size, false) }

// Calloc allocates n*size zeroed bytes.
func (u Unobserved) Calloc(n, size int) (*Block, error) { return u.a.calloc(n, size, false) }

// Realloc resizes b to size bytes.
func (u Unobserved) Realloc(b *Block, size int) (*Block, error) { return u.a.realloc(b, size, false) }

// Free releases b.
func (u Unobserved) Free(b *Block) error { return u.a.free(b, false) }

func (a *Allocator) malloc(size int, notify bool) (*Block, error) {
	if size < 0 {
		return nil, ErrNegativeSize
	}
	b := newBlock(size)
	a.allocated(size, b.addr, notify)
	return b, nil
}

func (a *Allocator) calloc(n, size int, notify bool) (*Block, error) {
	if n < 0 || size < 0 {
		return nil, ErrNegativeSize
	}
	if size != 0 && n > math.MaxInt/size {
		return nil, ErrOverflow
	}
	return a.malloc(n*size, notify)
}

func (a *Allocator) realloc(b *Block, size int, notify bool) (*Block, error) {
	if b == nil {
		return a.malloc(size, notify)
	}
	if b.freed {
		return nil, ErrFreed
	}
	if size < 0 {
		return nil, ErrNegativeSize
	}
	if size == 0 {
		return nil, a.free(b, notify)
	}

	nb := newBlock(size)
	copy(nb.data, b.data)
	a.allocated(size, nb.addr, notify)
	a.release(b, notify)
	return nb, nil
}

func (a *Allocator) free(b *Block, notify bool) error {
	if b == nil {
		return nil
	}
	if b.freed {
		return ErrFreed
	}
	a.release(b, notify)
	return nil
}

// allocated counts one allocation and, if notify is set, forwards it.
// Every goroutine forwards its own events; observers handle their own
// synchronisation.
func (a *Allocator) allocated(size int, addr uintptr, notify bool) {
	a.allocs.Add(1)
	if !notify {
		return
	}
	if o := a.Observer(); o != nil {
		o.OnAlloc(size, addr)
	}
}

func (a *Allocator) release(b *Block, notify bool) {
	addr := b.addr
	b.data = nil
	b.freed = true

	a.frees.Add(1)
	if !notify {
		return
	}
	if o := a.Observer(); o != nil {
		o.OnFree(addr)
	}
}

func newBlock(size int) *Block {
	// Zero-size blocks still get a distinct address, like malloc(0).
	buf := make([]byte, max(size, 1))[:size]
	return &Block{
		data: buf,
		addr: uintptr(unsafe.Pointer(unsafe.SliceData(buf))),
	}
}

// Default is the process-wide allocator used by the package-level functions
// and by the runner unless a run supplies its own.
var Default = New()

// Malloc allocates through Default.
func Malloc(size int) (*Block, error) { return Default.Malloc(size) }

// Calloc allocates zeroed memory through Default.
func Calloc(n, size int) (*Block, error) { return Default.Calloc(n, size) }

// Realloc resizes through Default.
func Realloc(b *Block, size int) (*Block, error) { return Default.Realloc(b, size) }

// Free releases through Default.
func Free(b *Block) error { return Default.Free(b) }
