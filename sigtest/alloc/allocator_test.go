package alloc

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures forwarded events.
type recorder struct {
	allocs []int
	frees  []uintptr
	live   map[uintptr]int
}

func newRecorder() *recorder { return &recorder{live: make(map[uintptr]int)} }

func (r *recorder) OnAlloc(size int, addr uintptr) {
	r.allocs = append(r.allocs, size)
	r.live[addr] = size
}

func (r *recorder) OnFree(addr uintptr) {
	r.frees = append(r.frees, addr)
	delete(r.live, addr)
}

func TestAllocator_MallocFreeCounts(t *testing.T) {
	a := New()

	b1, err := a.Malloc(100)
	require.NoError(t, err)
	require.Len(t, b1.Bytes(), 100)
	b2, err := a.Malloc(8)
	require.NoError(t, err)

	require.NoError(t, a.Free(b1))
	assert.Equal(t, Counts{Allocs: 2, Frees: 1}, a.Counts())
	assert.Equal(t, uint64(1), a.Counts().Outstanding())

	require.NoError(t, a.Free(b2))
	assert.Equal(t, uint64(0), a.Counts().Outstanding())
}

func TestAllocator_FailedCallsNotCounted(t *testing.T) {
	a := New()

	_, err := a.Malloc(-1)
	require.ErrorIs(t, err, ErrNegativeSize)

	_, err = a.Calloc(math.MaxInt, 2)
	require.ErrorIs(t, err, ErrOverflow)

	assert.Equal(t, Counts{}, a.Counts())
}

func TestAllocator_ZeroSizeHasDistinctAddress(t *testing.T) {
	a := New()
	b1, err := a.Malloc(0)
	require.NoError(t, err)
	b2, err := a.Malloc(0)
	require.NoError(t, err)

	assert.NotZero(t, b1.Addr())
	assert.NotEqual(t, b1.Addr(), b2.Addr())
	assert.Equal(t, 0, b1.Len())
}

func TestAllocator_CallocZeroed(t *testing.T) {
	a := New()
	b, err := a.Calloc(4, 8)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), b.Bytes())
}

func TestAllocator_ObserverForwarding(t *testing.T) {
	a := New()
	rec := newRecorder()
	assert.Nil(t, a.SetObserver(rec))

	b, err := a.Malloc(42)
	require.NoError(t, err)
	require.Equal(t, []int{42}, rec.allocs)
	assert.Equal(t, 42, rec.live[b.Addr()])

	addr := b.Addr()
	require.NoError(t, a.Free(b))
	assert.Equal(t, []uintptr{addr}, rec.frees)
	assert.Empty(t, rec.live)

	prev := a.SetObserver(nil)
	assert.Same(t, rec, prev)

	_, err = a.Malloc(1)
	require.NoError(t, err)
	assert.Len(t, rec.allocs, 1, "no forwarding once the observer is removed")
	assert.Equal(t, uint64(2), a.Counts().Allocs, "counting continues without an observer")
}

func TestAllocator_Realloc(t *testing.T) {
	a := New()
	rec := newRecorder()
	a.SetObserver(rec)

	b, err := a.Realloc(nil, 4)
	require.NoError(t, err)
	copy(b.Bytes(), "abcd")

	nb, err := a.Realloc(b, 8)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(nb.Bytes()[:4]))
	assert.True(t, b.Freed())
	assert.Equal(t, Counts{Allocs: 2, Frees: 1}, a.Counts())
	assert.Equal(t, map[uintptr]int{nb.Addr(): 8}, rec.live)

	gone, err := a.Realloc(nb, 0)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.Equal(t, Counts{Allocs: 2, Frees: 2}, a.Counts())
	assert.Empty(t, rec.live)

	_, err = a.Realloc(nb, 4)
	require.ErrorIs(t, err, ErrFreed)
}

func TestAllocator_DoubleFree(t *testing.T) {
	a := New()
	b, err := a.Malloc(1)
	require.NoError(t, err)

	require.NoError(t, a.Free(b))
	require.ErrorIs(t, a.Free(b), ErrFreed)
	require.NoError(t, a.Free(nil))
	assert.Equal(t, uint64(1), a.Counts().Frees)
}

// reentrant allocates from inside its own callback.
type reentrant struct {
	a     *Allocator
	calls int
}

func (r *reentrant) OnAlloc(int, uintptr) {
	r.calls++
	u := r.a.Unobserved()
	b, _ := u.Malloc(16)
	_ = u.Free(b)
}

func (r *reentrant) OnFree(uintptr) { r.calls++ }

func TestAllocator_ReentrantObserverNotReforwarded(t *testing.T) {
	a := New()
	obs := &reentrant{a: a}
	a.SetObserver(obs)

	_, err := a.Malloc(1)
	require.NoError(t, err)

	assert.Equal(t, 1, obs.calls, "nested events must not reach the observer")
	assert.Equal(t, Counts{Allocs: 2, Frees: 1}, a.Counts(), "nested events are still counted once")
}

func TestAllocator_ConcurrentCounting(t *testing.T) {
	a := New()
	const workers, per = 8, 500

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range per {
				b, err := a.Malloc(32)
				if err != nil {
					return
				}
				_ = a.Free(b)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, Counts{Allocs: workers * per, Frees: workers * per}, a.Counts())
}

// slowCounter counts forwarded events and holds each callback open for a while.
type slowCounter struct {
	mu            sync.Mutex
	allocs, frees uint64
}

func (s *slowCounter) OnAlloc(int, uintptr) {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	s.allocs++
	s.mu.Unlock()
}

func (s *slowCounter) OnFree(uintptr) {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	s.frees++
	s.mu.Unlock()
}

func TestAllocator_ConcurrentEventsAllForwarded(t *testing.T) {
	a := New()
	obs := &slowCounter{}
	a.SetObserver(obs)
	const workers, per = 8, 20

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range per {
				b, err := a.Malloc(16)
				if err != nil {
					return
				}
				_ = a.Free(b)
			}
		}()
	}
	wg.Wait()

	counted := a.Counts()
	assert.Equal(t, Counts{Allocs: workers * per, Frees: workers * per}, counted)
	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, counted.Allocs, obs.allocs, "every allocation reaches the observer")
	assert.Equal(t, counted.Frees, obs.frees, "every free reaches the observer")
}

func TestAllocator_Reset(t *testing.T) {
	a := New()
	_, _ = a.Malloc(1)
	a.Reset()
	assert.Equal(t, Counts{}, a.Counts())
}

func TestCounts_Arithmetic(t *testing.T) {
	start := Counts{Allocs: 3, Frees: 1}
	end := Counts{Allocs: 10, Frees: 4}

	delta := end.Sub(start)
	assert.Equal(t, Counts{Allocs: 7, Frees: 3}, delta)
	assert.Equal(t, Counts{Allocs: 17, Frees: 7}, end.Add(delta))
	assert.Equal(t, uint64(0), Counts{Allocs: 1, Frees: 5}.Outstanding())
}
