package ffi

import (
	"sync"
	"unsafe"
)

// Tracking is an Allocator over Go memory that records every live block.
// Tests use it to prove that each New*/Free* pair leaves nothing behind
// and that releases never touch a block twice.
type Tracking struct {
	mu          sync.Mutex
	live        map[uintptr][]uint64
	allocs      int
	doubleFrees int

	// FailAt makes the FailAt-th Malloc (1-based) return nil. Zero never fails.
	FailAt int
}

// NewTracking returns an empty tracking allocator.
func NewTracking() *Tracking {
	return &Tracking{live: make(map[uintptr][]uint64)}
}

func (t *Tracking) Malloc(n uintptr) unsafe.Pointer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allocs++
	if t.FailAt > 0 && t.allocs == t.FailAt {
		return nil
	}
	// Word-sized backing keeps every block pointer-aligned.
	buf := make([]uint64, (n+7)/8+1)
	p := unsafe.Pointer(&buf[0])
	t.live[uintptr(p)] = buf
	return p
}

func (t *Tracking) Free(p unsafe.Pointer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.live[uintptr(p)]; !ok {
		t.doubleFrees++
		return
	}
	delete(t.live, uintptr(p))
}

// Live returns the number of blocks not yet freed.
func (t *Tracking) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// Allocs returns the number of Malloc calls, failed ones included.
func (t *Tracking) Allocs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allocs
}

// BadFrees returns how often Free saw a pointer it did not hand out or
// had already released.
func (t *Tracking) BadFrees() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doubleFrees
}
