package jobtable

import "sync"

// idAllocator hands out Job identifiers: a monotonically increasing
// counter initialized at 1, identifiers never reused. Grounded on
// zmux-server's PIDAllocator (internal/infrastructure/processmgr), which
// manages a wrap-around PID space with an in-use set; Job identifiers
// have no kernel-imposed ceiling and no recycling requirement, so the
// wrap-around and release bookkeeping that allocator needed is dropped —
// alloc() is the whole allocator.
type idAllocator struct {
	mu   sync.Mutex
	next int64
}

func newIDAllocator() *idAllocator {
	return &idAllocator{next: 1}
}

// alloc returns the next fresh identifier.
func (a *idAllocator) alloc() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.next
	a.next++
	return id
}
