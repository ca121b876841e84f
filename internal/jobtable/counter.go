package jobtable

import "sync/atomic"

// incBg/decBg adjust the shared background counter. The
// counter is owned by the caller (internal/shell) and handed to the
// Table by pointer so the monitor, the wait path, and Table mutations
// all publish to the same atomic cell without the Table importing its
// owner.
func (t *Table) incBg() {
	if t.bgCount != nil {
		atomic.AddInt32(t.bgCount, 1)
	}
}

func (t *Table) decBg() {
	if t.bgCount != nil {
		atomic.AddInt32(t.bgCount, -1)
	}
}

// PromptHint reads the shared counter and clamps it at zero, so a
// transient negative reading from a race between decrement and display
// never surfaces to the user.
func PromptHint(bgCounter *int32) int {
	if bgCounter == nil {
		return 0
	}
	n := atomic.LoadInt32(bgCounter)
	if n < 0 {
		return 0
	}
	return int(n)
}
