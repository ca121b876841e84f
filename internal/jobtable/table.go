//go:build unix

package jobtable

import (
	"errors"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a lookup finds no Job under the given key.
var ErrNotFound = errors.New("jobtable: job not found")

// Table is the job table: a mapping from identifier to Job
// plus a secondary pgid→id index, both owned exclusively by Table and
// guarded by one mutex. Its shape — an ordered id slice plus an id-keyed
// map, all mutation serialized by a single lock, membership checked
// in-process before any syscall — mirrors zmux-server's
// internal/repo/store.Store and internal/infrastructure/datastore.DataStore,
// which keep an ids slice and an id→position map over a Redis-backed
// record set; here the "backing store" is kernel process state instead
// of Redis, reached through the zero-signal liveness probe in
// markDoneIfNoPidsAlive rather than a GET.
type Table struct {
	log *zap.Logger

	mu      sync.Mutex
	byID    map[int64]*Job
	byPgid  map[int]int64 // pgid -> id
	order   []int64       // insertion order, for stable jobs listings
	ids     *idAllocator
	bgCount *int32 // shared with the caller-owned atomic counter, see counter.go
}

// NewTable constructs an empty job table.
func NewTable(log *zap.Logger, bgCounter *int32) *Table {
	if log == nil {
		log = zap.NewNop()
	}
	return &Table{
		log:     log.Named("jobtable"),
		byID:    make(map[int64]*Job),
		byPgid:  make(map[int]int64),
		ids:     newIDAllocator(),
		bgCount: bgCounter,
	}
}

// NextID reserves the next Job identifier without registering a Job. The
// shell calls this once a launch has started at least one child, and uses
// the id both for the Job it passes to Add and for the pipeline's
// printable "[id] pgid command" announcement.
func (t *Table) NextID() int64 {
	return t.ids.alloc()
}

// Add registers a new Job. id must have come from NextID and must not
// already be present; pgid must not already have a live Job.
func (t *Table) Add(j Job) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.byID[j.ID]; exists {
		return errors.New("jobtable: duplicate job id")
	}
	if _, exists := t.byPgid[j.Pgid]; exists {
		return errors.New("jobtable: pgid already has a live job")
	}

	jc := j
	t.byID[j.ID] = &jc
	t.byPgid[j.Pgid] = j.ID
	t.order = append(t.order, j.ID)

	if j.Background && j.Status == Running {
		t.incBg()
	}
	return nil
}

// FindByID returns a snapshot of the Job with the given id.
func (t *Table) FindByID(id int64) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.byID[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *j, nil
}

// FindByPgid returns a snapshot of the Job owning the given pgid.
func (t *Table) FindByPgid(pgid int) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byPgid[pgid]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *t.byID[id], nil
}

// List returns a snapshot of every known Job, in registration order.
func (t *Table) List() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Job, 0, len(t.order))
	for _, id := range t.order {
		if j, ok := t.byID[id]; ok {
			out = append(out, *j)
		}
	}
	return out
}

// SetStatus transitions a Job's status and keeps the background counter
// in step. The counter counts "outstanding" Jobs: those not Done that are
// background or Stopped. Moving a background Job into Stopped leaves the
// counter untouched, since the Job is outstanding before and after;
// moving a foreground Job into Stopped (the wait path's stop) increments
// it; resuming a non-background Stopped Job to Running, or moving an
// outstanding Job to Done, decrements it.
func (t *Table) SetStatus(id int64, status Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.byID[id]
	if !ok {
		return ErrNotFound
	}

	wasOutstanding := j.Status != Done && (j.Background || j.Status == Stopped)
	j.Status = status
	nowOutstanding := j.Status != Done && (j.Background || j.Status == Stopped)

	if wasOutstanding && !nowOutstanding {
		t.decBg()
	} else if !wasOutstanding && nowOutstanding {
		t.incBg()
	}
	return nil
}

// SetBackground flips a Job's background flag, used by the bg builtin.
// The background counter is reconciled the same way SetStatus
// reconciles it.
func (t *Table) SetBackground(id int64, background bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.byID[id]
	if !ok {
		return ErrNotFound
	}

	wasOutstanding := j.Status != Done && (j.Background || j.Status == Stopped)
	j.Background = background
	nowOutstanding := j.Status != Done && (j.Background || j.Status == Stopped)

	if wasOutstanding && !nowOutstanding {
		t.decBg()
	} else if !wasOutstanding && nowOutstanding {
		t.incBg()
	}
	return nil
}

// MarkDoneIfNoPidsAlive implements the periodic sweep: for
// each Job, zero-signal every recorded pid; if none answer and the Job
// is not already Done, mark it Done (decrementing the background
// counter for background Jobs) and erase it from both indices. This is
// the only place the lock is held across a syscall — a permitted
// exception because kill(pid, 0) never blocks.
func (t *Table) MarkDoneIfNoPidsAlive() {
	t.mu.Lock()
	defer t.mu.Unlock()

	var swept []int64
	for _, id := range t.order {
		j, ok := t.byID[id]
		if !ok || j.Status == Done {
			continue
		}

		if anyAlive(j.Pids) {
			continue
		}

		wasOutstanding := j.Background || j.Status == Stopped
		j.Status = Done
		if wasOutstanding {
			t.decBg()
		}
		swept = append(swept, id)
	}

	for _, id := range swept {
		j := t.byID[id]
		delete(t.byPgid, j.Pgid)
		delete(t.byID, id)
	}
	if len(swept) > 0 {
		t.order = compact(t.order, t.byID)
	}
}

func compact(order []int64, byID map[int64]*Job) []int64 {
	out := order[:0]
	for _, id := range order {
		if _, ok := byID[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// anyAlive reports whether at least one pid answers the zero signal.
func anyAlive(pids []int) bool {
	for _, pid := range pids {
		if pid <= 0 {
			continue
		}
		if err := syscall.Kill(pid, 0); err == nil {
			return true
		}
	}
	return false
}
