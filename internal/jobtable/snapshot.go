package jobtable

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Snapshotter coalesces concurrent List() calls behind a short TTL cache.
// Grounded on zmux-server's SummaryService (internal/service/channel_summary.go):
// same fast-path-fresh-cache / singleflight-coalesced-refresh shape, swapping
// a Redis-backed bulk-status refresh for an in-memory Table.List() call.
// The jobs builtin itself talks to Table directly; the
// admin HTTP API's GET /api/jobs uses the Snapshotter so a burst of
// polling clients doesn't each force a fresh table walk.
type Snapshotter struct {
	table *Table
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	cache   []Job
	expires time.Time

	sg singleflight.Group
}

// NewSnapshotter wires a Snapshotter over table with the given cache TTL.
func NewSnapshotter(table *Table, ttl time.Duration) *Snapshotter {
	if ttl <= 0 {
		ttl = 250 * time.Millisecond
	}
	return &Snapshotter{table: table, ttl: ttl, now: time.Now}
}

// Get returns the cached listing, refreshing it (once, even under
// concurrent callers) if it has expired.
func (s *Snapshotter) Get() []Job {
	s.mu.RLock()
	if s.cache != nil && s.now().Before(s.expires) {
		out := cloneJobs(s.cache)
		s.mu.RUnlock()
		return out
	}
	s.mu.RUnlock()

	v, _, _ := s.sg.Do("jobs-snapshot", func() (any, error) {
		s.mu.RLock()
		if s.cache != nil && s.now().Before(s.expires) {
			out := cloneJobs(s.cache)
			s.mu.RUnlock()
			return out, nil
		}
		s.mu.RUnlock()

		fresh := s.table.List()

		s.mu.Lock()
		s.cache = fresh
		s.expires = s.now().Add(s.ttl)
		s.mu.Unlock()

		return cloneJobs(fresh), nil
	})
	return v.([]Job)
}

// Invalidate drops the cached listing, forcing the next Get to refresh.
func (s *Snapshotter) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.expires = time.Time{}
	s.mu.Unlock()
}

func cloneJobs(in []Job) []Job {
	out := make([]Job, len(in))
	copy(out, in)
	return out
}
