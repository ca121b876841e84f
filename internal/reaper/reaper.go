//go:build unix

// Package reaper implements C6: a non-blocking SIGCHLD harvester and a
// periodic monitor that reconciles the job table; the prompt reads the
// background-job hint from the table's shared counter through
// jobtable.PromptHint. Grounded on zmux-server's
// processmgr.ProcessManager supervise loop — a dedicated goroutine
// selecting on a ticker and a notification channel rather than doing
// work inside a signal handler.
package reaper

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jsnshll/myshell/internal/jobtable"
)

// Monitor owns the single goroutine permitted to reconcile the job
// table from asynchronous child-state changes. The SIGCHLD handler
// itself never runs user code; os/signal's channel delivery already
// defers everything past the async-signal-safety boundary into Go's
// runtime-owned forwarding goroutine, so the handler this package
// "installs" is just a channel read loop — no allocation, logging, or
// lock acquisition happens on the signal-delivery path itself.
type Monitor struct {
	log      *zap.Logger
	table    *jobtable.Table
	interval time.Duration

	sigchld chan os.Signal
	stop    chan struct{}
	done    chan struct{}
}

// NewMonitor constructs a Monitor. Jobcontrol signals other than
// SIGCHLD (SIGINT, SIGTSTP, SIGQUIT, SIGTTIN, SIGTTOU) are ignored
// entirely by this process — they are never delivered to user code, so
// they need no channel here; only SIGCHLD needs reconciliation.
func NewMonitor(log *zap.Logger, table *jobtable.Table, interval time.Duration) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Monitor{
		log:      log.Named("reaper"),
		table:    table,
		interval: interval,
		sigchld:  make(chan os.Signal, 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// InstallSignalDiscipline ignores the job-control signals the shell
// process itself must never act on, and arranges for SIGCHLD to be
// delivered to this Monitor's channel instead of terminating or
// stopping the shell.
//
// SIGINT is ignored here too, but internal/linesource calls
// signal.Notify for SIGINT around each blocking read — a later Notify
// call reroutes delivery to that channel for as long as it's active,
// which is exactly the "ignore it everywhere except while reading a
// line" behavior an interactive shell wants.
func InstallSignalDiscipline(sigchld chan<- os.Signal) {
	signal.Ignore(syscall.SIGINT, syscall.SIGTSTP, syscall.SIGQUIT, syscall.SIGTTIN, syscall.SIGTTOU)
	signal.Notify(sigchld, syscall.SIGCHLD)
}

// Start launches the monitor goroutine. It drains both the SIGCHLD
// channel (a non-blocking reap per notification) and a ticker at the
// configured interval (the periodic liveness sweep). The sweep adjusts
// the table's background counter; the monitor publishes no separate
// prompt value.
func (m *Monitor) Start() {
	InstallSignalDiscipline(m.sigchld)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.stop:
				return
			case <-m.sigchld:
				m.reap()
				m.table.MarkDoneIfNoPidsAlive()
			case <-ticker.C:
				m.table.MarkDoneIfNoPidsAlive()
			}
		}
	}()
}

// Stop halts the monitor goroutine and waits for it to exit.
func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
}

// reap performs a non-blocking harvest of every reapable child,
// including stopped/continued transitions, discarding the individual
// statuses — state reconciliation happens uniformly via the job table's
// zero-signal liveness sweep immediately after, exactly as the design
// note prescribes: the handler only reaps, a thread that can block and
// acquire locks reconciles.
func (m *Monitor) reap() {
	for {
		var ws syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &ws, syscall.WNOHANG|syscall.WUNTRACED|syscall.WCONTINUED, nil)
		if err != nil || pid <= 0 {
			return
		}
	}
}
