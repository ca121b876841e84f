// Package linesource implements the shell's pluggable line-source
// collaborator: read_line, add, enumerate, and a save-on-teardown
// contract for persisted history.
package linesource

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/jsnshll/myshell/internal/historystore"
)

// Source is the external collaborator the read-eval loop and the
// history builtin talk to. ReadLine returns ok=false on EOF or on any
// other read error.
type Source interface {
	ReadLine(prompt string) (line string, ok bool)
	Add(line string)
	Enumerate() []string
	Close() error
}

// Default is the default Source: a buffered reader over an input
// stream, an in-memory history buffer, and an optional durable backend
// flushed at Close (the "save-on-teardown" contract).
type Default struct {
	r    *bufio.Reader
	w    io.Writer
	mu   sync.Mutex
	hist []string

	backend     historystore.Backend
	loadedCount int // len(hist) contributed by backend.List at construction
}

// NewDefault constructs a Default line source over in/out. If backend is
// non-nil, prior history is loaded from it immediately and every line
// accumulated this session is written back on Close.
func NewDefault(in io.Reader, out io.Writer, backend historystore.Backend) *Default {
	d := &Default{
		r:       bufio.NewReader(in),
		w:       out,
		backend: backend,
	}
	if backend != nil {
		if lines, err := backend.List(context.Background()); err == nil {
			d.hist = append(d.hist, lines...)
			d.loadedCount = len(lines)
		}
	}
	return d
}

// ReadLine prints prompt, then reads one line. A SIGINT delivered while
// waiting for input returns ("", true) — an empty, non-EOF line — so the
// read-eval loop simply reprompts instead of treating the interrupt as a
// fatal condition or a parse error.
func (d *Default) ReadLine(prompt string) (string, bool) {
	fmt.Fprint(d.w, prompt)

	lineCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		line, err := d.r.ReadString('\n')
		if err != nil && line == "" {
			errCh <- err
			return
		}
		lineCh <- line
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case line := <-lineCh:
		return strings.TrimRight(line, "\r\n"), true
	case err := <-errCh:
		if err == io.EOF {
			return "", false
		}
		return "", false
	case <-sigCh:
		fmt.Fprintln(d.w)
		return "", true
	}
}

// Add records line in the session's in-memory history. Persistence to
// the durable backend, if any, happens at Close.
func (d *Default) Add(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hist = append(d.hist, line)
}

// Enumerate returns every remembered line, oldest first.
func (d *Default) Enumerate() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.hist))
	copy(out, d.hist)
	return out
}

// Close flushes accumulated history to the durable backend, if
// configured. It is safe to call even when no backend was supplied.
func (d *Default) Close() error {
	if d.backend == nil {
		return nil
	}
	d.mu.Lock()
	lines := append([]string(nil), d.hist[d.loadedCount:]...)
	d.mu.Unlock()

	ctx := context.Background()
	for _, l := range lines {
		if err := d.backend.Append(ctx, l); err != nil {
			return fmt.Errorf("linesource: flush history: %w", err)
		}
	}
	return nil
}
