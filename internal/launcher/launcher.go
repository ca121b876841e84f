//go:build unix

// Package launcher implements C3: forking a Pipeline's Commands into a
// chain of processes wired by anonymous pipes, installed into one
// process group, with redirections applied.
//
// Go's os/exec does not give a program a hook to run arbitrary code
// between fork and exec in the child — there is no fork() without an
// immediate exec() available to pure Go code, because goroutines and the
// runtime scheduler are not fork-safe. Three consequences follow, all
// grounded on how two reference Go shells (driusan/gosh,
// atinylittleshell/gsh — see other_examples) and zmux-server's process
// supervisor (processmgr.newProcess) work around the same constraint:
//
//  1. Redirection files are opened by the parent before Start(), not in
//     the child the way a classic fork-then-redirect-then-exec shell
//     would do it; the observable effect — the child's stdin/stdout
//     point at the requested file — is identical, and an open failure is
//     reported before any process for that stage exists, which this
//     package treats as if that stage's child had exited 1 pre-exec.
//  2. A nonexistent or unresolvable program can't be discovered by
//     forking and watching execve fail — os/exec's Start() resolves the
//     path and forks/execs as one atomic, pipe-synchronized operation,
//     and returns a plain error with no process ever having run. This
//     package treats that as the stage having "exited 127", the
//     same externally visible outcome a real fork+exec shell would
//     produce, without a literal lingering process.
//  3. The job-control signal reset (SIGINT/SIGTSTP/SIGQUIT/SIGTTIN/
//     SIGTTOU to default) that a real fork+exec shell performs between
//     fork and exec needs explicit help here: internal/reaper installs
//     these five as SIG_IGN in the shell process (signal.Ignore), and
//     POSIX only resets a "caught" (handler-installed) disposition to
//     SIG_DFL across exec — an explicit SIG_IGN survives into the
//     child. Since Start() forks and execs as one atomic call with no
//     hook in between, resetJobControlSignals flips the shell's own
//     disposition to default for the narrow window bracketing each
//     Start() call, then restores the ignore immediately after — the
//     same signal the real child inherits across its own exec, at the
//     cost of a brief window where one of these five signals hitting
//     the shell process itself would take the default action instead
//     of being ignored.
package launcher

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jsnshll/myshell/internal/shellsyntax"
)

// jobControlSignals are ignored by the shell process (internal/reaper)
// but must reach each child with their default disposition.
var jobControlSignals = []os.Signal{
	syscall.SIGINT, syscall.SIGTSTP, syscall.SIGQUIT, syscall.SIGTTIN, syscall.SIGTTOU,
}

// resetJobControlSignals flips jobControlSignals to SIG_DFL and returns
// a restore func that puts them back to SIG_IGN. Call immediately
// before Start() and call the result immediately after.
func resetJobControlSignals() func() {
	signal.Reset(jobControlSignals...)
	return func() { signal.Ignore(jobControlSignals...) }
}

// ExecNotFoundError reports that a pipeline stage's program could not be
// resolved. The caller treats this the way it would treat a forked
// child that exited 127.
type ExecNotFoundError struct {
	Prog string
}

func (e *ExecNotFoundError) Error() string {
	return fmt.Sprintf("%s: command not found", e.Prog)
}

// Result describes a successfully launched pipeline.
type Result struct {
	Pgid int
	Pids []int
	cmds []*exec.Cmd
}

// Launch forks pipeline's Commands in order, wires them with pipes,
// applies redirections, and places them all in one process group.
// It never launches an Empty pipeline — callers must check that first.
//
// On success, at least one child has started; Result.Pids lists exactly
// the stages that did. If the first stage fails to start, Launch returns
// an error and no Result — the pipeline fails before any job is
// recorded. If a later stage fails, Launch still returns a Result for
// the stages that started — the already-forked children are left
// running under their group; the caller logs the failure and the
// monitor will eventually observe the orphaned stages.
func Launch(log *zap.Logger, p *shellsyntax.Pipeline) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("launcher")

	if p.Empty() {
		return nil, errors.New("launcher: empty pipeline")
	}

	n := len(p.Commands)
	cmds := make([]*exec.Cmd, n)
	var openFiles []*os.File
	closeOpenFiles := func() {
		for _, f := range openFiles {
			_ = f.Close()
		}
	}

	// Allocate N-1 anonymous pipes up front; on any
	// allocation failure, close whatever was already opened and fail
	// the whole launch before forking anything.
	type pipeEnds = struct{ r, w *os.File }
	pipes := make([]pipeEnds, 0, n-1)
	for i := 0; i < n-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			for _, pe := range pipes {
				pe.r.Close()
				pe.w.Close()
			}
			return nil, fmt.Errorf("launcher: pipe: %w", err)
		}
		pipes = append(pipes, pipeEnds{r, w})
	}

	for i, c := range p.Commands {
		cmd := exec.Command(c.Argv[0], c.Argv[1:]...)
		cmd.Stderr = os.Stderr

		if i > 0 {
			cmd.Stdin = pipes[i-1].r
		} else {
			cmd.Stdin = os.Stdin
		}
		if i < n-1 {
			cmd.Stdout = pipes[i].w
		} else {
			cmd.Stdout = os.Stdout
		}

		// Redirections override pipe wiring and are applied last.
		if c.InputPath != "" {
			f, err := os.Open(c.InputPath)
			if err != nil {
				closeOpenFiles()
				closePipes(pipes)
				log.Warn("redirection open failed", zap.String("path", c.InputPath), zap.Error(err))
				return nil, fmt.Errorf("launcher: redirection: %s: %w", c.InputPath, err)
			}
			openFiles = append(openFiles, f)
			cmd.Stdin = f
		}
		if c.OutputPath != "" {
			flags := os.O_WRONLY | os.O_CREATE
			if c.AppendOut {
				flags |= os.O_APPEND
			} else {
				flags |= os.O_TRUNC
			}
			f, err := os.OpenFile(c.OutputPath, flags, 0644)
			if err != nil {
				closeOpenFiles()
				closePipes(pipes)
				log.Warn("redirection open failed", zap.String("path", c.OutputPath), zap.Error(err))
				return nil, fmt.Errorf("launcher: redirection: %s: %w", c.OutputPath, err)
			}
			openFiles = append(openFiles, f)
			cmd.Stdout = f
		}

		cmds[i] = cmd
	}

	res := &Result{cmds: cmds}
	attr := &syscall.SysProcAttr{Setpgid: true}

	for i, cmd := range cmds {
		cmd.SysProcAttr = attr
		restore := resetJobControlSignals()
		err := cmd.Start()
		restore()
		if err != nil {
			closeOpenFiles()
			closePipes(pipes)
			if i == 0 {
				return nil, &ExecNotFoundError{Prog: cmd.Path}
			}
			log.Warn("stage failed to start; earlier stages left running",
				zap.Int("stage", i), zap.Error(err))
			return res, &ExecNotFoundError{Prog: cmd.Path}
		}

		pid := cmd.Process.Pid
		if attr.Pgid == 0 {
			attr.Pgid = pid
			res.Pgid = pid
		}
		// Redundant parent-side group assignment closes a
		// terminal-ownership race: the child sets its own pgid at
		// fork time via SysProcAttr, and the parent sets it again
		// here so a foreground handoff immediately after Start()
		// never races a child that hasn't executed its own setpgid
		// yet.
		_ = syscall.Setpgid(pid, attr.Pgid)

		res.Pids = append(res.Pids, pid)
	}

	closeOpenFiles()
	closePipes(pipes)

	return res, nil
}

func closePipes(pipes []struct{ r, w *os.File }) {
	for _, pe := range pipes {
		pe.r.Close()
		pe.w.Close()
	}
}

// Wait blocks until every started stage has exited, returning the exit
// status of the last stage — the conventional pipeline exit status.
func (r *Result) Wait() int {
	var last int
	for _, cmd := range r.cmds {
		if cmd.Process == nil {
			continue
		}
		err := cmd.Wait()
		last = exitCodeOf(err)
	}
	return last
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				return 128 + int(ws.Signal())
			}
			return ws.ExitStatus()
		}
		return ee.ExitCode()
	}
	return 1
}
