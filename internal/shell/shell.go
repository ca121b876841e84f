//go:build unix

// Package shell is the read-eval loop orchestrator: it owns the Shell
// state described by the data model (shell pgid, controlling terminal,
// saved attributes, background counter, interactive flag) and wires C1
// through C6 together on every line.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jsnshll/myshell/internal/builtin"
	"github.com/jsnshll/myshell/internal/config"
	"github.com/jsnshll/myshell/internal/jobtable"
	"github.com/jsnshll/myshell/internal/launcher"
	"github.com/jsnshll/myshell/internal/linesource"
	"github.com/jsnshll/myshell/internal/logsink"
	"github.com/jsnshll/myshell/internal/reaper"
	"github.com/jsnshll/myshell/internal/shellsyntax"
	"github.com/jsnshll/myshell/internal/termctl"
	"github.com/jsnshll/myshell/internal/waitpath"
)

// Shell holds the state one read-eval loop needs: its own process group,
// terminal ownership, the job table, and the collaborators supplied from
// outside the core (line source, log sink).
type Shell struct {
	log *zap.Logger

	Term    *termctl.Controller
	Table   *jobtable.Table
	Monitor *reaper.Monitor
	Lines   linesource.Source
	Log     logsink.Sink

	bgCounter *int32
	exitCode  int
	exited    bool

	stdout io.Writer
	stderr io.Writer
}

// New constructs a Shell. interactive controls whether terminal
// ownership and job control are exercised at all, distinguishing an
// interactive read-eval loop from a script run.
func New(log *zap.Logger, lines linesource.Source, sink logsink.Sink, interactive bool, monitorInterval time.Duration) (*Shell, error) {
	if log == nil {
		log = zap.NewNop()
	}

	term, err := termctl.New(log, interactive)
	if err != nil {
		return nil, fmt.Errorf("shell: terminal controller: %w", err)
	}

	bg := new(int32)
	table := jobtable.NewTable(log, bg)
	mon := reaper.NewMonitor(log, table, monitorInterval)
	mon.Start()

	return &Shell{
		log:       log,
		Term:      term,
		Table:     table,
		Monitor:   mon,
		Lines:     lines,
		Log:       sink,
		bgCounter: bg,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}, nil
}

// Prompt renders "myshell[jobs:N]:CWD$ " when N>0, else "myshell:CWD$ ".
func (s *Shell) Prompt() string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "?"
	}
	n := jobtable.PromptHint(s.bgCounter)
	if n > 0 {
		return fmt.Sprintf("myshell[jobs:%d]:%s$ ", n, wd)
	}
	return fmt.Sprintf("myshell:%s$ ", wd)
}

// RunInteractive drives the read-eval loop against s.Lines until EOF or
// an exit builtin runs.
func (s *Shell) RunInteractive() int {
	for !s.exited {
		line, ok := s.Lines.ReadLine(s.Prompt())
		if !ok {
			fmt.Fprintln(s.stdout)
			break
		}
		s.evalLine(line, true)
	}
	s.teardown()
	return s.exitCode
}

// RunScript executes every non-empty, non-comment line of r in sequence,
// then tears the shell down. Use this for the CLI's script-path mode,
// where the script is the whole run.
func (s *Shell) RunScript(r io.Reader) int {
	status := s.Source(r)
	s.teardown()
	return status
}

// Source executes every non-empty, non-comment line of r in sequence
// without tearing the shell down afterward, so the caller can run
// further input (interactive or scripted) through the same Shell
// instance. Used to source $HOME/.myshellrc before the main loop starts.
func (s *Shell) Source(r io.Reader) int {
	scanner := newLineScanner(r)
	for !s.exited && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.evalLine(line, false)
	}
	return s.exitCode
}

func (s *Shell) evalLine(line string, interactiveComment bool) {
	if interactiveComment && strings.HasPrefix(strings.TrimSpace(line), "#") {
		return
	}
	if strings.TrimSpace(line) == "" {
		return
	}

	s.Lines.Add(line)
	if s.Log != nil {
		s.Log.Log(line)
	}

	p := shellsyntax.Parse(line)
	if p.Empty() {
		return
	}

	if len(p.Commands) == 1 && builtin.Names[p.Commands[0].Argv[0]] {
		d := &builtin.Dispatcher{
			Log:     s.log,
			Table:   s.Table,
			Term:    s.Term,
			Lines:   s.Lines,
			Stdout:  s.stdout,
			Stderr:  s.stderr,
			HomeDir: config.HomeDir,
			Exit:    func(status int) { s.exitCode = status; s.exited = true },
		}
		s.exitCode = d.Run(p.Commands[0].Argv)
		return
	}

	s.launch(p)
}

func (s *Shell) launch(p *shellsyntax.Pipeline) {
	res, err := launcher.Launch(s.log, p)
	if res == nil {
		if err != nil {
			fmt.Fprintln(s.stderr, err)
			var notFound *launcher.ExecNotFoundError
			if errors.As(err, &notFound) {
				s.exitCode = 127
			} else {
				s.exitCode = 1
			}
		}
		return
	}

	id := s.Table.NextID()
	job := jobtable.Job{
		ID:         id,
		Pgid:       res.Pgid,
		Command:    p.String(),
		Status:     jobtable.Running,
		Background: p.Background,
		Pids:       res.Pids,
	}
	if addErr := s.Table.Add(job); addErr != nil {
		s.log.Warn("job table add failed", zap.Error(addErr))
	}

	if err != nil {
		fmt.Fprintln(s.stderr, err)
	}

	if p.Background {
		fmt.Fprintf(s.stdout, "[%d] %d %s\n", job.ID, job.Pgid, p.String())
		s.exitCode = 0
		return
	}

	ws := waitpath.WaitForJob(s.log, s.Table, s.Term, &job)
	s.exitCode = exitStatus(ws)
}

func (s *Shell) teardown() {
	s.Monitor.Stop()
	if err := s.Lines.Close(); err != nil {
		s.log.Warn("line source close failed", zap.Error(err))
	}
	if s.Log != nil {
		if err := s.Log.Close(); err != nil {
			s.log.Warn("log sink close failed", zap.Error(err))
		}
	}
}

// BackgroundCounter exposes the atomic prompt-hint cell for collaborators
// outside the core. Nothing inside this module calls it.
func (s *Shell) BackgroundCounter() *int32 { return s.bgCounter }

func exitStatus(ws syscall.WaitStatus) int {
	switch {
	case ws.Signaled():
		return 128 + int(ws.Signal())
	case ws.Stopped():
		return 128 + int(ws.StopSignal())
	default:
		return ws.ExitStatus()
	}
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	return bufio.NewScanner(r)
}
