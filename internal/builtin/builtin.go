//go:build unix

// Package builtin implements C2: the closed set of commands the shell
// executes in-process rather than handing to the launcher — cd, pwd,
// exit, jobs, fg, bg, kill, history.
package builtin

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/jsnshll/myshell/internal/jobtable"
	"github.com/jsnshll/myshell/internal/linesource"
	"github.com/jsnshll/myshell/internal/termctl"
	"github.com/jsnshll/myshell/internal/waitpath"
)

// Names is the closed set of recognized builtin names. A single-Command
// Pipeline whose first argument matches bypasses the launcher entirely.
var Names = map[string]bool{
	"cd": true, "pwd": true, "exit": true, "jobs": true,
	"fg": true, "bg": true, "kill": true, "history": true,
}

// Dispatcher holds the collaborators builtins need: the job table, the
// terminal controller, the line source (for history), and somewhere to
// write output/diagnostics.
type Dispatcher struct {
	Log     *zap.Logger
	Table   *jobtable.Table
	Term    *termctl.Controller
	Lines   linesource.Source
	Stdout  io.Writer
	Stderr  io.Writer
	HomeDir func() string

	// Exit is called by the exit builtin with the requested status; the
	// read-eval loop supplies a function that records the status and ends
	// the loop, whose teardown then persists history.
	Exit func(status int)
}

// Run executes argv[0] as a builtin and returns the shell-visible exit
// status. Callers must check Names[argv[0]] first.
func (d *Dispatcher) Run(argv []string) int {
	switch argv[0] {
	case "cd":
		return d.cd(argv)
	case "pwd":
		return d.pwd()
	case "exit":
		return d.exit(argv)
	case "jobs":
		return d.jobs(argv)
	case "fg":
		return d.fg(argv)
	case "bg":
		return d.bg(argv)
	case "kill":
		return d.kill(argv)
	case "history":
		return d.history()
	default:
		fmt.Fprintf(d.Stderr, "%s: not a builtin\n", argv[0])
		return 1
	}
}

func (d *Dispatcher) cd(argv []string) int {
	target := d.HomeDir()
	if len(argv) > 1 {
		target = argv[1]
	}
	if err := os.Chdir(target); err != nil {
		fmt.Fprintf(d.Stderr, "cd: %s: %v\n", target, err)
	}
	// cd failure is non-fatal: the shell's own exit status is
	// unaffected either way.
	return 0
}

func (d *Dispatcher) pwd() int {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(d.Stderr, "pwd: %v\n", err)
		return 1
	}
	fmt.Fprintln(d.Stdout, wd)
	return 0
}

func (d *Dispatcher) exit(argv []string) int {
	status := 0
	if len(argv) > 1 {
		if n, err := strconv.Atoi(argv[1]); err == nil {
			status = n
		}
	}
	fmt.Fprintln(d.Stdout, "exit")
	if d.Exit != nil {
		d.Exit(status)
	}
	return status
}

func (d *Dispatcher) jobs(argv []string) int {
	verbose := len(argv) > 1 && argv[1] == "-l"
	for _, j := range d.Table.List() {
		fmt.Fprintln(d.Stdout, j.Line())
		if verbose {
			for _, pid := range j.Pids {
				fmt.Fprintf(d.Stdout, "\t%d\n", pid)
			}
		}
	}
	return 0
}

func (d *Dispatcher) fg(argv []string) int {
	job, err := d.resolveJob(argv)
	if err != nil {
		fmt.Fprintf(d.Stderr, "fg: %v\n", err)
		return 1
	}

	if job.Status == jobtable.Stopped {
		if err := syscall.Kill(-job.Pgid, syscall.SIGCONT); err != nil {
			fmt.Fprintf(d.Stderr, "fg: continue: %v\n", err)
		}
		_ = d.Table.SetStatus(job.ID, jobtable.Running)
		job.Status = jobtable.Running
	}
	_ = d.Table.SetBackground(job.ID, false)

	waitpath.WaitForJob(d.Log, d.Table, d.Term, &job)
	return 0
}

func (d *Dispatcher) bg(argv []string) int {
	job, err := d.resolveJob(argv)
	if err != nil {
		fmt.Fprintf(d.Stderr, "bg: %v\n", err)
		return 1
	}

	if job.Status != jobtable.Running {
		if err := syscall.Kill(-job.Pgid, syscall.SIGCONT); err != nil {
			fmt.Fprintf(d.Stderr, "bg: continue: %v\n", err)
		}
		_ = d.Table.SetStatus(job.ID, jobtable.Running)
	}
	_ = d.Table.SetBackground(job.ID, true)
	return 0
}

func (d *Dispatcher) kill(argv []string) int {
	if len(argv) < 2 {
		fmt.Fprintln(d.Stderr, "kill: usage: kill %id | pgid")
		return 1
	}

	var pgid int
	if strings.HasPrefix(argv[1], "%") {
		job, err := d.resolveJob(argv)
		if err != nil {
			fmt.Fprintf(d.Stderr, "kill: %v\n", err)
			return 1
		}
		pgid = job.Pgid
	} else {
		n, err := strconv.Atoi(argv[1])
		if err != nil {
			fmt.Fprintf(d.Stderr, "kill: invalid pgid: %s\n", argv[1])
			return 1
		}
		pgid = n
	}

	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
		fmt.Fprintf(d.Stderr, "kill: %v\n", err)
		return 1
	}
	return 0
}

func (d *Dispatcher) history() int {
	for i, line := range d.Lines.Enumerate() {
		fmt.Fprintf(d.Stdout, "%5d  %s\n", i+1, line)
	}
	return 0
}

// resolveJob implements the shared "%id | id" argument form used by fg,
// bg, and kill.
func (d *Dispatcher) resolveJob(argv []string) (jobtable.Job, error) {
	if len(argv) < 2 {
		return jobtable.Job{}, fmt.Errorf("usage: %s %%id | id", argv[0])
	}
	raw := strings.TrimPrefix(argv[1], "%")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return jobtable.Job{}, fmt.Errorf("invalid job id: %s", argv[1])
	}
	return d.Table.FindByID(id)
}
