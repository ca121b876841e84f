//go:build unix

// Package termctl owns the controlling terminal; the shell's own signal
// discipline lives in internal/reaper. It is grounded on two corpus shells'
// job-control plumbing — driusan/gosh's TIOCSPGRP dance around
// exec.Cmd, and atinylittleshell/gsh's tcgetpgrp/tcsetpgrp pair — ported
// from raw syscall.Syscall onto golang.org/x/sys/unix, which is what the
// teacher's own exec_unix.go reaches for when it needs unix signal
// numbers.
package termctl

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Controller owns the shell's relationship with its controlling
// terminal: who it's granted to, and the attributes saved at startup.
type Controller struct {
	log         *zap.Logger
	tty         *os.File
	shellPgid   int
	interactive bool
	saved       *unix.Termios
}

// New claims the controlling terminal for an interactive shell:
// it loops delivering SIGTTIN to its own process group until it owns
// the terminal (detaching from a non-cooperating parent session), makes
// itself its own process group leader, transfers the terminal to that
// group, and snapshots terminal attributes for later restoration.
//
// When interactive is false (script mode), New skips all of that
// and returns a Controller that treats every operation as a no-op —
// terminal ownership is only ever claimed while the shell is
// interactive.
func New(log *zap.Logger, interactive bool) (*Controller, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{log: log.Named("termctl"), interactive: interactive}
	if !interactive {
		return c, nil
	}

	tty := os.Stdin
	c.tty = tty
	fd := int(tty.Fd())

	shellPid := unix.Getpid()

	for {
		fg, err := tcgetpgrp(fd)
		if err != nil {
			return nil, fmt.Errorf("termctl: tcgetpgrp: %w", err)
		}
		if fg == unix.Getpgrp() {
			break
		}
		_ = unix.Kill(-unix.Getpgrp(), unix.SIGTTIN)
	}

	if err := unix.Setpgid(shellPid, shellPid); err != nil {
		return nil, fmt.Errorf("termctl: setpgid(self): %w", err)
	}
	c.shellPgid = shellPid

	if err := tcsetpgrp(fd, shellPid); err != nil {
		return nil, fmt.Errorf("termctl: tcsetpgrp(self): %w", err)
	}

	saved, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, fmt.Errorf("termctl: get termios: %w", err)
	}
	c.saved = saved

	// Job-control signal discipline (ignore SIGINT/SIGTSTP/SIGQUIT/SIGTTIN/
	// SIGTTOU, install SIGCHLD handling) is installed by internal/reaper,
	// which ignores the job-control signals outright and owns the single
	// monitor goroutine that drains the SIGCHLD channel.

	return c, nil
}

// ShellPgid returns the shell's own process group id.
func (c *Controller) ShellPgid() int { return c.shellPgid }

// Interactive reports whether this Controller is managing a real
// terminal.
func (c *Controller) Interactive() bool { return c.interactive }

// GiveTo transfers the controlling terminal to pgid. Foreground wait
// calls this before waiting on a pipeline's process group and
// again, with the shell's own pgid, after the wait returns — but only
// "if and only if the shell is interactive".
func (c *Controller) GiveTo(pgid int) error {
	if !c.interactive {
		return nil
	}
	return tcsetpgrp(int(c.tty.Fd()), pgid)
}

// RestoreToShell hands the terminal back to the shell's own group.
func (c *Controller) RestoreToShell() error {
	return c.GiveTo(c.shellPgid)
}

// RestoreAttrs re-applies the terminal attributes snapshotted at
// startup, for use after a child may have left the terminal in
// cbreak/raw mode. Neither the builtins, the launcher nor the wait path
// call it; a non-interactive Controller treats it as a no-op.
func (c *Controller) RestoreAttrs() error {
	if !c.interactive || c.saved == nil {
		return nil
	}
	return unix.IoctlSetTermios(int(c.tty.Fd()), ioctlSetTermios, c.saved)
}

func tcgetpgrp(fd int) (int, error) {
	pgrp, err := unix.IoctlGetInt(fd, unix.TIOCGPGRP)
	if err != nil {
		return 0, err
	}
	return pgrp, nil
}

func tcsetpgrp(fd int, pgrp int) error {
	return unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgrp)
}
