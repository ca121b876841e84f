//go:build unix

// Package waitpath implements the foreground-wait half of C5: blocking on
// a pipeline's process group, reconciling the observed transition into
// the job table, and handing the controlling terminal back to the shell
// when the shell is interactive.
package waitpath

import (
	"syscall"

	"go.uber.org/zap"

	"github.com/jsnshll/myshell/internal/jobtable"
	"github.com/jsnshll/myshell/internal/termctl"
)

// WaitForJob waits on any child in job's process group, with flags that
// also report a stop. It reconciles the job table and, when the shell is
// interactive, transfers the terminal to job's group before waiting and
// restores it to the shell's group afterward. It returns the raw wait
// status observed for the reaped child.
func WaitForJob(log *zap.Logger, table *jobtable.Table, term *termctl.Controller, job *jobtable.Job) syscall.WaitStatus {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("waitpath")

	if err := term.GiveTo(job.Pgid); err != nil {
		log.Warn("tcsetpgrp to foreground group failed", zap.Error(err))
	}

	var status syscall.WaitStatus
	for {
		var ws syscall.WaitStatus
		pid, err := syscall.Wait4(-job.Pgid, &ws, syscall.WUNTRACED|syscall.WCONTINUED, nil)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			// ECHILD: nothing left in the group to wait on.
			break
		}
		status = ws

		stopped := false
		switch {
		case ws.Stopped():
			_ = table.SetStatus(job.ID, jobtable.Stopped)
			_ = table.SetBackground(job.ID, false)
			log.Info("job stopped", zap.Int64("job", job.ID), zap.Int("pid", pid))
			stopped = true
		case ws.Exited() || ws.Signaled():
			table.MarkDoneIfNoPidsAlive()
		case ws.Continued():
			// A SIGCONT landed on a group we're already waiting on;
			// keep waiting for a terminal transition.
		}
		if stopped {
			break
		}

		if !anyPidAlive(job.Pids) {
			table.MarkDoneIfNoPidsAlive()
			break
		}
	}

	if err := term.RestoreToShell(); err != nil {
		log.Warn("tcsetpgrp back to shell failed", zap.Error(err))
	}
	return status
}

func anyPidAlive(pids []int) bool {
	for _, pid := range pids {
		if err := syscall.Kill(pid, 0); err == nil {
			return true
		}
	}
	return false
}
