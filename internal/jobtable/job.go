// Package jobtable owns the set of known jobs: the single source of
// truth the shell's launcher, builtins, reaper and monitor all read and
// mutate through one mutual-exclusion guard.
package jobtable

import "strconv"

// Status is the lifecycle state of a Job.
type Status int

const (
	Running Status = iota
	Stopped
	Done
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// Job is a launched Pipeline under job-table ownership. Callers that
// query the table receive a Job snapshot (a value copy); mutation only
// happens through Table methods under its lock.
type Job struct {
	ID         int64
	Pgid       int
	Command    string
	Status     Status
	Background bool
	Pids       []int
}

// Line renders the Job the way the jobs builtin prints it:
// "[id] pgid status command [&]".
func (j Job) Line() string {
	s := "[" + strconv.FormatInt(j.ID, 10) + "] " + strconv.Itoa(j.Pgid) + " " + j.Status.String() + " " + j.Command
	if j.Background {
		s += " &"
	}
	return s
}
