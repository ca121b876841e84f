//go:build unix

package builtin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsnshll/myshell/internal/jobtable"
	"github.com/jsnshll/myshell/internal/linesource"
)

func newDispatcher(t *testing.T) (*Dispatcher, *strings.Builder, *strings.Builder) {
	t.Helper()
	var out, errw strings.Builder
	table := jobtable.NewTable(nil, new(int32))
	lines := linesource.NewDefault(strings.NewReader(""), &strings.Builder{}, nil)
	return &Dispatcher{
		Table:   table,
		Lines:   lines,
		Stdout:  &out,
		Stderr:  &errw,
		HomeDir: func() string { return "/home/test" },
	}, &out, &errw
}

func TestPwdPrintsWorkingDirectory(t *testing.T) {
	d, out, _ := newDispatcher(t)
	status := d.Run([]string{"pwd"})
	assert.Equal(t, 0, status)
	assert.NotEmpty(t, out.String())
}

func TestExitCallsHookWithParsedStatus(t *testing.T) {
	d, _, _ := newDispatcher(t)
	var got int
	called := false
	d.Exit = func(status int) { got = status; called = true }

	d.Run([]string{"exit", "7"})
	assert.True(t, called)
	assert.Equal(t, 7, got)
}

func TestExitDefaultsToZero(t *testing.T) {
	d, _, _ := newDispatcher(t)
	var got int
	d.Exit = func(status int) { got = status }
	d.Run([]string{"exit"})
	assert.Equal(t, 0, got)
}

func TestJobsListsTableContents(t *testing.T) {
	d, out, _ := newDispatcher(t)
	require.NoError(t, d.Table.Add(jobtable.Job{ID: d.Table.NextID(), Pgid: 4242, Command: "sleep 5", Status: jobtable.Running, Background: true, Pids: []int{4242}}))

	d.Run([]string{"jobs"})
	assert.Contains(t, out.String(), "sleep 5")
	assert.Contains(t, out.String(), "4242")
}

func TestJobsVerboseListsPids(t *testing.T) {
	d, out, _ := newDispatcher(t)
	require.NoError(t, d.Table.Add(jobtable.Job{ID: d.Table.NextID(), Pgid: 111, Command: "a | b", Status: jobtable.Running, Pids: []int{111, 112}}))

	d.Run([]string{"jobs", "-l"})
	assert.Contains(t, out.String(), "111")
	assert.Contains(t, out.String(), "112")
}

func TestFgUnknownJobIsDiagnostic(t *testing.T) {
	d, _, errw := newDispatcher(t)
	status := d.Run([]string{"fg", "%99"})
	assert.Equal(t, 1, status)
	assert.Contains(t, errw.String(), "fg:")
}

func TestKillMissingArgumentIsUsageDiagnostic(t *testing.T) {
	d, _, errw := newDispatcher(t)
	status := d.Run([]string{"kill"})
	assert.Equal(t, 1, status)
	assert.Contains(t, errw.String(), "usage")
}

func TestHistoryEnumeratesLineSource(t *testing.T) {
	d, out, _ := newDispatcher(t)
	d.Lines.Add("echo one")
	d.Lines.Add("echo two")
	d.Run([]string{"history"})
	assert.Contains(t, out.String(), "echo one")
	assert.Contains(t, out.String(), "echo two")
}
