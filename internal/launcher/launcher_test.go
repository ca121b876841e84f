//go:build unix

package launcher

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsnshll/myshell/internal/shellsyntax"
)

func cmd(argv ...string) *shellsyntax.Command {
	return &shellsyntax.Command{Argv: argv}
}

func TestLaunchSingleStageProcessGroup(t *testing.T) {
	p := &shellsyntax.Pipeline{Commands: []*shellsyntax.Command{cmd("/bin/sleep", "0")}}
	res, err := Launch(nil, p)
	require.NoError(t, err)
	require.Len(t, res.Pids, 1)
	assert.Equal(t, res.Pids[0], res.Pgid)

	pgid, err := syscall.Getpgid(res.Pids[0])
	require.NoError(t, err)
	assert.Equal(t, res.Pgid, pgid)

	assert.Equal(t, 0, res.Wait())
}

func TestLaunchPipelineSharesOneProcessGroup(t *testing.T) {
	p := &shellsyntax.Pipeline{Commands: []*shellsyntax.Command{
		cmd("/bin/echo", "hello"),
		cmd("/bin/cat"),
	}}
	res, err := Launch(nil, p)
	require.NoError(t, err)
	require.Len(t, res.Pids, 2)
	for _, pid := range res.Pids {
		pgid, err := syscall.Getpgid(pid)
		require.NoError(t, err)
		assert.Equal(t, res.Pgid, pgid)
	}
	assert.Equal(t, 0, res.Wait())
}

func TestLaunchOutputRedirection(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	p := &shellsyntax.Pipeline{Commands: []*shellsyntax.Command{
		{Argv: []string{"/bin/echo", "hi"}, OutputPath: out},
	}}
	res, err := Launch(nil, p)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Wait())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", string(data))
}

func TestLaunchAppendRedirection(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(out, []byte("first\n"), 0644))

	p := &shellsyntax.Pipeline{Commands: []*shellsyntax.Command{
		{Argv: []string{"/bin/echo", "second"}, OutputPath: out, AppendOut: true},
	}}
	res, err := Launch(nil, p)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Wait())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestLaunchFirstStageExecNotFound(t *testing.T) {
	p := &shellsyntax.Pipeline{Commands: []*shellsyntax.Command{cmd("nonexistent_cmd_xyz")}}
	res, err := Launch(nil, p)
	assert.Nil(t, res)
	var notFound *ExecNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestLaunchExitStatusPropagates(t *testing.T) {
	p := &shellsyntax.Pipeline{Commands: []*shellsyntax.Command{cmd("/bin/sh", "-c", "exit 3")}}
	res, err := Launch(nil, p)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Wait())
}

func TestLaunchEmptyPipelineRejected(t *testing.T) {
	_, err := Launch(nil, &shellsyntax.Pipeline{})
	assert.Error(t, err)
}

func TestLaunchMissingInputFileFailsBeforeForking(t *testing.T) {
	p := &shellsyntax.Pipeline{Commands: []*shellsyntax.Command{
		{Argv: []string{"/bin/cat"}, InputPath: "/no/such/path/xyz"},
	}}
	_, err := Launch(nil, p)
	assert.Error(t, err)
}

// Simulates internal/reaper.InstallSignalDiscipline having set this
// process's SIGQUIT to SIG_IGN. A child that inherited that ignore
// verbatim (the bug resetJobControlSignals fixes) would survive
// `kill -QUIT $$` and run to completion; one that correctly got SIG_DFL
// across exec terminates by signal instead.
func TestLaunchChildGetsDefaultSignalDispositionNotShellsIgnore(t *testing.T) {
	signal.Ignore(syscall.SIGQUIT)
	t.Cleanup(func() { signal.Reset(syscall.SIGQUIT) })

	p := &shellsyntax.Pipeline{Commands: []*shellsyntax.Command{
		cmd("/bin/sh", "-c", "kill -QUIT $$; sleep 2"),
	}}
	res, err := Launch(nil, p)
	require.NoError(t, err)

	status := res.Wait()
	assert.Equal(t, 128+int(syscall.SIGQUIT), status)
}
