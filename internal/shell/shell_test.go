//go:build unix

package shell

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsnshll/myshell/internal/linesource"
)

func newTestShell(t *testing.T) (*Shell, *strings.Builder) {
	t.Helper()
	lines := linesource.NewDefault(strings.NewReader(""), &strings.Builder{}, nil)
	s, err := New(nil, lines, nil, false, 20*time.Millisecond)
	require.NoError(t, err)

	var out strings.Builder
	s.stdout = &out
	s.stderr = &out
	return s, &out
}

// captureStdout runs fn with os.Stdout pointed at a temporary file and
// returns what was written there. Launched children inherit os.Stdout,
// not the Shell's own stdout writer.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "stdout")
	require.NoError(t, err)
	defer f.Close()

	orig := os.Stdout
	os.Stdout = f
	fn()
	os.Stdout = orig

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	return string(data)
}

func TestRunScriptExecutesSimpleCommand(t *testing.T) {
	s, _ := newTestShell(t)
	var status int
	got := captureStdout(t, func() { status = s.RunScript(strings.NewReader("/bin/echo hello\n")) })
	assert.Equal(t, 0, status)
	assert.Contains(t, got, "hello")
}

func TestRunScriptSkipsCommentsAndBlankLines(t *testing.T) {
	s, _ := newTestShell(t)
	script := "# a comment\n\n/bin/echo visible\n"
	got := captureStdout(t, func() { s.RunScript(strings.NewReader(script)) })
	assert.NotContains(t, got, "comment")
	assert.Contains(t, got, "visible")
}

func TestRunScriptRunsPipeline(t *testing.T) {
	s, _ := newTestShell(t)
	var status int
	got := captureStdout(t, func() { status = s.RunScript(strings.NewReader("/bin/echo one | /usr/bin/wc -l\n")) })
	assert.Equal(t, 0, status)
	assert.Contains(t, got, "1")
}

func TestRunScriptBuiltinPwd(t *testing.T) {
	s, out := newTestShell(t)
	s.RunScript(strings.NewReader("pwd\n"))
	assert.NotEmpty(t, out.String())
}

func TestRunScriptExitStopsEarly(t *testing.T) {
	s, out := newTestShell(t)
	status := s.RunScript(strings.NewReader("exit 5\n/bin/echo should_not_run\n"))
	assert.Equal(t, 5, status)
	assert.NotContains(t, out.String(), "should_not_run")
}

func TestPromptShowsNoJobsByDefault(t *testing.T) {
	s, _ := newTestShell(t)
	assert.NotContains(t, s.Prompt(), "jobs:")
}

func TestBackgroundPipelineAnnouncesAndReturnsImmediately(t *testing.T) {
	s, out := newTestShell(t)
	status := s.RunScript(strings.NewReader("/bin/sleep 0.2 &\n"))
	assert.Equal(t, 0, status)
	assert.Contains(t, out.String(), "sleep 0.2")
}

func TestRunScriptExecNotFoundSetsExitCode127(t *testing.T) {
	s, out := newTestShell(t)
	status := s.RunScript(strings.NewReader("nonexistent_cmd_xyz\n"))
	assert.Equal(t, 127, status)
	assert.NotEmpty(t, out.String())
}
