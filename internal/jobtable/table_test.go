//go:build unix

package jobtable

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAddFindRoundTrip(t *testing.T) {
	var bg int32
	tab := NewTable(nil, &bg)

	id := tab.NextID()
	require.NoError(t, tab.Add(Job{ID: id, Pgid: 4242, Command: "sleep 1", Status: Running}))

	j, err := tab.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, id, j.ID)

	j2, err := tab.FindByPgid(4242)
	require.NoError(t, err)
	assert.Equal(t, j.ID, j2.ID)
}

func TestTableIdentifiersNeverReused(t *testing.T) {
	var bg int32
	tab := NewTable(nil, &bg)

	ids := make(map[int64]bool)
	var last int64
	for i := 0; i < 50; i++ {
		id := tab.NextID()
		assert.Greater(t, id, last)
		assert.False(t, ids[id])
		ids[id] = true
		last = id
	}
}

func TestTableBackgroundCounterTracksRunningAndStopped(t *testing.T) {
	var bg int32
	tab := NewTable(nil, &bg)

	id := tab.NextID()
	require.NoError(t, tab.Add(Job{ID: id, Pgid: 100, Status: Running, Background: true}))
	assert.Equal(t, 1, PromptHint(&bg))

	require.NoError(t, tab.SetStatus(id, Stopped))
	require.NoError(t, tab.SetBackground(id, false))
	// Stopped jobs stay outstanding even when not background.
	assert.Equal(t, 1, PromptHint(&bg))

	require.NoError(t, tab.SetStatus(id, Done))
	assert.Equal(t, 0, PromptHint(&bg))
}

func TestTableMarkDoneSweepsExitedJobs(t *testing.T) {
	var bg int32
	tab := NewTable(nil, &bg)

	cmd := exec.Command("/bin/sleep", "0")
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid
	defer cmd.Wait()

	// Wait for the real exit so the liveness probe sees it gone.
	_ = cmd.Wait()

	id := tab.NextID()
	require.NoError(t, tab.Add(Job{ID: id, Pgid: pid, Status: Running, Pids: []int{pid}, Background: true}))
	assert.Equal(t, 1, PromptHint(&bg))

	tab.MarkDoneIfNoPidsAlive()

	_, err := tab.FindByID(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, PromptHint(&bg))
}

func TestAnyAliveDetectsCurrentProcess(t *testing.T) {
	assert.True(t, anyAlive([]int{os.Getpid()}))
	assert.False(t, anyAlive([]int{-1}))
}
