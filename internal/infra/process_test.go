package infra

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSleeper(t *testing.T) *exec.Cmd {
	t.Helper()
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})
	return cmd
}

func TestProcessManager_CurrentProcess(t *testing.T) {
	pm := NewProcessManager()

	assert.Equal(t, os.Getpid(), pm.GetCurrentPID())
	assert.True(t, pm.IsRunning(os.Getpid()))
	assert.False(t, pm.IsRunning(0))
	assert.False(t, pm.IsRunning(-1))
}

func TestProcessManager_DescendantsIncludesChild(t *testing.T) {
	pm := NewProcessManager()
	cmd := startSleeper(t)

	pids, err := pm.Descendants(os.Getpid())
	require.NoError(t, err)
	assert.Contains(t, pids, cmd.Process.Pid)
}

func TestProcessManager_FindByArgs(t *testing.T) {
	pm := NewProcessManager()
	cmd := startSleeper(t)

	pids, err := pm.FindByArgs(func(args []string) bool {
		return len(args) == 2 && filepath.Base(args[0]) == "sleep" && args[1] == "30"
	})
	require.NoError(t, err)
	assert.Contains(t, pids, cmd.Process.Pid)
}

func TestProcessManager_Cmdline(t *testing.T) {
	pm := NewProcessManager()
	cmd := startSleeper(t)

	args, err := pm.Cmdline(cmd.Process.Pid)
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, "30", args[1])
}

func TestProcessManager_TerminateStopsProcess(t *testing.T) {
	pm := NewProcessManager()
	cmd := startSleeper(t)
	pid := cmd.Process.Pid

	require.NoError(t, pm.Terminate(pid))
	_, _ = cmd.Process.Wait()

	assert.Eventually(t, func() bool { return !pm.IsRunning(pid) }, 2*time.Second, 20*time.Millisecond)
}
