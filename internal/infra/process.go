package infra

import (
	"os"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// ProcessManagerImpl implements domain.ProcessManager using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// FindByArgs returns PIDs of processes whose argv satisfies match.
func (pm *ProcessManagerImpl) FindByArgs(match func(args []string) bool) ([]int, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	var found []int
	for _, p := range procs {
		args, err := p.CmdlineSlice()
		if err != nil || len(args) == 0 {
			continue // Process may have exited, or belongs to another user
		}
		if match(args) {
			found = append(found, int(p.Pid))
		}
	}
	return found, nil
}

// Cmdline returns the argv of pid.
func (pm *ProcessManagerImpl) Cmdline(pid int) ([]string, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, err
	}
	return p.CmdlineSlice()
}

// Descendants walks the process tree below pid. Parents come before their children.
func (pm *ProcessManagerImpl) Descendants(pid int) ([]int, error) {
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, err
	}

	var out []int
	queue := []*process.Process{root}
	seen := map[int32]bool{root.Pid: true}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		children, err := p.Children()
		if err != nil {
			// process.ErrorNoChildren, or the subtree exited mid-walk
			continue
		}
		for _, c := range children {
			if seen[c.Pid] {
				continue
			}
			seen[c.Pid] = true
			out = append(out, int(c.Pid))
			queue = append(queue, c)
		}
	}
	return out, nil
}

// Terminate sends SIGTERM.
func (pm *ProcessManagerImpl) Terminate(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Terminate()
}

// Kill terminates a process by PID using SIGKILL.
func (pm *ProcessManagerImpl) Kill(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Kill()
}

// IsRunning checks if a PID exists and is running.
func (pm *ProcessManagerImpl) IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	// On Unix, FindProcess always succeeds
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Send signal 0 to check if process exists
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false
	}

	// A terminated child we have not reaped still answers signal 0
	if p, err := process.NewProcess(int32(pid)); err == nil {
		if status, err := p.Status(); err == nil {
			for _, s := range status {
				if s == process.Zombie {
					return false
				}
			}
		}
	}
	return true
}

// GetCurrentPID returns the current process PID.
func (pm *ProcessManagerImpl) GetCurrentPID() int {
	return os.Getpid()
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)
