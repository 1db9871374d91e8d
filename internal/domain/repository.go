package domain

import (
	"context"
	"time"
)

// SignalStore gives typed access to the shared signal files.
// Implementation: one plain-text file per channel in a shared directory.
//
// Each channel has at most one writing process. There is no locking; writes are
// atomic (temp file + rename) so readers never observe a torn payload.
type SignalStore interface {
	// Publish replaces the channel content atomically and makes it world read/write.
	Publish(channel Channel, payload []byte) error

	// Consume returns the current content and clears the channel.
	// A second Consume without an intervening Publish returns false.
	Consume(channel Channel) ([]byte, bool)

	// Peek returns the current content without clearing it.
	Peek(channel Channel) ([]byte, bool)

	// Exists reports whether the channel file is present.
	Exists(channel Channel) bool

	// Prepare creates the signal directory and channel files before any role
	// starts polling, and removes a stale stop flag.
	Prepare() error

	// Path returns the file path backing a channel.
	Path(channel Channel) string
}

// FrameSampler captures a screen region.
type FrameSampler interface {
	Sample(ctx context.Context, region Rect) (*Frame, error)
}

// ActionExecutor performs UI side effects. Failures are returned, never retried.
type ActionExecutor interface {
	// Click presses the pointer at a position.
	Click(ctx context.Context, p Position) error

	// FocusAndSubmit focuses the target app, clicks p, then sends the submit gesture.
	FocusAndSubmit(ctx context.Context, p Position) error

	// TypeAndSubmit pastes text at p, then sends the submit gesture.
	TypeAndSubmit(ctx context.Context, text string, p Position) error
}

// PointerTracker reports the current pointer position.
type PointerTracker interface {
	Position() (Position, error)
}

// StopChecker is consulted at the top of every loop iteration.
type StopChecker interface {
	ShouldStop() bool
}

// Clock is the time source of polling loops. Tests use a fake whose Sleep
// advances Now.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// FindByArgs returns PIDs whose argv satisfies match.
	FindByArgs(match func(args []string) bool) ([]int, error)

	// Cmdline returns the argv of pid.
	Cmdline(pid int) ([]string, error)

	// Descendants returns all children of pid, recursively, parents before children.
	Descendants(pid int) ([]int, error)

	// Terminate asks a process to exit (SIGTERM).
	Terminate(pid int) error

	// Kill terminates a process by PID (SIGKILL).
	Kill(pid int) error

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// SessionHost hosts role processes in a terminal multiplexer session.
// Implementation: tmux.
type SessionHost interface {
	// Available reports whether the multiplexer binary can be used.
	Available() bool

	// HasSession checks if a session with this name exists.
	HasSession(name string) bool

	// NewSession creates a detached session and returns its first pane ID.
	NewSession(name, workDir string) (string, error)

	// SplitPane adds a pane to the session and returns its ID.
	SplitPane(name, workDir string) (string, error)

	// SendCommand types a command line into a pane and presses Enter.
	SendCommand(paneID, command string) error

	// Tile evens out the pane layout.
	Tile(name string) error

	// KillSession removes the session. A missing session is not an error.
	KillSession(name string) error
}

// SessionRegistry persists the process group so any process can find it.
// Implementation: hidden JSON file in the signal directory.
type SessionRegistry interface {
	// Create writes a fresh group record, replacing any previous one.
	Create(group ProcessGroup) error

	// Register records the calling role process in the group.
	Register(proc RoleProcess) error

	// Load returns the current group, or nil if none is recorded.
	Load() (*ProcessGroup, error)

	// Clear removes the record. A missing record is not an error.
	Clear() error

	// GetRegistryPath returns the registry file path (for tests).
	GetRegistryPath() string
}
