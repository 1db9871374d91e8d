package infra

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// TmuxHost implements domain.SessionHost with the tmux CLI.
type TmuxHost struct {
	tmuxPath string
	runner   CommandRunner
}

// NewTmuxHost locates tmux on PATH.
func NewTmuxHost() *TmuxHost {
	tmuxPath, err := exec.LookPath("tmux")
	if err != nil {
		tmuxPath = "" // Available reports false
	}
	return &TmuxHost{tmuxPath: tmuxPath, runner: &RealCommandRunner{}}
}

// NewTmuxHostWithRunner creates a host with an injected command runner (for tests).
func NewTmuxHostWithRunner(r CommandRunner) *TmuxHost {
	return &TmuxHost{tmuxPath: "tmux", runner: r}
}

func (t *TmuxHost) run(args ...string) (string, error) {
	out, err := t.runner.Run(context.Background(), t.tmuxPath, args...)
	return strings.TrimSpace(string(out)), err
}

// Available reports whether tmux was found.
func (t *TmuxHost) Available() bool {
	return t.tmuxPath != ""
}

// HasSession checks if a session with this name exists.
func (t *TmuxHost) HasSession(name string) bool {
	if !t.Available() {
		return false
	}
	_, err := t.run("has-session", "-t", exactTarget(name))
	return err == nil
}

// NewSession creates a detached session and returns its first pane ID.
func (t *TmuxHost) NewSession(name, workDir string) (string, error) {
	paneID, err := t.run("new-session", "-d", "-s", name, "-c", workDir, "-P", "-F", "#{pane_id}")
	if err != nil {
		return "", fmt.Errorf("failed to create tmux session %s: %w", name, err)
	}
	return paneID, nil
}

// SplitPane adds a pane and re-tiles so later splits still have room.
func (t *TmuxHost) SplitPane(name, workDir string) (string, error) {
	paneID, err := t.run("split-window", "-t", exactTarget(name), "-c", workDir, "-P", "-F", "#{pane_id}")
	if err != nil {
		return "", fmt.Errorf("failed to split tmux session %s: %w", name, err)
	}
	if err := t.Tile(name); err != nil {
		return "", err
	}
	return paneID, nil
}

// SendCommand types a command line into a pane and presses Enter.
func (t *TmuxHost) SendCommand(paneID, command string) error {
	if _, err := t.run("send-keys", "-t", paneID, command, "Enter"); err != nil {
		return fmt.Errorf("failed to send command to pane %s: %w", paneID, err)
	}
	return nil
}

// Tile evens out the pane layout.
func (t *TmuxHost) Tile(name string) error {
	if _, err := t.run("select-layout", "-t", exactTarget(name), "tiled"); err != nil {
		return fmt.Errorf("failed to tile tmux session %s: %w", name, err)
	}
	return nil
}

// KillSession removes the session. A missing session or server is not an error.
func (t *TmuxHost) KillSession(name string) error {
	if !t.Available() {
		return nil
	}
	_, err := t.run("kill-session", "-t", exactTarget(name))
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "can't find session") ||
		strings.Contains(msg, "no server running") ||
		strings.Contains(msg, "error connecting to") {
		return nil
	}
	return fmt.Errorf("failed to kill tmux session %s: %w", name, err)
}

// Attach connects the calling terminal to the session.
func (t *TmuxHost) Attach(name string) error {
	cmd := exec.Command(t.tmuxPath, "attach-session", "-t", exactTarget(name))
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// exactTarget stops tmux from prefix-matching "automation" to "automation2".
func exactTarget(name string) string {
	return "=" + name
}

// Ensure TmuxHost implements domain.SessionHost.
var _ domain.SessionHost = (*TmuxHost)(nil)
