package infra

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner abstracts command execution for testing
type CommandRunner interface {
	// Run executes a command and returns its stdout. On failure the error
	// carries the trimmed stderr.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// RealCommandRunner executes real system commands
type RealCommandRunner struct{}

// Run executes a command and waits for it to complete
func (r *RealCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return stdout.Bytes(), fmt.Errorf("%s: %w", name, err)
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return stdout.Bytes(), nil
}

// Ensure RealCommandRunner implements CommandRunner.
var _ CommandRunner = (*RealCommandRunner)(nil)
