package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// pointerTimeout bounds one pointer query; the stop check has no context of its own.
const pointerTimeout = 2 * time.Second

// AppleScriptExecutor implements domain.ActionExecutor and domain.PointerTracker
// by driving System Events through `osascript`.
type AppleScriptExecutor struct {
	runner CommandRunner
	app    string // Process brought to front before focus gestures
}

// NewAppleScriptExecutor creates an executor targeting app (e.g. "Cursor").
func NewAppleScriptExecutor(app string) *AppleScriptExecutor {
	return &AppleScriptExecutor{runner: &RealCommandRunner{}, app: app}
}

// NewAppleScriptExecutorWithDeps creates an executor with injectable dependencies (for testing)
func NewAppleScriptExecutorWithDeps(runner CommandRunner, app string) *AppleScriptExecutor {
	return &AppleScriptExecutor{runner: runner, app: app}
}

// Click presses the pointer at p.
func (a *AppleScriptExecutor) Click(ctx context.Context, p domain.Position) error {
	script := fmt.Sprintf(`tell application "System Events" to click at {%d, %d}`, p.X, p.Y)
	return a.run(ctx, "click", script)
}

// FocusAndSubmit brings the app forward, clicks p and presses Cmd-Return.
func (a *AppleScriptExecutor) FocusAndSubmit(ctx context.Context, p domain.Position) error {
	script := fmt.Sprintf(`tell application "System Events"
	tell application process %s
		set frontmost to true
		delay 0.2
		click at {%d, %d}
		delay 0.2
		keystroke return using command down
	end tell
end tell`, quoteAppleScript(a.app), p.X, p.Y)
	return a.run(ctx, "focus and submit", script)
}

// TypeAndSubmit puts text on the clipboard, clicks p, pastes and presses Return.
func (a *AppleScriptExecutor) TypeAndSubmit(ctx context.Context, text string, p domain.Position) error {
	script := fmt.Sprintf(`set the clipboard to %s
tell application "System Events"
	tell application process %s
		set frontmost to true
	end tell
	click at {%d, %d}
	delay 0.5
	keystroke "v" using command down
	delay 0.2
	key code 36
end tell`, quoteAppleScript(text), quoteAppleScript(a.app), p.X, p.Y)
	return a.run(ctx, "type and submit", script)
}

// Position reads the pointer location in top-left-origin screen coordinates.
func (a *AppleScriptExecutor) Position() (domain.Position, error) {
	ctx, cancel := context.WithTimeout(context.Background(), pointerTimeout)
	defer cancel()

	// NSEvent reports a bottom-left origin; flip against the main screen height
	script := `ObjC.import("AppKit");
var p = $.NSEvent.mouseLocation;
var h = $.NSScreen.mainScreen.frame.size.height;
Math.round(p.x) + "," + Math.round(h - p.y);`
	out, err := a.runner.Run(ctx, "osascript", "-l", "JavaScript", "-e", script)
	if err != nil {
		return domain.Position{}, fmt.Errorf("failed to read pointer: %w", err)
	}
	return parsePointer(string(out))
}

func (a *AppleScriptExecutor) run(ctx context.Context, op, script string) error {
	if _, err := a.runner.Run(ctx, "osascript", "-e", script); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func parsePointer(out string) (domain.Position, error) {
	parts := strings.Split(strings.TrimSpace(out), ",")
	if len(parts) != 2 {
		return domain.Position{}, fmt.Errorf("unexpected pointer output %q", out)
	}
	x, errX := strconv.Atoi(parts[0])
	y, errY := strconv.Atoi(parts[1])
	if errX != nil || errY != nil {
		return domain.Position{}, fmt.Errorf("unexpected pointer output %q", out)
	}
	return domain.Position{X: x, Y: y}, nil
}

// quoteAppleScript renders s as an AppleScript string literal.
func quoteAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

var (
	_ domain.ActionExecutor = (*AppleScriptExecutor)(nil)
	_ domain.PointerTracker = (*AppleScriptExecutor)(nil)
)
