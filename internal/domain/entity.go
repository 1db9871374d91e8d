// Package domain contains core entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Role identifies one cooperating process of a session.
type Role string

const (
	RoleMotion   Role = "motion"
	RoleColor    Role = "color"
	RoleActor    Role = "actor"
	RoleInjector Role = "injector"
)

// Channel is the logical name of a signal file.
type Channel string

const (
	// ChannelMotion holds the timestamp of the latest detected motion.
	ChannelMotion Channel = "motion"
	// ChannelClickTargets holds pending click positions, one "x,y" per line.
	ChannelClickTargets Channel = "click-targets"
	// ChannelStop is the stop flag. Presence is the signal, content is ignored.
	ChannelStop Channel = "stop"
)

// FileName returns the on-disk name of the channel inside the signal directory.
func (c Channel) FileName() string {
	switch c {
	case ChannelMotion:
		return "motion_status"
	case ChannelClickTargets:
		return "click_positions"
	case ChannelStop:
		return "KILL_SWITCH"
	default:
		return string(c)
	}
}

// Position is a screen-space coordinate.
type Position struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// Rect is a screen-space rectangle.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// RectAround returns the square of half-width half centered on p, clamped at the origin.
func RectAround(p Position, half int) Rect {
	x, y := p.X-half, p.Y-half
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return Rect{X: x, Y: y, Width: 2 * half, Height: 2 * half}
}

// DetectionEvent is what a watcher found on one tick.
// It is never persisted as-is; Payload projects it into a channel write.
type DetectionEvent struct {
	Positions []Position // color hits
	Motion    bool
	Changed   int // pixels over the diff floor (motion only)
	At        time.Time
}

// Payload encodes the event for its channel.
func (e DetectionEvent) Payload() []byte {
	if e.Motion {
		return EncodeTimestamp(e.At)
	}
	return EncodePositions(e.Positions)
}

// EncodePositions renders positions as "x,y" lines.
func EncodePositions(positions []Position) []byte {
	var b strings.Builder
	for _, p := range positions {
		b.WriteString(p.String())
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// DecodePositions parses "x,y" lines. Blank lines are skipped; the first
// malformed line is reported but the positions parsed so far are kept.
func DecodePositions(data []byte) ([]Position, error) {
	var positions []Position
	var firstErr error
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			if firstErr == nil {
				firstErr = fmt.Errorf("line %d: expected x,y, got %q", i+1, line)
			}
			continue
		}
		x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
		y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errX != nil || errY != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("line %d: invalid coordinates %q", i+1, line)
			}
			continue
		}
		positions = append(positions, Position{X: x, Y: y})
	}
	return positions, firstErr
}

// EncodeTimestamp renders t as Unix seconds with a millisecond fraction.
func EncodeTimestamp(t time.Time) []byte {
	secs := float64(t.UnixMilli()) / 1000
	return []byte(strconv.FormatFloat(secs, 'f', 3, 64))
}

// DecodeTimestamp parses the output of EncodeTimestamp.
func DecodeTimestamp(data []byte) (time.Time, error) {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return time.UnixMilli(int64(math.Round(secs * 1000))), nil
}

// RoleProcess is one registered member of a process group.
type RoleProcess struct {
	Role      Role      `json:"role"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// ProcessGroup is the set of cooperating processes of one session.
// Persisted to a hidden file in the signal directory for status and teardown.
type ProcessGroup struct {
	Version   int                  `json:"version"`
	Session   string               `json:"session"`
	ID        string               `json:"id"`
	SignalDir string               `json:"signal_dir"`
	StartedAt time.Time            `json:"started_at"`
	Roles     []Role               `json:"roles"`
	Processes map[Role]RoleProcess `json:"processes,omitempty"`
}

// TeardownResult captures what a broadcast stop did.
type TeardownResult struct {
	Session        string
	KilledPIDs     []int // every PID that was sent a terminate or kill
	EscalatedPIDs  []int // PIDs that needed SIGKILL after the grace period
	ExitedPIDs     []int // found, but gone before they could be signalled
	SessionRemoved bool
	Errors         []error
	ExecutedAt     time.Time
	DurationMs     int64
}
