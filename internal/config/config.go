// Package config loads mailslot settings: defaults in code, overridden by an
// optional YAML file shared by every role of a session.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// DefaultSessionName is the tmux session and process group name.
const DefaultSessionName = "automation"

// DefaultLoopSleep is the pause between loop iterations.
const DefaultLoopSleep = 100 * time.Millisecond

// Config is the full configuration of a session.
type Config struct {
	Session   string `yaml:"session"`
	SignalDir string `yaml:"signal_dir"`
	LogDir    string `yaml:"log_dir"`
	WorkDir   string `yaml:"work_dir"`
	Binary    string `yaml:"binary"` // Defaults to the running executable

	Stop     StopConfig        `yaml:"stop"`
	Color    ColorConfig       `yaml:"color"`
	Motion   MotionConfig      `yaml:"motion"`
	Actor    ActorConfig       `yaml:"actor"`
	Injector InjectorConfig    `yaml:"injector"`
	Teardown TeardownConfig    `yaml:"teardown"`
	Metrics  map[string]string `yaml:"metrics"` // role -> listen address
}

// StopConfig tunes the distributed stop condition.
type StopConfig struct {
	Pointer        bool          `yaml:"pointer"`         // Sample the pointer at all
	SentinelRadius int           `yaml:"sentinel_radius"` // Pixels from the origin
	Dwell          time.Duration `yaml:"dwell"`           // How long the pointer must stay parked
}

// ColorConfig tunes the color watcher.
type ColorConfig struct {
	Positions     []domain.Position `yaml:"positions"`
	CheckInterval time.Duration     `yaml:"check_interval"`
	Cooldown      time.Duration     `yaml:"cooldown"`
	HalfWidth     int               `yaml:"half_width"`
	BlueFloor     int               `yaml:"blue_floor"`
	Margin        int               `yaml:"margin"`
}

// MotionConfig tunes the motion watcher.
type MotionConfig struct {
	Center        domain.Position `yaml:"center"`
	HalfWidth     int             `yaml:"half_width"`
	CheckInterval time.Duration   `yaml:"check_interval"`
	Cooldown      time.Duration   `yaml:"cooldown"`
	DiffFloor     int             `yaml:"diff_floor"`
	Sensitivity   int             `yaml:"sensitivity"`
}

// ActorMode selects what the actor does with a click-target signal.
type ActorMode string

const (
	// ActorModeClick clicks every listed position.
	ActorModeClick ActorMode = "click"
	// ActorModeSubmit focuses the app and submits at SubmitPosition once per signal.
	ActorModeSubmit ActorMode = "submit"
)

// ActorConfig tunes the actor.
type ActorConfig struct {
	Mode           ActorMode       `yaml:"mode"`
	CheckInterval  time.Duration   `yaml:"check_interval"`
	ClickDelay     time.Duration   `yaml:"click_delay"`
	SubmitPosition domain.Position `yaml:"submit_position"`
	App            string          `yaml:"app"` // Application brought to front before acting
}

// InjectorConfig tunes the instruction injector.
type InjectorConfig struct {
	CheckInterval  time.Duration   `yaml:"check_interval"`
	NoMotionDelay  time.Duration   `yaml:"no_motion_delay"`
	Cooldown       time.Duration   `yaml:"cooldown"`
	PastePosition  domain.Position `yaml:"paste_position"`
	Instructions   []string        `yaml:"instructions"`
	Suffix         string          `yaml:"suffix"`
	RoadmapFile    string          `yaml:"roadmap_file"`
	CompletionHold time.Duration   `yaml:"completion_hold"`
}

// TeardownConfig tunes the broadcast stop.
type TeardownConfig struct {
	GracePeriod time.Duration `yaml:"grace_period"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Session:   DefaultSessionName,
		SignalDir: filepath.Join(home, ".mailslot", "signals"),
		LogDir:    filepath.Join(home, ".mailslot", "logs"),
		Stop: StopConfig{
			Pointer:        true,
			SentinelRadius: 5,
			Dwell:          2 * time.Second,
		},
		Color: ColorConfig{
			CheckInterval: 100 * time.Millisecond,
			Cooldown:      3 * time.Second,
			HalfWidth:     30,
			BlueFloor:     150,
			Margin:        30,
		},
		Motion: MotionConfig{
			HalfWidth:     30,
			CheckInterval: 100 * time.Millisecond,
			DiffFloor:     25,
			Sensitivity:   5,
		},
		Actor: ActorConfig{
			Mode:          ActorModeClick,
			CheckInterval: 100 * time.Millisecond,
			ClickDelay:    300 * time.Millisecond,
			App:           "Cursor",
		},
		Injector: InjectorConfig{
			CheckInterval:  100 * time.Millisecond,
			NoMotionDelay:  6 * time.Second,
			Cooldown:       time.Second,
			Instructions:   []string{"continue"},
			CompletionHold: time.Hour,
		},
		Teardown: TeardownConfig{
			GracePeriod: 3 * time.Second,
		},
	}
}

// DefaultPath returns ~/.mailslot/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mailslot", "config.yaml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(ExpandHome(path))
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.SignalDir = ExpandHome(cfg.SignalDir)
	cfg.LogDir = ExpandHome(cfg.LogDir)
	cfg.WorkDir = ExpandHome(cfg.WorkDir)
	cfg.Binary = ExpandHome(cfg.Binary)
	cfg.Injector.RoadmapFile = ExpandHome(cfg.Injector.RoadmapFile)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the loops cannot run with.
func (c Config) Validate() error {
	var problems []string
	if c.Session == "" {
		problems = append(problems, "session must not be empty")
	}
	if c.SignalDir == "" {
		problems = append(problems, "signal_dir must not be empty")
	}
	intervals := map[string]time.Duration{
		"color.check_interval":    c.Color.CheckInterval,
		"motion.check_interval":   c.Motion.CheckInterval,
		"actor.check_interval":    c.Actor.CheckInterval,
		"injector.check_interval": c.Injector.CheckInterval,
	}
	for name, d := range intervals {
		if d <= 0 {
			problems = append(problems, name+" must be positive")
		}
	}
	nonNegative := map[string]time.Duration{
		"color.cooldown":           c.Color.Cooldown,
		"motion.cooldown":          c.Motion.Cooldown,
		"actor.click_delay":        c.Actor.ClickDelay,
		"injector.cooldown":        c.Injector.Cooldown,
		"injector.no_motion_delay": c.Injector.NoMotionDelay,
		"stop.dwell":               c.Stop.Dwell,
		"teardown.grace_period":    c.Teardown.GracePeriod,
	}
	for name, d := range nonNegative {
		if d < 0 {
			problems = append(problems, name+" must not be negative")
		}
	}
	if c.Color.HalfWidth <= 0 || c.Motion.HalfWidth <= 0 {
		problems = append(problems, "half_width must be positive")
	}
	if c.Actor.Mode != ActorModeClick && c.Actor.Mode != ActorModeSubmit {
		problems = append(problems, fmt.Sprintf("actor.mode %q is not click or submit", c.Actor.Mode))
	}
	if len(c.Injector.Instructions) == 0 {
		problems = append(problems, "injector.instructions must not be empty")
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateRole applies checks that only matter to one role.
func (c Config) ValidateRole(role domain.Role) error {
	switch role {
	case domain.RoleColor:
		if len(c.Color.Positions) == 0 {
			return fmt.Errorf("invalid config: color.positions must list at least one position")
		}
	case domain.RoleMotion:
		// The stop gesture parks the pointer in the sentinel corner, which is
		// also where an unset motion.center points
		r := domain.RectAround(c.Motion.Center, c.Motion.HalfWidth)
		if r.X < c.Stop.SentinelRadius && r.Y < c.Stop.SentinelRadius {
			return fmt.Errorf("invalid config: motion.center %s puts the motion region over the stop corner; set motion.center", c.Motion.Center)
		}
	}
	return nil
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
