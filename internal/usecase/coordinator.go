package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
	"github.com/eliteGoblin/focusd/mailslot/internal/roles"
)

const defaultTeardownPoll = 100 * time.Millisecond

// CoordinatorConfig identifies the session and how its roles are launched.
type CoordinatorConfig struct {
	Session     string
	SignalDir   string
	WorkDir     string
	Binary      string // Executable each pane runs
	ConfigPath  string // Passed to every role; empty for defaults
	GracePeriod time.Duration
	PollEvery   time.Duration // Liveness polling during the grace period
}

// SessionStatus is a snapshot of one session.
type SessionStatus struct {
	Session       string
	Group         *domain.ProcessGroup
	SessionActive bool
	Running       map[domain.Role][]int // From an argv scan
	StopFlag      bool
	PendingClicks int
	LastMotion    time.Time
}

// Coordinator starts and tears down the process group of a session.
type Coordinator struct {
	cfg      CoordinatorConfig
	roles    *roles.Registry
	store    domain.SignalStore
	host     domain.SessionHost
	registry domain.SessionRegistry
	pm       domain.ProcessManager
	clock    domain.Clock
	logger   *zap.Logger
}

// NewCoordinator creates a session coordinator.
func NewCoordinator(
	cfg CoordinatorConfig,
	rr *roles.Registry,
	store domain.SignalStore,
	host domain.SessionHost,
	registry domain.SessionRegistry,
	pm domain.ProcessManager,
	clock domain.Clock,
	logger *zap.Logger,
) *Coordinator {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = defaultTeardownPoll
	}
	return &Coordinator{
		cfg:      cfg,
		roles:    rr,
		store:    store,
		host:     host,
		registry: registry,
		pm:       pm,
		clock:    clock,
		logger:   logger,
	}
}

// Start prepares the signal files, then launches one pane per role. An existing
// session of the same name is replaced.
func (c *Coordinator) Start(ctx context.Context) (*domain.ProcessGroup, error) {
	if err := c.roles.Validate(); err != nil {
		return nil, domain.CoordinationError("start", err)
	}
	if !c.host.Available() {
		return nil, domain.CoordinationError("start", errors.New("tmux not found in PATH"))
	}

	if c.host.HasSession(c.cfg.Session) {
		c.logger.Info("replacing existing session", zap.String("session", c.cfg.Session))
		if err := c.host.KillSession(c.cfg.Session); err != nil {
			return nil, domain.CoordinationError("replace session", err)
		}
	}

	// Signal files must exist before any role polls them
	if err := c.store.Prepare(); err != nil {
		return nil, domain.CoordinationError("prepare signal files", err)
	}

	group := domain.ProcessGroup{
		Session:   c.cfg.Session,
		ID:        uuid.NewString(),
		SignalDir: c.cfg.SignalDir,
		StartedAt: c.clock.Now(),
		Roles:     c.roles.List(),
	}
	if err := c.registry.Create(group); err != nil {
		return nil, domain.CoordinationError("record session", err)
	}

	for i, spec := range c.roles.GetAll() {
		if err := ctx.Err(); err != nil {
			c.abortStart()
			return nil, domain.CoordinationError("start", err)
		}
		if err := c.launch(i, spec); err != nil {
			c.abortStart()
			return nil, domain.CoordinationError("launch "+string(spec.ID), err)
		}
	}

	if err := c.host.Tile(c.cfg.Session); err != nil {
		c.logger.Warn("failed to tile panes", zap.Error(err))
	}

	c.logger.Info("session started",
		zap.String("session", group.Session),
		zap.String("id", group.ID),
		zap.Int("roles", len(group.Roles)))
	return &group, nil
}

func (c *Coordinator) launch(i int, spec roles.Spec) error {
	var pane string
	var err error
	if i == 0 {
		pane, err = c.host.NewSession(c.cfg.Session, c.cfg.WorkDir)
	} else {
		pane, err = c.host.SplitPane(c.cfg.Session, c.cfg.WorkDir)
	}
	if err != nil {
		return err
	}

	cmd := roles.ShellCommand(c.cfg.Binary, c.cfg.ConfigPath, c.cfg.Session, spec.ID)
	if err := c.host.SendCommand(pane, cmd); err != nil {
		return err
	}
	c.logger.Info("role launched",
		zap.String("role", string(spec.ID)),
		zap.String("pane", pane))
	return nil
}

func (c *Coordinator) abortStart() {
	if err := c.host.KillSession(c.cfg.Session); err != nil {
		c.logger.Warn("failed to remove partial session", zap.Error(err))
	}
	if err := c.registry.Clear(); err != nil {
		c.logger.Warn("failed to clear session record", zap.Error(err))
	}
}

// Teardown broadcasts a stop: it raises the stop flag, terminates every role
// process and its children, escalates to SIGKILL after the grace period (or at
// once when force is set), removes the tmux session and clears the registry.
// With nothing running it succeeds with an empty KilledPIDs.
func (c *Coordinator) Teardown(ctx context.Context, force bool) (*domain.TeardownResult, error) {
	start := c.clock.Now()
	result := &domain.TeardownResult{
		Session:       c.cfg.Session,
		KilledPIDs:    make([]int, 0),
		EscalatedPIDs: make([]int, 0),
		ExitedPIDs:    make([]int, 0),
		Errors:        make([]error, 0),
		ExecutedAt:    start,
	}

	// Roles that are still polling exit on their own
	if err := c.store.Publish(domain.ChannelStop, domain.EncodeTimestamp(start)); err != nil {
		c.logger.Warn("failed to raise stop flag", zap.Error(err))
	}

	targets := c.killOrder(c.findRoleProcesses())

	for _, pid := range targets {
		var err error
		if force {
			err = c.pm.Kill(pid)
		} else {
			err = c.pm.Terminate(pid)
		}
		if err != nil {
			if !c.pm.IsRunning(pid) {
				// Exited on its own, e.g. after its children were terminated
				c.logger.Debug("process already gone", zap.Int("pid", pid))
				result.ExitedPIDs = append(result.ExitedPIDs, pid)
				continue
			}
			c.logger.Warn("failed to signal process", zap.Int("pid", pid), zap.Error(err))
			result.Errors = append(result.Errors, fmt.Errorf("signal %d: %w", pid, err))
			continue
		}
		result.KilledPIDs = append(result.KilledPIDs, pid)
	}

	if !force && len(result.KilledPIDs) > 0 {
		for _, pid := range c.awaitExit(ctx, result.KilledPIDs) {
			if err := c.pm.Kill(pid); err != nil {
				if c.pm.IsRunning(pid) {
					result.Errors = append(result.Errors, fmt.Errorf("kill %d: %w", pid, err))
				}
				continue
			}
			c.logger.Warn("process ignored SIGTERM, killed", zap.Int("pid", pid))
			result.EscalatedPIDs = append(result.EscalatedPIDs, pid)
		}
	}

	hadSession := c.host.HasSession(c.cfg.Session)
	if err := c.host.KillSession(c.cfg.Session); err != nil {
		result.Errors = append(result.Errors, err)
	} else {
		result.SessionRemoved = hadSession
	}

	if err := c.registry.Clear(); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("clear session record: %w", err))
	}

	result.DurationMs = c.clock.Now().Sub(start).Milliseconds()
	c.logger.Info("teardown complete",
		zap.String("session", c.cfg.Session),
		zap.Ints("killed", result.KilledPIDs),
		zap.Ints("escalated", result.EscalatedPIDs),
		zap.Ints("exited", result.ExitedPIDs),
		zap.Bool("session_removed", result.SessionRemoved))

	if len(result.Errors) > 0 {
		return result, domain.CoordinationError("teardown", errors.Join(result.Errors...))
	}
	return result, nil
}

// findRoleProcesses unions the registry with an argv scan. Registry PIDs
// are only trusted while their argv still names the registered role.
func (c *Coordinator) findRoleProcesses() []int {
	self := c.pm.GetCurrentPID()
	found := make(map[int]bool)

	pids, err := c.pm.FindByArgs(func(args []string) bool {
		return c.roles.Matches(args, c.cfg.Session)
	})
	if err != nil {
		c.logger.Warn("failed to scan processes", zap.Error(err))
	}
	for _, pid := range pids {
		found[pid] = true
	}

	group, err := c.registry.Load()
	if err != nil {
		c.logger.Warn("failed to read session record", zap.Error(err))
	}
	if group != nil {
		for role, proc := range group.Processes {
			if found[proc.PID] || !c.pm.IsRunning(proc.PID) {
				continue
			}
			args, err := c.pm.Cmdline(proc.PID)
			if err != nil {
				continue
			}
			if r, _, ok := roles.Parse(args); ok && r == role {
				found[proc.PID] = true
			}
		}
	}

	delete(found, self)
	out := make([]int, 0, len(found))
	for pid := range found {
		out = append(out, pid)
	}
	sort.Ints(out)
	return out
}

// killOrder expands roots with their descendants, children before parents.
func (c *Coordinator) killOrder(roots []int) []int {
	self := c.pm.GetCurrentPID()
	seen := map[int]bool{self: true}
	var out []int
	for _, root := range roots {
		desc, err := c.pm.Descendants(root)
		if err != nil {
			c.logger.Debug("failed to list children", zap.Int("pid", root), zap.Error(err))
		}
		for i := len(desc) - 1; i >= 0; i-- {
			if !seen[desc[i]] {
				seen[desc[i]] = true
				out = append(out, desc[i])
			}
		}
		if !seen[root] {
			seen[root] = true
			out = append(out, root)
		}
	}
	return out
}

// awaitExit polls until every pid exited or the grace period ran out, and
// returns the survivors.
func (c *Coordinator) awaitExit(ctx context.Context, pids []int) []int {
	deadline := c.clock.Now().Add(c.cfg.GracePeriod)
	for {
		var alive []int
		for _, pid := range pids {
			if c.pm.IsRunning(pid) {
				alive = append(alive, pid)
			}
		}
		if len(alive) == 0 || ctx.Err() != nil || !c.clock.Now().Before(deadline) {
			return alive
		}
		c.clock.Sleep(c.cfg.PollEvery)
		pids = alive
	}
}

// Status reports what is running and what is pending.
func (c *Coordinator) Status() (*SessionStatus, error) {
	st := &SessionStatus{
		Session:       c.cfg.Session,
		SessionActive: c.host.HasSession(c.cfg.Session),
		Running:       make(map[domain.Role][]int),
		StopFlag:      c.store.Exists(domain.ChannelStop),
	}

	group, err := c.registry.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to read session record: %w", err)
	}
	st.Group = group

	self := c.pm.GetCurrentPID()
	pids, err := c.pm.FindByArgs(func(args []string) bool {
		return c.roles.Matches(args, c.cfg.Session)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan processes: %w", err)
	}
	for _, pid := range pids {
		if pid == self {
			continue
		}
		args, err := c.pm.Cmdline(pid)
		if err != nil {
			continue
		}
		if role, _, ok := roles.Parse(args); ok {
			st.Running[role] = append(st.Running[role], pid)
		}
	}

	if data, ok := c.store.Peek(domain.ChannelClickTargets); ok {
		positions, _ := domain.DecodePositions(data)
		st.PendingClicks = len(positions)
	}
	if data, ok := c.store.Peek(domain.ChannelMotion); ok && strings.TrimSpace(string(data)) != "" {
		if t, err := domain.DecodeTimestamp(data); err == nil {
			st.LastMotion = t
		}
	}
	return st, nil
}
