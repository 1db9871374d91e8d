package daemon

import (
	"context"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// RoleDaemon is one role process: it registers itself, then runs its loop
// until the stop condition or an exit signal.
type RoleDaemon struct {
	role     domain.Role
	session  string
	registry domain.SessionRegistry
	clock    domain.Clock
	loop     *Loop
	tick     TickFunc
	stop     interface{ Reason() string }
	pid      int
	logger   *zap.Logger
}

// Role returns the role this daemon runs.
func (d *RoleDaemon) Role() domain.Role { return d.role }

// Run blocks until the loop ends. Registration failures are logged only; a
// teardown still finds the process by its command line.
func (d *RoleDaemon) Run(ctx context.Context) error {
	proc := domain.RoleProcess{Role: d.role, PID: d.pid, StartedAt: d.clock.Now()}
	if err := d.registry.Register(proc); err != nil {
		d.logger.Warn("failed to register role", zap.Error(err))
	}

	d.logger.Info("role started",
		zap.String("role", string(d.role)),
		zap.String("session", d.session),
		zap.Int("pid", d.pid))

	err := d.loop.Run(ctx, d.tick)

	fields := []zap.Field{zap.String("role", string(d.role))}
	if d.stop != nil && d.stop.Reason() != "" {
		fields = append(fields, zap.String("stop_reason", d.stop.Reason()))
	}
	if err != nil {
		d.logger.Error("role exited with error", append(fields, zap.Error(err))...)
		return err
	}
	d.logger.Info("role stopped", fields...)
	return nil
}
