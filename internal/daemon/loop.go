// Package daemon runs the polling loop of each role process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
	"github.com/eliteGoblin/focusd/mailslot/internal/usecase"
)

// TickFunc is one loop iteration.
type TickFunc func(ctx context.Context) error

// Loop paces a TickFunc: check the stop condition, tick, sleep, repeat.
type Loop struct {
	Name     string
	Sleep    time.Duration
	Clock    domain.Clock
	Stop     domain.StopChecker
	Recorder usecase.Recorder
	Logger   *zap.Logger
}

// Run loops until the stop condition holds, ctx is cancelled, the tick
// returns domain.ErrLoopDone, or a fatal error occurs.
//
// IO and Action errors are logged and the loop continues. Fatal errors,
// unclassified errors and panics end it.
func (l *Loop) Run(ctx context.Context, tick TickFunc) error {
	rec := l.Recorder
	if rec == nil {
		rec = usecase.NopRecorder{}
	}

	for {
		if err := ctx.Err(); err != nil {
			l.Logger.Info("loop cancelled", zap.String("loop", l.Name))
			return err
		}
		if l.Stop.ShouldStop() {
			l.Logger.Info("loop stopping", zap.String("loop", l.Name))
			return nil
		}

		err := l.safeTick(ctx, tick)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrLoopDone):
			l.Logger.Info("loop finished", zap.String("loop", l.Name))
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rec.LoopError(domain.KindIO)
			l.Logger.Error("tick timed out", zap.String("loop", l.Name), zap.Error(err))
		default:
			kind := domain.KindOf(err)
			rec.LoopError(kind)
			if kind == domain.KindIO || kind == domain.KindAction {
				l.Logger.Error("tick failed", zap.String("loop", l.Name), zap.Stringer("kind", kind), zap.Error(err))
				break
			}
			l.Logger.Error("fatal loop error", zap.String("loop", l.Name), zap.Error(err))
			if kind != domain.KindFatal {
				err = domain.FatalError(l.Name, err)
			}
			return err
		}

		l.Clock.Sleep(l.Sleep)
	}
}

func (l *Loop) safeTick(ctx context.Context, tick TickFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.FatalError(l.Name, fmt.Errorf("panic: %v", r))
		}
	}()
	return tick(ctx)
}
