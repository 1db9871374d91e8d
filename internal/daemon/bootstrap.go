package daemon

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/mailslot/internal/config"
	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
	"github.com/eliteGoblin/focusd/mailslot/internal/usecase"
)

// Deps are the adapters a role runs against.
type Deps struct {
	Store    domain.SignalStore
	Sampler  domain.FrameSampler
	Executor domain.ActionExecutor
	Pointer  domain.PointerTracker
	Registry domain.SessionRegistry
	Clock    domain.Clock
	Recorder usecase.Recorder
	PID      int
}

// Build wires the daemon for one role from the session config.
func Build(role domain.Role, cfg config.Config, deps Deps, logger *zap.Logger) (*RoleDaemon, error) {
	if err := cfg.ValidateRole(role); err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("role", string(role)))

	var pointer domain.PointerTracker
	if cfg.Stop.Pointer {
		pointer = deps.Pointer
	}
	stop := usecase.NewStopController(usecase.StopConfig{
		SentinelRadius: cfg.Stop.SentinelRadius,
		Dwell:          cfg.Stop.Dwell,
	}, deps.Store, pointer, deps.Clock, deps.Recorder, logger)

	var (
		tick  TickFunc
		sleep time.Duration
	)
	switch role {
	case domain.RoleColor:
		detector := usecase.NewColorDetector(usecase.ColorConfig{
			Positions: cfg.Color.Positions,
			HalfWidth: cfg.Color.HalfWidth,
			BlueFloor: cfg.Color.BlueFloor,
			Margin:    cfg.Color.Margin,
		}, deps.Sampler, logger)
		w := usecase.NewWatcher(usecase.WatcherConfig{
			Channel:       domain.ChannelClickTargets,
			CheckInterval: cfg.Color.CheckInterval,
			Cooldown:      cfg.Color.Cooldown,
		}, detector, deps.Store, deps.Clock, deps.Recorder, logger)
		tick, sleep = w.Tick, cfg.Color.CheckInterval

	case domain.RoleMotion:
		detector := usecase.NewMotionDetector(usecase.MotionConfig{
			Region:      domain.RectAround(cfg.Motion.Center, cfg.Motion.HalfWidth),
			DiffFloor:   cfg.Motion.DiffFloor,
			Sensitivity: cfg.Motion.Sensitivity,
		}, deps.Sampler, logger)
		w := usecase.NewWatcher(usecase.WatcherConfig{
			Channel:       domain.ChannelMotion,
			CheckInterval: cfg.Motion.CheckInterval,
			Cooldown:      cfg.Motion.Cooldown,
		}, detector, deps.Store, deps.Clock, deps.Recorder, logger)
		tick, sleep = w.Tick, cfg.Motion.CheckInterval

	case domain.RoleActor:
		a := usecase.NewActor(usecase.ActorConfig{
			Mode:           usecase.ActorMode(cfg.Actor.Mode),
			ClickDelay:     cfg.Actor.ClickDelay,
			SubmitPosition: cfg.Actor.SubmitPosition,
		}, deps.Store, deps.Executor, deps.Clock, deps.Recorder, logger)
		tick = func(ctx context.Context) error {
			_, err := a.Process(ctx)
			return err
		}
		sleep = cfg.Actor.CheckInterval

	case domain.RoleInjector:
		inj := usecase.NewInjector(usecase.InjectorConfig{
			NoMotionDelay:  cfg.Injector.NoMotionDelay,
			Cooldown:       cfg.Injector.Cooldown,
			PastePosition:  cfg.Injector.PastePosition,
			Instructions:   cfg.Injector.Instructions,
			Suffix:         cfg.Injector.Suffix,
			RoadmapFile:    cfg.Injector.RoadmapFile,
			CompletionHold: cfg.Injector.CompletionHold,
		}, deps.Store, deps.Executor, deps.Clock, deps.Recorder, logger)
		tick, sleep = inj.Process, cfg.Injector.CheckInterval

	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}

	return &RoleDaemon{
		role:     role,
		session:  cfg.Session,
		registry: deps.Registry,
		clock:    deps.Clock,
		loop: &Loop{
			Name:     string(role),
			Sleep:    sleep,
			Clock:    deps.Clock,
			Stop:     stop,
			Recorder: deps.Recorder,
			Logger:   logger,
		},
		tick:   tick,
		stop:   stop,
		pid:    deps.PID,
		logger: logger,
	}, nil
}
