package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// ActorMode selects the action run for a click-target signal.
type ActorMode string

const (
	ActorModeClick  ActorMode = "click"
	ActorModeSubmit ActorMode = "submit"
)

// ActorConfig tunes the actor.
type ActorConfig struct {
	Mode           ActorMode
	ClickDelay     time.Duration // Between consecutive clicks of one signal
	SubmitPosition domain.Position
}

// ActionResult is what one Process call did.
type ActionResult struct {
	Signal    bool // A non-empty signal was consumed
	Positions []domain.Position
	Clicked   []domain.Position
	Submitted bool
	Errors    []error
}

// Actor turns pending click-target signals into UI actions.
// The signal is claimed before acting, so a failing action is never repeated.
type Actor struct {
	cfg      ActorConfig
	store    domain.SignalStore
	executor domain.ActionExecutor
	clock    domain.Clock
	recorder Recorder
	logger   *zap.Logger
}

// NewActor creates an actor.
func NewActor(cfg ActorConfig, store domain.SignalStore, executor domain.ActionExecutor, clock domain.Clock, rec Recorder, logger *zap.Logger) *Actor {
	return &Actor{
		cfg:      cfg,
		store:    store,
		executor: executor,
		clock:    clock,
		recorder: recorderOrNop(rec),
		logger:   logger,
	}
}

// Process handles at most one pending signal. Action failures are logged,
// collected in the result and reported as one Action error.
func (a *Actor) Process(ctx context.Context) (*ActionResult, error) {
	result := &ActionResult{}

	payload, ok := a.store.Consume(domain.ChannelClickTargets)
	if !ok || len(payload) == 0 {
		return result, nil
	}

	positions, err := domain.DecodePositions(payload)
	if err != nil {
		a.logger.Warn("malformed click targets",
			zap.Int("parsed", len(positions)),
			zap.Error(err))
	}
	if len(positions) == 0 {
		return result, nil
	}
	result.Signal = true
	result.Positions = positions

	switch a.cfg.Mode {
	case ActorModeSubmit:
		a.submit(ctx, result)
	default:
		a.clickAll(ctx, positions, result)
	}

	if len(result.Errors) > 0 {
		return result, domain.ActionError("act on click targets", result.Errors[0])
	}
	return result, nil
}

func (a *Actor) clickAll(ctx context.Context, positions []domain.Position, result *ActionResult) {
	for i, p := range positions {
		if i > 0 {
			a.clock.Sleep(a.cfg.ClickDelay)
		}
		err := a.executor.Click(ctx, p)
		a.recorder.Action("click", err)
		if err != nil {
			a.logger.Error("click failed", zap.Stringer("position", p), zap.Error(err))
			result.Errors = append(result.Errors, err)
			continue
		}
		a.logger.Info("clicked", zap.Stringer("position", p))
		result.Clicked = append(result.Clicked, p)
	}
}

func (a *Actor) submit(ctx context.Context, result *ActionResult) {
	err := a.executor.FocusAndSubmit(ctx, a.cfg.SubmitPosition)
	a.recorder.Action("submit", err)
	if err != nil {
		a.logger.Error("submit failed", zap.Stringer("position", a.cfg.SubmitPosition), zap.Error(err))
		result.Errors = append(result.Errors, err)
		return
	}
	a.logger.Info("submitted", zap.Stringer("position", a.cfg.SubmitPosition))
	result.Submitted = true
}
