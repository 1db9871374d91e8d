package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// Detector applies a detection predicate to freshly sampled frames.
type Detector interface {
	// Detect samples and classifies. ok is false when nothing was detected.
	// A returned error means the tick is skipped; it is never retried.
	Detect(ctx context.Context, now time.Time) (event domain.DetectionEvent, ok bool, err error)
}

// WatcherConfig holds the pacing of one watcher.
type WatcherConfig struct {
	Channel       domain.Channel
	CheckInterval time.Duration
	Cooldown      time.Duration
}

// Watcher paces a Detector and publishes its positive results, at most once
// per cooldown window.
type Watcher struct {
	cfg      WatcherConfig
	detector Detector
	store    domain.SignalStore
	clock    domain.Clock
	cooldown *Cooldown
	recorder Recorder
	logger   *zap.Logger

	lastCheck time.Time
	checked   bool
}

// NewWatcher creates a watcher.
func NewWatcher(cfg WatcherConfig, d Detector, store domain.SignalStore, clock domain.Clock, rec Recorder, logger *zap.Logger) *Watcher {
	return &Watcher{
		cfg:      cfg,
		detector: d,
		store:    store,
		clock:    clock,
		cooldown: NewCooldown(cfg.Cooldown),
		recorder: recorderOrNop(rec),
		logger:   logger,
	}
}

// Tick runs one polling iteration. It returns an IO error when sampling or the
// publish failed; the caller logs it and keeps looping.
func (w *Watcher) Tick(ctx context.Context) error {
	now := w.clock.Now()
	if w.checked && now.Sub(w.lastCheck) < w.cfg.CheckInterval {
		return nil
	}
	w.lastCheck = now
	w.checked = true

	event, ok, err := w.detector.Detect(ctx, now)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	w.recorder.Detection()

	if !w.cooldown.Ready(now) {
		last, _ := w.cooldown.Last()
		w.recorder.Suppressed()
		w.logger.Debug("detection suppressed by cooldown",
			zap.String("channel", string(w.cfg.Channel)),
			zap.Duration("since_publish", now.Sub(last)),
			zap.Duration("cooldown", w.cfg.Cooldown))
		return nil
	}

	if err := w.store.Publish(w.cfg.Channel, event.Payload()); err != nil {
		// Not marked: the next detection may try again right away
		return err
	}
	w.cooldown.Mark(now)
	w.recorder.Published(w.cfg.Channel)

	fields := []zap.Field{zap.String("channel", string(w.cfg.Channel))}
	if event.Motion {
		fields = append(fields, zap.Int("changed_pixels", event.Changed))
	} else {
		fields = append(fields, zap.Int("positions", len(event.Positions)))
	}
	w.logger.Info("signal published", fields...)
	return nil
}
