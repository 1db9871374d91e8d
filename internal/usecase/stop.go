package usecase

import (
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// Stop reasons.
const (
	StopReasonFlag    = "flag"
	StopReasonPointer = "pointer"
)

// StopConfig tunes the stop condition.
type StopConfig struct {
	SentinelRadius int           // Pointer must be strictly closer than this to the origin on both axes
	Dwell          time.Duration // Time the pointer must stay in the sentinel region
}

// StopController evaluates the process-wide stop condition: the stop flag, or a
// pointer parked in the top-left corner for the dwell time. Once it reports
// true it keeps doing so.
type StopController struct {
	cfg      StopConfig
	store    domain.SignalStore
	pointer  domain.PointerTracker // nil disables the pointer gesture
	clock    domain.Clock
	recorder Recorder
	logger   *zap.Logger

	stopped bool
	reason  string
}

// NewStopController creates a stop controller. pointer may be nil.
func NewStopController(cfg StopConfig, store domain.SignalStore, pointer domain.PointerTracker, clock domain.Clock, rec Recorder, logger *zap.Logger) *StopController {
	return &StopController{
		cfg:      cfg,
		store:    store,
		pointer:  pointer,
		clock:    clock,
		recorder: recorderOrNop(rec),
		logger:   logger,
	}
}

// ShouldStop reports whether the caller must leave its loop. When the pointer
// is in the sentinel region it blocks for the dwell time before re-checking.
func (s *StopController) ShouldStop() bool {
	if s.stopped {
		return true
	}

	if s.store.Exists(domain.ChannelStop) {
		s.latch(StopReasonFlag)
		return true
	}

	if s.pointer == nil || !s.inSentinel() {
		return false
	}
	s.logger.Debug("pointer in sentinel region, confirming", zap.Duration("dwell", s.cfg.Dwell))
	s.clock.Sleep(s.cfg.Dwell)
	if s.inSentinel() {
		s.latch(StopReasonPointer)
		return true
	}
	return false
}

// Reason returns why the controller stopped, or "" while running.
func (s *StopController) Reason() string {
	return s.reason
}

func (s *StopController) inSentinel() bool {
	p, err := s.pointer.Position()
	if err != nil {
		// Unreadable pointer never stops the loop
		s.logger.Debug("failed to read pointer", zap.Error(err))
		return false
	}
	return p.X < s.cfg.SentinelRadius && p.Y < s.cfg.SentinelRadius
}

func (s *StopController) latch(reason string) {
	s.stopped = true
	s.reason = reason
	s.recorder.Stopped(reason)
	s.logger.Info("stop condition met", zap.String("reason", reason))
}

var _ domain.StopChecker = (*StopController)(nil)
