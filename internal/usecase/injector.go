package usecase

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// InjectorConfig tunes the instruction injector.
type InjectorConfig struct {
	NoMotionDelay  time.Duration // Quiet time required before typing
	Cooldown       time.Duration // Minimum time between two typed instructions
	PastePosition  domain.Position
	Instructions   []string
	Suffix         string
	RoadmapFile    string        // Optional; first line holds the completion percentage
	CompletionHold time.Duration // How long 100% must hold before the loop ends
}

// Injector types the next instruction once the motion channel has been quiet
// for long enough. It only peeks at the motion channel; the timestamp stays
// for other readers.
type Injector struct {
	cfg      InjectorConfig
	store    domain.SignalStore
	executor domain.ActionExecutor
	clock    domain.Clock
	recorder Recorder
	logger   *zap.Logger

	start      time.Time
	lastMotion time.Time
	lastType   time.Time
	typed      bool
	next       int

	complete      bool
	completeSince time.Time
}

// NewInjector creates an injector. Quiet time is counted from construction.
func NewInjector(cfg InjectorConfig, store domain.SignalStore, executor domain.ActionExecutor, clock domain.Clock, rec Recorder, logger *zap.Logger) *Injector {
	return &Injector{
		cfg:      cfg,
		store:    store,
		executor: executor,
		clock:    clock,
		recorder: recorderOrNop(rec),
		logger:   logger,
		start:    clock.Now(),
	}
}

// Process runs one iteration. It returns domain.ErrLoopDone once the roadmap
// has reported completion for the hold period.
func (i *Injector) Process(ctx context.Context) error {
	now := i.clock.Now()

	if i.completionHeld(now) {
		i.logger.Info("roadmap complete, injector finished",
			zap.Duration("held", now.Sub(i.completeSince)))
		return domain.ErrLoopDone
	}

	i.observeMotion()

	if i.typed && now.Sub(i.lastType) < i.cfg.Cooldown {
		return nil
	}
	if i.QuietFor(now) < i.cfg.NoMotionDelay {
		return nil
	}
	if len(i.cfg.Instructions) == 0 {
		return nil
	}

	idx := i.next % len(i.cfg.Instructions)
	text := i.cfg.Instructions[idx] + i.cfg.Suffix
	i.next++ // Advance even on failure

	err := i.executor.TypeAndSubmit(ctx, text, i.cfg.PastePosition)
	i.lastType = i.clock.Now()
	i.typed = true
	i.recorder.Action("type", err)
	if err != nil {
		i.logger.Error("failed to type instruction",
			zap.Int("instruction", idx),
			zap.Error(err))
		return domain.ActionError("type instruction", err)
	}

	i.logger.Info("instruction typed",
		zap.Int("instruction", idx),
		zap.Int("length", len(text)),
		zap.Duration("quiet", now.Sub(i.quietSince())))
	return nil
}

// QuietFor returns how long nothing has happened: no motion, no typing, and
// not just started.
func (i *Injector) QuietFor(now time.Time) time.Duration {
	return now.Sub(i.quietSince())
}

func (i *Injector) quietSince() time.Time {
	t := i.start
	if i.lastMotion.After(t) {
		t = i.lastMotion
	}
	if i.typed && i.lastType.After(t) {
		t = i.lastType
	}
	return t
}

func (i *Injector) observeMotion() {
	data, ok := i.store.Peek(domain.ChannelMotion)
	if !ok || len(strings.TrimSpace(string(data))) == 0 {
		return
	}
	t, err := domain.DecodeTimestamp(data)
	if err != nil {
		i.logger.Debug("ignoring malformed motion timestamp", zap.Error(err))
		return
	}
	if t.After(i.lastMotion) {
		i.lastMotion = t
	}
}

func (i *Injector) completionHeld(now time.Time) bool {
	if i.cfg.RoadmapFile == "" {
		return false
	}

	pct, err := ReadCompletion(i.cfg.RoadmapFile)
	if err != nil || pct < 100 {
		if i.complete {
			i.logger.Info("roadmap no longer complete", zap.Int("percent", pct))
		}
		i.complete = false
		return false
	}

	if !i.complete {
		i.complete = true
		i.completeSince = now
		i.logger.Info("roadmap reports completion, holding",
			zap.Duration("hold", i.cfg.CompletionHold))
	}
	return now.Sub(i.completeSince) >= i.cfg.CompletionHold
}

// ReadCompletion reads the percentage on the first line of a roadmap file.
func ReadCompletion(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%s is empty", path)
	}
	return ParseCompletion(scanner.Text())
}

// ParseCompletion accepts "85% complete", "85%" or "85".
func ParseCompletion(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, fmt.Errorf("no completion percentage")
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(fields[0], "%"))
	if err != nil {
		return 0, fmt.Errorf("invalid completion percentage %q", fields[0])
	}
	return pct, nil
}
