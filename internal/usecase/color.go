package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// ColorConfig holds the color predicate parameters.
type ColorConfig struct {
	Positions []domain.Position
	HalfWidth int
	BlueFloor int
	Margin    int
}

// IsTargetBlue reports whether a pixel is saturated blue: above the floor and
// clearly ahead of both red and green.
func IsTargetBlue(r, g, b uint8, floor, margin int) bool {
	bi := int(b)
	return bi > floor && bi-int(r) > margin && bi-int(g) > margin
}

// ColorDetector reports the monitored positions whose surrounding square holds
// at least one target-blue pixel. Positions are classified independently.
type ColorDetector struct {
	cfg     ColorConfig
	sampler domain.FrameSampler
	logger  *zap.Logger
}

// NewColorDetector creates a color detector.
func NewColorDetector(cfg ColorConfig, sampler domain.FrameSampler, logger *zap.Logger) *ColorDetector {
	return &ColorDetector{cfg: cfg, sampler: sampler, logger: logger}
}

// Detect samples every monitored position.
func (d *ColorDetector) Detect(ctx context.Context, now time.Time) (domain.DetectionEvent, bool, error) {
	var hits []domain.Position
	var errs []error

	for _, p := range d.cfg.Positions {
		frame, err := d.sampler.Sample(ctx, domain.RectAround(p, d.cfg.HalfWidth))
		if err == nil && frame.Empty() {
			err = errors.New("empty frame")
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("position %s: %w", p, err))
			continue
		}
		if d.hasTarget(frame) {
			hits = append(hits, p)
		}
	}

	if len(errs) > 0 && len(errs) == len(d.cfg.Positions) {
		// Returned, so the loop logs it
		return domain.DetectionEvent{}, false, domain.IOError("sample color",
			fmt.Errorf("all %d positions failed: %w", len(errs), errs[0]))
	}
	if len(errs) > 0 {
		d.logger.Warn("some positions could not be sampled",
			zap.Int("failed", len(errs)),
			zap.Error(errs[0]))
	}
	if len(hits) > 0 {
		return domain.DetectionEvent{Positions: hits, At: now}, true, nil
	}
	return domain.DetectionEvent{}, false, nil
}

func (d *ColorDetector) hasTarget(f *domain.Frame) bool {
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.RGB(x, y)
			if IsTargetBlue(r, g, b, d.cfg.BlueFloor, d.cfg.Margin) {
				return true
			}
		}
	}
	return false
}

var _ Detector = (*ColorDetector)(nil)
