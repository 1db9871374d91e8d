package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// MotionConfig holds the motion predicate parameters.
type MotionConfig struct {
	Region      domain.Rect
	DiffFloor   int
	Sensitivity int
}

// MotionDetector compares each sampled frame with the previous one.
// The first frame only seeds the baseline.
type MotionDetector struct {
	cfg     MotionConfig
	sampler domain.FrameSampler
	logger  *zap.Logger

	prev       *domain.Frame
	lastMotion time.Time
}

// NewMotionDetector creates a motion detector.
func NewMotionDetector(cfg MotionConfig, sampler domain.FrameSampler, logger *zap.Logger) *MotionDetector {
	return &MotionDetector{cfg: cfg, sampler: sampler, logger: logger}
}

// Detect samples the region and counts pixels that changed by more than the floor.
func (d *MotionDetector) Detect(ctx context.Context, now time.Time) (domain.DetectionEvent, bool, error) {
	frame, err := d.sampler.Sample(ctx, d.cfg.Region)
	if err == nil && frame.Empty() {
		err = errors.New("empty frame")
	}
	if err != nil {
		return domain.DetectionEvent{}, false, domain.IOError("sample motion", err)
	}

	prev := d.prev
	d.prev = frame
	if prev == nil {
		d.logger.Debug("motion baseline seeded",
			zap.Int("width", frame.Width),
			zap.Int("height", frame.Height))
		return domain.DetectionEvent{}, false, nil
	}

	changed, err := frame.CountChanged(prev, clampByte(d.cfg.DiffFloor))
	if err != nil {
		// Region or display changed size; the new frame is the baseline now
		return domain.DetectionEvent{}, false, domain.IOError("compare frames", err)
	}
	if changed <= d.cfg.Sensitivity {
		return domain.DetectionEvent{}, false, nil
	}

	d.lastMotion = now
	return domain.DetectionEvent{Motion: true, Changed: changed, At: now}, true, nil
}

// LastMotionTime returns when motion was last detected; zero if never.
func (d *MotionDetector) LastMotionTime() time.Time {
	return d.lastMotion
}

func clampByte(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

var _ Detector = (*MotionDetector)(nil)
