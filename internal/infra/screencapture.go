package infra

import (
	"context"
	"fmt"
	"image/png"
	"os"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// ScreenCaptureSampler implements domain.FrameSampler with the macOS
// `screencapture` tool, reading the PNG it writes back into a Frame.
type ScreenCaptureSampler struct {
	runner CommandRunner
	tmpDir string
}

// NewScreenCaptureSampler creates a sampler writing captures under os.TempDir().
func NewScreenCaptureSampler() *ScreenCaptureSampler {
	return &ScreenCaptureSampler{runner: &RealCommandRunner{}, tmpDir: os.TempDir()}
}

// NewScreenCaptureSamplerWithDeps creates a sampler with injectable dependencies (for testing)
func NewScreenCaptureSamplerWithDeps(runner CommandRunner, tmpDir string) *ScreenCaptureSampler {
	return &ScreenCaptureSampler{runner: runner, tmpDir: tmpDir}
}

// Sample captures region silently (-x) and decodes it.
func (s *ScreenCaptureSampler) Sample(ctx context.Context, region domain.Rect) (*domain.Frame, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return nil, fmt.Errorf("empty capture region %+v", region)
	}

	tmp, err := os.CreateTemp(s.tmpDir, "mailslot-capture-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	rect := fmt.Sprintf("%d,%d,%d,%d", region.X, region.Y, region.Width, region.Height)
	if _, err := s.runner.Run(ctx, "screencapture", "-x", "-R", rect, path); err != nil {
		return nil, fmt.Errorf("screen capture failed: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode capture: %w", err)
	}

	frame := domain.FrameFromImage(img)
	if frame.Empty() {
		return nil, fmt.Errorf("capture of %s produced an empty frame", rect)
	}
	return frame, nil
}

// Ensure ScreenCaptureSampler implements domain.FrameSampler.
var _ domain.FrameSampler = (*ScreenCaptureSampler)(nil)
