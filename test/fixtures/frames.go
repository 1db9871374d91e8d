package fixtures

import (
	"context"
	"errors"
	"sync"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// SolidFrame returns a w x h frame of one color.
func SolidFrame(w, h int, r, g, b uint8) *domain.Frame {
	f := domain.NewFrame(w, h)
	f.Fill(r, g, b)
	return f
}

// GrayFrame returns a uniform gray frame (r=g=b).
func GrayFrame(w, h int, level uint8) *domain.Frame {
	return SolidFrame(w, h, level, level, level)
}

// BluePatchFrame returns a gray frame with one target-blue pixel at (x, y).
func BluePatchFrame(w, h, x, y int) *domain.Frame {
	f := GrayFrame(w, h, 90)
	f.Set(x, y, 20, 40, 220)
	return f
}

// ErrCaptureFailed is returned by samplers scripted to fail.
var ErrCaptureFailed = errors.New("capture failed")

// ScriptedSampler replays frames. Frames for a specific region take precedence
// over the sequence; when the sequence runs out the last frame repeats.
type ScriptedSampler struct {
	mu       sync.Mutex
	byRegion map[domain.Rect]*domain.Frame
	failing  map[domain.Rect]bool
	seq      []*domain.Frame
	errs     []error
	calls    []domain.Rect
}

// NewScriptedSampler creates a sampler returning frames in order.
func NewScriptedSampler(frames ...*domain.Frame) *ScriptedSampler {
	return &ScriptedSampler{
		byRegion: make(map[domain.Rect]*domain.Frame),
		failing:  make(map[domain.Rect]bool),
		seq:      frames,
	}
}

// SetRegion pins the frame returned for one region.
func (s *ScriptedSampler) SetRegion(r domain.Rect, f *domain.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byRegion[r] = f
}

// FailRegion makes sampling one region fail.
func (s *ScriptedSampler) FailRegion(r domain.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[r] = true
}

// Push appends frames to the sequence.
func (s *ScriptedSampler) Push(frames ...*domain.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = append(s.seq, frames...)
}

// PushError makes the next sequence sample fail.
func (s *ScriptedSampler) PushError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

// Calls returns every sampled region.
func (s *ScriptedSampler) Calls() []domain.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Rect(nil), s.calls...)
}

func (s *ScriptedSampler) Sample(ctx context.Context, region domain.Rect) (*domain.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, region)

	if s.failing[region] {
		return nil, ErrCaptureFailed
	}
	if f, ok := s.byRegion[region]; ok {
		return f, nil
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	if len(s.seq) == 0 {
		return nil, ErrCaptureFailed
	}
	f := s.seq[0]
	if len(s.seq) > 1 {
		s.seq = s.seq[1:]
	}
	return f, nil
}

var _ domain.FrameSampler = (*ScriptedSampler)(nil)
