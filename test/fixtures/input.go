package fixtures

import (
	"context"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// Action is one recorded ActionExecutor call.
type Action struct {
	Kind     string // "click", "submit" or "type"
	Position domain.Position
	Text     string
	At       time.Time
}

// RecordingExecutor records actions instead of driving the UI.
type RecordingExecutor struct {
	mu      sync.Mutex
	clock   domain.Clock
	actions []Action
	fail    map[string]error
}

// NewRecordingExecutor creates an executor stamping actions with clock.
func NewRecordingExecutor(clock domain.Clock) *RecordingExecutor {
	return &RecordingExecutor{clock: clock, fail: make(map[string]error)}
}

// FailWith makes every action of kind fail with err. Failed actions are still recorded.
func (e *RecordingExecutor) FailWith(kind string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail[kind] = err
}

// Actions returns the recorded actions.
func (e *RecordingExecutor) Actions() []Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Action(nil), e.actions...)
}

func (e *RecordingExecutor) record(a Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clock != nil {
		a.At = e.clock.Now()
	}
	e.actions = append(e.actions, a)
	return e.fail[a.Kind]
}

func (e *RecordingExecutor) Click(ctx context.Context, p domain.Position) error {
	return e.record(Action{Kind: "click", Position: p})
}

func (e *RecordingExecutor) FocusAndSubmit(ctx context.Context, p domain.Position) error {
	return e.record(Action{Kind: "submit", Position: p})
}

func (e *RecordingExecutor) TypeAndSubmit(ctx context.Context, text string, p domain.Position) error {
	return e.record(Action{Kind: "type", Position: p, Text: text})
}

// FakePointer is a settable pointer position.
type FakePointer struct {
	mu  sync.Mutex
	pos domain.Position
	err error
}

// NewFakePointer creates a pointer at p.
func NewFakePointer(p domain.Position) *FakePointer {
	return &FakePointer{pos: p}
}

// MoveTo sets the position.
func (f *FakePointer) MoveTo(p domain.Position) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = p
}

// FailWith makes Position fail; nil clears it.
func (f *FakePointer) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *FakePointer) Position() (domain.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos, f.err
}

var (
	_ domain.ActionExecutor = (*RecordingExecutor)(nil)
	_ domain.PointerTracker = (*FakePointer)(nil)
)
