package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so loops can decide between skipping a tick,
// logging an action failure, surfacing to the operator, or exiting.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindIO is a transient sampling or signal-file failure. Skip the tick.
	KindIO
	// KindAction means an external action did not take effect. Log, do not retry.
	KindAction
	// KindCoordination means a process group could not be created or torn down.
	KindCoordination
	// KindFatal ends the polling loop that hit it.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindAction:
		return "action"
	case KindCoordination:
		return "coordination"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ErrLoopDone ends a polling loop without an error.
var ErrLoopDone = errors.New("loop done")

// Error is a classified failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func IOError(op string, err error) error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

func ActionError(op string, err error) error {
	return &Error{Kind: KindAction, Op: op, Err: err}
}

func CoordinationError(op string, err error) error {
	return &Error{Kind: KindCoordination, Op: op, Err: err}
}

func FatalError(op string, err error) error {
	return &Error{Kind: KindFatal, Op: op, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsFatal reports whether err must end the loop.
func IsFatal(err error) bool {
	return KindOf(err) == KindFatal
}
