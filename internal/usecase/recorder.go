// Package usecase contains application business logic: detection predicates,
// cooldown gating, the stop condition, actions and session coordination.
package usecase

import "github.com/eliteGoblin/focusd/mailslot/internal/domain"

// Recorder receives outcomes worth counting. metrics.Recorder implements it.
type Recorder interface {
	Detection()
	Suppressed()
	Published(channel domain.Channel)
	Action(action string, err error)
	Stopped(reason string)
	LoopError(kind domain.ErrorKind)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) Detection()                      {}
func (NopRecorder) Suppressed()                     {}
func (NopRecorder) Published(domain.Channel)        {}
func (NopRecorder) Action(action string, err error) {}
func (NopRecorder) Stopped(reason string)           {}
func (NopRecorder) LoopError(domain.ErrorKind)      {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return NopRecorder{}
	}
	return r
}
