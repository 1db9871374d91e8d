package infra

import (
	"time"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time        { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

var _ domain.Clock = RealClock{}
