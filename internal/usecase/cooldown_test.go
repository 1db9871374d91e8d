package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldown_ReadyBeforeFirstAction(t *testing.T) {
	c := NewCooldown(3 * time.Second)
	assert.True(t, c.Ready(t0))

	_, ok := c.Last()
	assert.False(t, ok)
}

func TestCooldown_Window(t *testing.T) {
	c := NewCooldown(3 * time.Second)
	c.Mark(t0)

	assert.False(t, c.Ready(t0))
	assert.False(t, c.Ready(t0.Add(2999*time.Millisecond)))
	assert.True(t, c.Ready(t0.Add(3*time.Second)), "boundary is inclusive")

	last, ok := c.Last()
	assert.True(t, ok)
	assert.Equal(t, t0, last)
}

func TestCooldown_ZeroDuration(t *testing.T) {
	c := NewCooldown(0)
	c.Mark(t0)
	assert.True(t, c.Ready(t0))
}
