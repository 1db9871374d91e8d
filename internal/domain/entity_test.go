package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePositions(t *testing.T) {
	data := EncodePositions([]Position{{X: 10, Y: 10}, {X: 20, Y: 20}})
	assert.Equal(t, "10,10\n20,20\n", string(data))
}

func TestDecodePositions_SkipsBlankAndMalformed(t *testing.T) {
	positions, err := DecodePositions([]byte("10,10\n\n  20 , 30 \nbogus\n40,x\n5,6\n"))

	assert.Error(t, err)
	assert.Equal(t, []Position{{10, 10}, {20, 30}, {5, 6}}, positions)
}

func TestDecodePositions_Empty(t *testing.T) {
	positions, err := DecodePositions(nil)
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestTimestampCodec(t *testing.T) {
	at := time.UnixMilli(1700000000123)

	decoded, err := DecodeTimestamp(EncodeTimestamp(at))
	require.NoError(t, err)
	assert.True(t, at.Equal(decoded), "got %v", decoded)

	_, err = DecodeTimestamp([]byte(" "))
	assert.Error(t, err)
	_, err = DecodeTimestamp([]byte("yesterday"))
	assert.Error(t, err)
}

func TestDetectionEvent_Payload(t *testing.T) {
	at := time.UnixMilli(1700000000500)
	motion := DetectionEvent{Motion: true, At: at}
	assert.Equal(t, "1700000000.500", string(motion.Payload()))

	hits := DetectionEvent{Positions: []Position{{X: 1, Y: 2}}, At: at}
	assert.Equal(t, "1,2\n", string(hits.Payload()))
}

func TestRectAround_ClampsAtOrigin(t *testing.T) {
	assert.Equal(t, Rect{X: 70, Y: 170, Width: 60, Height: 60}, RectAround(Position{X: 100, Y: 200}, 30))
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 60, Height: 60}, RectAround(Position{X: 10, Y: 5}, 30))
}

func TestChannel_FileName(t *testing.T) {
	assert.Equal(t, "motion_status", ChannelMotion.FileName())
	assert.Equal(t, "click_positions", ChannelClickTargets.FileName())
	assert.Equal(t, "KILL_SWITCH", ChannelStop.FileName())
	assert.Equal(t, "custom", Channel("custom").FileName())
}
