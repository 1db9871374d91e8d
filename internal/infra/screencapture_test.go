package infra

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

// writePNG stands in for `screencapture`, writing a solid image to the last arg.
func writePNG(w, h int, c color.RGBA) func(string, []string) error {
	return func(name string, args []string) error {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.Set(x, y, c)
			}
		}
		f, err := os.Create(args[len(args)-1])
		if err != nil {
			return err
		}
		defer f.Close()
		return png.Encode(f, img)
	}
}

func TestScreenCaptureSampler_Sample(t *testing.T) {
	runner := newFakeRunner()
	runner.hook = writePNG(4, 3, color.RGBA{R: 10, G: 20, B: 200, A: 255})
	tmp := t.TempDir()
	sampler := NewScreenCaptureSamplerWithDeps(runner, tmp)

	frame, err := sampler.Sample(context.Background(), domain.Rect{X: 10, Y: 20, Width: 4, Height: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, frame.Width)
	assert.Equal(t, 3, frame.Height)
	r, g, b := frame.RGB(2, 1)
	assert.Equal(t, []uint8{10, 20, 200}, []uint8{r, g, b})

	calls := runner.callsFor("-x")
	require.Len(t, calls, 1)
	assert.Equal(t, "screencapture", calls[0].Name)
	assert.Equal(t, "10,20,4,3", calls[0].Args[2])

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "capture file should be removed")
}

func TestScreenCaptureSampler_RejectsEmptyRegion(t *testing.T) {
	runner := newFakeRunner()
	sampler := NewScreenCaptureSamplerWithDeps(runner, t.TempDir())

	_, err := sampler.Sample(context.Background(), domain.Rect{Width: 0, Height: 10})
	assert.Error(t, err)
	assert.Empty(t, runner.callsFor("-x"))
}

func TestScreenCaptureSampler_UndecodableCapture(t *testing.T) {
	runner := newFakeRunner()
	// screencapture "succeeds" but leaves the temp file empty (no screen access)
	sampler := NewScreenCaptureSamplerWithDeps(runner, t.TempDir())

	_, err := sampler.Sample(context.Background(), domain.Rect{Width: 2, Height: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
