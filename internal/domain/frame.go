package domain

import (
	"fmt"
	"image"
)

// Frame is a captured RGB region. Pixels are stored row-major, three bytes each.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewFrame allocates a black frame.
func NewFrame(width, height int) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Frame{Width: width, Height: height, Pix: make([]uint8, width*height*3)}
}

// FrameFromImage copies any image into a Frame, dropping alpha.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			f.Set(x, y, uint8(r>>8), uint8(g>>8), uint8(bl>>8))
		}
	}
	return f
}

// Empty reports whether the frame has no pixels. A nil frame is empty.
func (f *Frame) Empty() bool {
	return f == nil || f.Width == 0 || f.Height == 0
}

// RGB returns the channels of the pixel at (x, y).
func (f *Frame) RGB(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Set writes the pixel at (x, y).
func (f *Frame) Set(x, y int, r, g, b uint8) {
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}

// Fill paints the whole frame with one color.
func (f *Frame) Fill(r, g, b uint8) {
	for i := 0; i < len(f.Pix); i += 3 {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
	}
}

// SameSize reports whether two frames can be compared pixel by pixel.
func (f *Frame) SameSize(other *Frame) bool {
	return !f.Empty() && !other.Empty() && f.Width == other.Width && f.Height == other.Height
}

// dims is nil-safe; a nil frame is 0x0.
func (f *Frame) dims() (int, int) {
	if f == nil {
		return 0, 0
	}
	return f.Width, f.Height
}

// AbsDiff returns the per-channel absolute difference against other.
func (f *Frame) AbsDiff(other *Frame) (*Frame, error) {
	if !f.SameSize(other) {
		fw, fh := f.dims()
		ow, oh := other.dims()
		return nil, fmt.Errorf("frame size mismatch: %dx%d vs %dx%d", fw, fh, ow, oh)
	}
	out := NewFrame(f.Width, f.Height)
	for i := range f.Pix {
		a, b := f.Pix[i], other.Pix[i]
		if a > b {
			out.Pix[i] = a - b
		} else {
			out.Pix[i] = b - a
		}
	}
	return out, nil
}

// CountChanged counts pixels where any channel differs from other by more than floor.
func (f *Frame) CountChanged(other *Frame, floor uint8) (int, error) {
	diff, err := f.AbsDiff(other)
	if err != nil {
		return 0, err
	}
	changed := 0
	for i := 0; i < len(diff.Pix); i += 3 {
		if diff.Pix[i] > floor || diff.Pix[i+1] > floor || diff.Pix[i+2] > floor {
			changed++
		}
	}
	return changed, nil
}
