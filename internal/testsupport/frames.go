package testsupport

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"time"

	"k21/internal/frames"
)

// SolidFrame builds a frame holding a solid w x h image.
func SolidFrame(index uint64, ts time.Time, w, h int, c color.RGBA) *frames.Frame {
	return frames.NewFrame(index, ts, SolidImage(w, h, c), nil)
}

// FakeGrabber returns solid images and counts Grab calls. Fail, when set,
// decides per call (1-based) whether the grab fails.
type FakeGrabber struct {
	Width  int
	Height int
	Fail   func(call int64) bool

	calls atomic.Int64
}

// NewFakeGrabber returns a grabber producing w x h images.
func NewFakeGrabber(w, h int) *FakeGrabber {
	return &FakeGrabber{Width: w, Height: h}
}

// Grab implements frames.Grabber.
func (g *FakeGrabber) Grab(ctx context.Context) (*image.RGBA, error) {
	call := g.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.Fail != nil && g.Fail(call) {
		return nil, errors.New("display went away")
	}
	shade := uint8(call * 16)
	return SolidImage(g.Width, g.Height, color.RGBA{R: shade, G: 64, B: 128, A: 255}), nil
}

// Bounds implements frames.Grabber.
func (g *FakeGrabber) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

// Calls reports how many times Grab ran.
func (g *FakeGrabber) Calls() int64 { return g.calls.Load() }
