package frames

import (
	"context"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"k21/internal/services"
)

// ErrCaptureUnavailable reports that no display can be captured.
var ErrCaptureUnavailable = fmt.Errorf("%w: no active display", services.ErrFatalCapture)

// ScreenGrabber captures a whole display through the platform screenshot API.
type ScreenGrabber struct {
	display int
	bounds  image.Rectangle
}

// NewScreenGrabber selects display (0 is the primary display).
func NewScreenGrabber(display int) (*ScreenGrabber, error) {
	count := screenshot.NumActiveDisplays()
	if count == 0 {
		return nil, ErrCaptureUnavailable
	}
	if display < 0 || display >= count {
		return nil, services.Wrap(services.ErrConfiguration, "capture", "select display",
			fmt.Sprintf("display %d out of range (%d active)", display, count), nil)
	}
	bounds := screenshot.GetDisplayBounds(display)
	if bounds.Empty() {
		return nil, ErrCaptureUnavailable
	}
	return &ScreenGrabber{display: display, bounds: bounds}, nil
}

// Displays lists the bounds of all active displays.
func Displays() []image.Rectangle {
	count := screenshot.NumActiveDisplays()
	out := make([]image.Rectangle, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, screenshot.GetDisplayBounds(i))
	}
	return out
}

// Bounds returns the captured rectangle in desktop coordinates.
func (g *ScreenGrabber) Bounds() image.Rectangle { return g.bounds }

// Grab captures the display.
func (g *ScreenGrabber) Grab(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(g.bounds)
	if err != nil {
		return nil, fmt.Errorf("capture display %d: %w", g.display, err)
	}
	return ToRGBA(img), nil
}
