package frames

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	"image/png"
	"sync/atomic"
	"time"
)

// ErrReleased is returned when a frame is used after its last release.
var ErrReleased = errors.New("frame already released")

// Frame is one captured screen image.
type Frame struct {
	Index     uint64
	Timestamp time.Time

	img     *image.RGBA
	refs    atomic.Int32
	onFinal func()
}

// NewFrame wraps img with a reference count of one. The caller owns that
// reference. onFinal, when set, runs once after the last release.
func NewFrame(index uint64, ts time.Time, img *image.RGBA, onFinal func()) *Frame {
	f := &Frame{Index: index, Timestamp: ts, img: img, onFinal: onFinal}
	f.refs.Store(1)
	return f
}

// FromImage converts any decoded image into a Frame, copying into an RGBA
// buffer when needed.
func FromImage(index uint64, ts time.Time, src image.Image) *Frame {
	return NewFrame(index, ts, ToRGBA(src), nil)
}

// ToRGBA returns src as *image.RGBA with a zero origin.
func ToRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// Retain adds a reference. The caller must already hold one.
func (f *Frame) Retain() *Frame {
	f.refs.Add(1)
	return f
}

// Release drops a reference. After the last release the pixels are gone and
// Image returns nil.
func (f *Frame) Release() {
	switch n := f.refs.Add(-1); {
	case n == 0:
		f.img = nil
		if f.onFinal != nil {
			f.onFinal()
		}
	case n < 0:
		f.refs.Store(0)
	}
}

// Refs reports the current reference count.
func (f *Frame) Refs() int32 { return f.refs.Load() }

// Image returns the frame pixels without copying. Callers must not modify it.
func (f *Frame) Image() *image.RGBA { return f.img }

// Pixels returns the raw RGBA bytes, row-major with Stride bytes per row.
func (f *Frame) Pixels() []byte {
	if f.img == nil {
		return nil
	}
	return f.img.Pix
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int {
	if f.img == nil {
		return 0
	}
	return f.img.Rect.Dx()
}

// Height returns the frame height in pixels.
func (f *Frame) Height() int {
	if f.img == nil {
		return 0
	}
	return f.img.Rect.Dy()
}

// EncodePNG encodes the frame as PNG, favouring speed over size.
func (f *Frame) EncodePNG() ([]byte, error) {
	if f.img == nil {
		return nil, ErrReleased
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, f.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
