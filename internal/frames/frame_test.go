package frames

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"
)

func TestFrameRefCounting(t *testing.T) {
	finals := 0
	f := NewFrame(3, time.Now(), image.NewRGBA(image.Rect(0, 0, 2, 2)), func() { finals++ })
	f.Retain()
	f.Retain()
	if f.Refs() != 3 {
		t.Fatalf("refs = %d, want 3", f.Refs())
	}
	f.Release()
	f.Release()
	if f.Image() == nil || finals != 0 {
		t.Fatal("frame released early")
	}
	f.Release()
	if f.Image() != nil || f.Pixels() != nil || finals != 1 {
		t.Fatalf("frame not released: image=%v finals=%d", f.Image() != nil, finals)
	}
	if _, err := f.EncodePNG(); !errors.Is(err, ErrReleased) {
		t.Fatalf("EncodePNG after release err = %v", err)
	}
	f.Release()
	if finals != 1 {
		t.Fatal("final hook must run once")
	}
}

func TestFrameEncodePNGRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{R: 200, G: 10, B: 30, A: 255})
	f := NewFrame(0, time.Now(), img, nil)
	data, err := f.EncodePNG()
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds().Dx() != 3 || decoded.Bounds().Dy() != 2 {
		t.Fatalf("bounds = %v", decoded.Bounds())
	}
	r, g, b, _ := decoded.At(1, 1).RGBA()
	if r>>8 != 200 || g>>8 != 10 || b>>8 != 30 {
		t.Fatalf("pixel = %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestToRGBANormalizesOrigin(t *testing.T) {
	gray := image.NewGray(image.Rect(10, 10, 14, 12))
	gray.SetGray(10, 10, color.Gray{Y: 77})
	rgba := ToRGBA(gray)
	if rgba.Rect != image.Rect(0, 0, 4, 2) {
		t.Fatalf("rect = %v", rgba.Rect)
	}
	if got := rgba.RGBAAt(0, 0); got.R != 77 {
		t.Fatalf("pixel = %+v", got)
	}
	same := image.NewRGBA(image.Rect(0, 0, 1, 1))
	if ToRGBA(same) != same {
		t.Fatal("zero-origin RGBA should be returned as is")
	}
	f := FromImage(9, time.Now(), gray)
	if f.Width() != 4 || f.Height() != 2 || f.Index != 9 {
		t.Fatalf("unexpected frame %dx%d #%d", f.Width(), f.Height(), f.Index)
	}
}
