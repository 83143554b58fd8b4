package screenshot

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"k21/internal/frames"
	"k21/internal/services"
)

func solidFrame(index uint64, ts time.Time) *frames.Frame {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 200, 10, 10, 255
	}
	return frames.NewFrame(index, ts, img, nil)
}

func TestFileName(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 890_000_000, time.FixedZone("X", 3600))
	if got := FileName(12, ts, FormatPNG); got != "frame_000012_20260304T040607.890Z.png" {
		t.Fatalf("png name = %q", got)
	}
	if got := FileName(3, ts, FormatJPEG); got != "frame_000003_20260304T040607.890Z.jpg" {
		t.Fatalf("jpeg name = %q", got)
	}
}

func TestWriterPNG(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Config{Dir: dir})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	path, err := w.Accept(solidFrame(1, time.Now()))
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 6 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	r, g, b, _ := img.At(3, 3).RGBA()
	if got := (color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 255}); got != (color.RGBA{200, 10, 10, 255}) {
		t.Fatalf("pixel = %v", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestWriterJPEG(t *testing.T) {
	w, err := NewWriter(Config{Dir: t.TempDir(), Format: "jpg", Quality: 70})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	path, err := w.Accept(solidFrame(2, time.Now()))
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if filepath.Ext(path) != ".jpg" {
		t.Fatalf("path = %q", path)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	if _, err := jpeg.Decode(file); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestWriterFailures(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")
	w, err := NewWriter(Config{Dir: missing})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	_, err = w.Accept(solidFrame(0, time.Now()))
	if !errors.Is(err, services.ErrFrameWrite) || services.IsFatal(err) {
		t.Fatalf("err = %v, want non-fatal ErrFrameWrite", err)
	}

	w, _ = NewWriter(Config{Dir: t.TempDir()})
	f := solidFrame(0, time.Now())
	f.Release()
	if _, err := w.Accept(f); !errors.Is(err, frames.ErrReleased) {
		t.Fatalf("released frame err = %v", err)
	}
}

func TestNewWriterValidates(t *testing.T) {
	for _, cfg := range []Config{{}, {Dir: "x", Format: "gif"}, {Dir: "x", Quality: 101}} {
		if _, err := NewWriter(cfg); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("cfg %+v: err = %v", cfg, err)
		}
	}
}
