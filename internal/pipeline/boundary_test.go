package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"k21/internal/processor"
	"k21/internal/records"
	"k21/internal/services"
	"k21/internal/testsupport"
	"k21/internal/video"
)

type fakeExtractor struct {
	t        *testing.T
	frames   int
	duration time.Duration
	err      error
	outDir   string
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, outDir string, fps float64) (video.Extraction, error) {
	f.outDir = outDir
	if f.err != nil {
		return video.Extraction{}, f.err
	}
	var paths []string
	for i := 1; i <= f.frames; i++ {
		path := filepath.Join(outDir, fmt.Sprintf("frame_%06d.png", i))
		testsupport.WritePNG(f.t, path, 4, 4, color.RGBA{R: uint8(i), A: 255})
		paths = append(paths, path)
	}
	return video.Extraction{FramePaths: paths, FPS: fps, Duration: f.duration}, nil
}

func newOCRProcessor(t *testing.T, failOn map[uint64]bool) *processor.Processor {
	t.Helper()
	p, err := processor.New(processor.DefaultConfig(), processor.Deps{OCR: &indexedOCR{failOn: failOn}})
	if err != nil {
		t.Fatalf("processor.New: %v", err)
	}
	return p
}

func TestProcessSingleImageIsDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	testsupport.WritePNG(t, path, 6, 6, color.RGBA{G: 255, A: 255})
	proc := newOCRProcessor(t, nil)

	first, err := ProcessSingleImage(context.Background(), proc, path)
	if err != nil {
		t.Fatalf("ProcessSingleImage: %v", err)
	}
	second, err := ProcessSingleImage(context.Background(), proc, path)
	if err != nil {
		t.Fatalf("ProcessSingleImage: %v", err)
	}
	if first.Text != second.Text || first.Text != "frame text" {
		t.Fatalf("texts differ: %q vs %q", first.Text, second.Text)
	}
	if first.FrameNumber != 0 || first.ProcessingType != records.TypeOCR {
		t.Fatalf("record = %+v", first)
	}
	if _, err := first.Time(); err != nil {
		t.Fatalf("timestamp %q: %v", first.Timestamp, err)
	}
}

func TestProcessSingleImageErrors(t *testing.T) {
	proc := newOCRProcessor(t, map[uint64]bool{0: true})
	if _, err := ProcessSingleImage(context.Background(), proc, filepath.Join(t.TempDir(), "missing.png")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	garbage := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ProcessSingleImage(context.Background(), proc, garbage); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("garbage err = %v", err)
	}
	path := filepath.Join(t.TempDir(), "shot.png")
	testsupport.WritePNG(t, path, 2, 2, color.RGBA{A: 255})
	if _, err := ProcessSingleImage(context.Background(), proc, path); !errors.Is(err, services.ErrFrameProcess) {
		t.Fatalf("processing err = %v", err)
	}
}

func TestProcessVideoTimestampsAndSkips(t *testing.T) {
	videoPath := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(videoPath, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2026, 4, 5, 10, 0, 3, 0, time.UTC)
	if err := os.Chtimes(videoPath, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	extractor := &fakeExtractor{t: t, frames: 6, duration: 3 * time.Second}
	stats := &Stats{}
	recs, err := ProcessVideo(context.Background(), extractor, newOCRProcessor(t, map[uint64]bool{1: true}), videoPath, 2,
		WithVideoStats(stats), WithVideoConcurrency(2))
	if err != nil {
		t.Fatalf("ProcessVideo: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("records = %d", len(recs))
	}
	want := []uint64{0, 2, 3, 4, 5}
	for i, rec := range recs {
		if rec.FrameNumber != want[i] {
			t.Fatalf("record %d frame = %d", i, rec.FrameNumber)
		}
		ts, err := rec.Time()
		if err != nil {
			t.Fatalf("time: %v", err)
		}
		expected := mtime.Add(-3 * time.Second).Add(time.Duration(rec.FrameNumber) * 500 * time.Millisecond)
		if !ts.Equal(expected) {
			t.Fatalf("frame %d timestamp = %v, want %v", rec.FrameNumber, ts, expected)
		}
	}
	if stats.FramesFailed.Load() != 1 || stats.FramesProcessed.Load() != 5 {
		t.Fatalf("stats = %+v", stats.Snapshot())
	}
	if _, err := os.Stat(extractor.outDir); !os.IsNotExist(err) {
		t.Fatalf("temp frame dir not removed: %v", err)
	}
}

func TestProcessVideoSetupFailure(t *testing.T) {
	extractor := &fakeExtractor{t: t, err: services.Wrap(services.ErrExternalTool, "video", "extract", "ffmpeg failed", nil)}
	_, err := ProcessVideo(context.Background(), extractor, newOCRProcessor(t, nil), "clip.mp4", 1)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v", err)
	}
	if _, err := ProcessVideo(context.Background(), extractor, newOCRProcessor(t, nil), "clip.mp4", 0); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("zero fps err = %v", err)
	}
}
