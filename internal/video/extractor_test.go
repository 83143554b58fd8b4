package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"k21/internal/services"
)

type fakeExtractExec struct {
	count int
	err   error
	args  []string
}

func (f *fakeExtractExec) Run(_ context.Context, _ string, args []string) ([]byte, error) {
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	pattern := args[len(args)-1]
	for i := 1; i <= f.count; i++ {
		if err := os.WriteFile(fmt.Sprintf(pattern, i), []byte("png"), 0o644); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

func TestExtractorExtract(t *testing.T) {
	exec := &fakeExtractExec{count: 12}
	probe := func(context.Context, string, ...string) ([]byte, error) {
		return []byte(`{"format":{"duration":"6.0"},"streams":[]}`), nil
	}
	e := NewExtractor("", "", WithExecutor(exec), WithProbeRunner(probe))
	out := t.TempDir()
	result, err := e.Extract(context.Background(), writeVideo(t), out, 2)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.FramePaths) != 12 {
		t.Fatalf("frames = %d", len(result.FramePaths))
	}
	if filepath.Base(result.FramePaths[0]) != "frame_000001.png" || filepath.Base(result.FramePaths[11]) != "frame_000012.png" {
		t.Fatalf("frames not sorted: %v", result.FramePaths)
	}
	if result.Duration != 6*time.Second || result.FPS != 2 {
		t.Fatalf("unexpected extraction: %+v", result)
	}
	if exec.args[len(exec.args)-3] != "fps=2" {
		t.Fatalf("fps filter missing: %v", exec.args)
	}
}

func TestExtractorProbeFailureIsNotFatal(t *testing.T) {
	probe := func(context.Context, string, ...string) ([]byte, error) { return nil, errors.New("no ffprobe") }
	e := NewExtractor("ffmpeg", "ffprobe", WithExecutor(&fakeExtractExec{count: 1}), WithProbeRunner(probe))
	result, err := e.Extract(context.Background(), writeVideo(t), t.TempDir(), 1)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Duration != 0 || len(result.FramePaths) != 1 {
		t.Fatalf("unexpected extraction: %+v", result)
	}
}

func TestExtractorErrors(t *testing.T) {
	probe := func(context.Context, string, ...string) ([]byte, error) { return []byte(`{}`), nil }
	e := NewExtractor("ffmpeg", "ffprobe", WithExecutor(&fakeExtractExec{}), WithProbeRunner(probe))
	if _, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), t.TempDir(), 1); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing file err = %v", err)
	}
	if _, err := e.Extract(context.Background(), writeVideo(t), t.TempDir(), 0); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("zero fps err = %v", err)
	}
	if _, err := e.Extract(context.Background(), writeVideo(t), t.TempDir(), 1); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("no frames err = %v", err)
	}
	failing := NewExtractor("ffmpeg", "ffprobe", WithExecutor(&fakeExtractExec{err: errors.New("exit 1")}), WithProbeRunner(probe))
	if _, err := failing.Extract(context.Background(), writeVideo(t), t.TempDir(), 1); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("ffmpeg failure err = %v", err)
	}
}
