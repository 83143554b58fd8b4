package ffprobe

import (
	"context"
	"errors"
	"testing"
)

const sampleOutput = `{
  "streams": [
    {"index": 0, "codec_name": "aac", "codec_type": "audio"},
    {"index": 1, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080,
     "avg_frame_rate": "30000/1001", "duration": "12.5"}
  ],
  "format": {"filename": "clip.mp4", "nb_streams": 2, "duration": "12.512", "format_name": "mov,mp4"}
}`

func TestInspectWithParsesOutput(t *testing.T) {
	var gotArgs []string
	run := func(_ context.Context, binary string, args ...string) ([]byte, error) {
		if binary != "ffprobe" {
			t.Fatalf("binary = %q", binary)
		}
		gotArgs = args
		return []byte(sampleOutput), nil
	}
	result, err := InspectWith(context.Background(), run, "", "clip.mp4")
	if err != nil {
		t.Fatalf("InspectWith: %v", err)
	}
	if gotArgs[len(gotArgs)-1] != "clip.mp4" || gotArgs[len(gotArgs)-2] != "--" {
		t.Fatalf("path not passed after --: %v", gotArgs)
	}
	video, ok := result.Video()
	if !ok || video.Width != 1920 || video.Height != 1080 {
		t.Fatalf("unexpected video stream: %+v ok=%v", video, ok)
	}
	if result.DurationSeconds() != 12.512 {
		t.Fatalf("duration = %v", result.DurationSeconds())
	}
	if fps := result.FrameRate(); fps < 29.96 || fps > 29.98 {
		t.Fatalf("frame rate = %v", fps)
	}
}

func TestInspectWithErrors(t *testing.T) {
	if _, err := InspectWith(context.Background(), nil, "ffprobe", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
	failing := func(context.Context, string, ...string) ([]byte, error) { return nil, errors.New("exit 1") }
	if _, err := InspectWith(context.Background(), failing, "ffprobe", "x.mp4"); err == nil {
		t.Fatal("expected runner error to propagate")
	}
	garbage := func(context.Context, string, ...string) ([]byte, error) { return []byte("not json"), nil }
	if _, err := InspectWith(context.Background(), garbage, "ffprobe", "x.mp4"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDurationFallsBackToStream(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video", Duration: "4.0", AvgFrameRate: "0/0"}},
		Format:  Format{Duration: "bad"},
	}
	if result.DurationSeconds() != 4 {
		t.Fatalf("duration = %v, want 4", result.DurationSeconds())
	}
	if result.FrameRate() != 0 {
		t.Fatalf("frame rate = %v, want 0", result.FrameRate())
	}
	if (Result{}).DurationSeconds() != 0 {
		t.Fatal("empty result should report zero duration")
	}
}
