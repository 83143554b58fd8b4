package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"k21/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("K21_VISION_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "k21", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Capture.OutputDirVideo != filepath.Join(tempHome, ".local", "share", "k21", "video") {
		t.Fatalf("unexpected video dir %q", cfg.Capture.OutputDirVideo)
	}
	if cfg.Capture.FPS != 1 {
		t.Fatalf("fps = %v, want 1", cfg.Capture.FPS)
	}
	if d := cfg.Capture.Duration(); d == nil || *d != 10*time.Second {
		t.Fatalf("duration = %v, want 10s", d)
	}
	if cfg.Capture.FrameLimit() != nil {
		t.Fatal("expected no frame limit by default")
	}
	if cfg.Processor.Type != config.ProcessorOCR || cfg.OCR.Model != "default" || !cfg.OCR.BoundingBoxes {
		t.Fatalf("unexpected processor defaults: %+v %+v", cfg.Processor, cfg.OCR)
	}
	if cfg.Pipeline.MaxInFlight != 4 || cfg.Pipeline.QueueCapacity != 16 || cfg.Pipeline.DropPolicy != config.DropOldest {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
}

func TestLoadCustomPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "k21.toml")
	contents := `
[capture]
fps = 2.5
duration_seconds = 0
max_frames = 20
save_video = true
video_chunk_duration_seconds = 5
output_dir_video = "` + filepath.Join(dir, "video") + `"

[processor]
type = "vision"

[vision]
url = "http://localhost:8080/v1/chat/completions"
api_key = "file-key"
model = "llava"

[screenshot]
format = "jpg"
quality = 70
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Capture.FPS != 2.5 {
		t.Fatalf("fps = %v", cfg.Capture.FPS)
	}
	if cfg.Capture.Duration() != nil {
		t.Fatal("duration_seconds = 0 should mean unbounded")
	}
	if n := cfg.Capture.FrameLimit(); n == nil || *n != 20 {
		t.Fatalf("frame limit = %v, want 20", n)
	}
	if cfg.Capture.ChunkDuration() != 5*time.Second {
		t.Fatalf("chunk duration = %v", cfg.Capture.ChunkDuration())
	}
	if cfg.Vision.APIKey != "file-key" {
		t.Fatalf("api key = %q", cfg.Vision.APIKey)
	}
	if cfg.Screenshot.Format != config.FormatJPEG {
		t.Fatalf("screenshot format = %q, want jpeg", cfg.Screenshot.Format)
	}
	if cfg.OCR.Model != "default" {
		t.Fatalf("untouched section lost its default: %q", cfg.OCR.Model)
	}
}

func TestLoadRejectsLegacyKeyNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k21.toml")
	if err := os.WriteFile(path, []byte("[capture]\nrecord_length_in_seconds = 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestVisionAPIKeyEnvFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k21.toml")
	if err := os.WriteFile(path, []byte("[processor]\ntype = \"vision\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("K21_VISION_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Vision.APIKey != "openai-key" {
		t.Fatalf("api key = %q, want openai-key", cfg.Vision.APIKey)
	}

	t.Setenv("K21_VISION_API_KEY", "k21-key")
	cfg, _, _, err = config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Vision.APIKey != "k21-key" {
		t.Fatalf("api key = %q, want k21-key", cfg.Vision.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_vision_api_key_here") {
		t.Fatalf("sample config missing placeholder key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Pipeline.DropPolicy != config.DropOldest {
		t.Fatalf("sample drop policy = %q", cfg.Pipeline.DropPolicy)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample should load cleanly: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero fps", func(c *config.Config) { c.Capture.FPS = 0 }},
		{"negative duration", func(c *config.Config) { c.Capture.DurationSeconds = -1 }},
		{"negative max frames", func(c *config.Config) { c.Capture.MaxFrames = -3 }},
		{"video without chunk duration", func(c *config.Config) {
			c.Capture.SaveVideo = true
			c.Capture.VideoChunkDurationSeconds = 0
		}},
		{"screenshots without dir", func(c *config.Config) {
			c.Capture.SaveScreenshot = true
			c.Capture.OutputDirScreenshot = " "
		}},
		{"unknown processor", func(c *config.Config) { c.Processor.Type = "magic" }},
		{"unknown ocr model", func(c *config.Config) { c.OCR.Model = "easyocr" }},
		{"vision without model", func(c *config.Config) {
			c.Processor.Type = config.ProcessorVision
			c.Vision.Model = ""
		}},
		{"zero in flight", func(c *config.Config) { c.Pipeline.MaxInFlight = 0 }},
		{"bad drop policy", func(c *config.Config) { c.Pipeline.DropPolicy = "drop-random" }},
		{"jpeg quality", func(c *config.Config) {
			c.Screenshot.Format = config.FormatJPEG
			c.Screenshot.Quality = 0
		}},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "trace" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestEncodeRoundTripsThroughLoad(t *testing.T) {
	cfg := config.Default()
	cfg.Capture.FPS = 3
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "k21.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v\n%s", err, data)
	}
	if loaded.Capture.FPS != 3 {
		t.Fatalf("fps = %v, want 3", loaded.Capture.FPS)
	}
}
