package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Capture holds the screen sampling and persistence settings for one run.
type Capture struct {
	FPS float64 `toml:"fps"`
	// DurationSeconds bounds the run; zero means until cancelled.
	DurationSeconds float64 `toml:"duration_seconds"`
	// MaxFrames bounds the number of emitted frames; zero means unbounded.
	MaxFrames                 int64   `toml:"max_frames"`
	Display                   int     `toml:"display"`
	SaveScreenshot            bool    `toml:"save_screenshot"`
	SaveVideo                 bool    `toml:"save_video"`
	VideoChunkDurationSeconds float64 `toml:"video_chunk_duration_seconds"`
	OutputDirVideo            string  `toml:"output_dir_video"`
	OutputDirScreenshot       string  `toml:"output_dir_screenshot"`
}

// Processor selects the text extraction backend.
type Processor struct {
	// Type is "ocr", "vision" or "none".
	Type string `toml:"type"`
}

// OCR configures the tesseract backend.
type OCR struct {
	Model          string `toml:"model"`
	Binary         string `toml:"binary"`
	Language       string `toml:"language"`
	BoundingBoxes  bool   `toml:"bounding_boxes"`
	DPI            *int   `toml:"dpi"`
	PSM            *int   `toml:"psm"`
	OEM            *int   `toml:"oem"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Vision configures the OpenAI-compatible vision backend.
type Vision struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	Prompt         string `toml:"prompt"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Pipeline holds the orchestrator backpressure settings.
type Pipeline struct {
	MaxInFlight         int    `toml:"max_in_flight"`
	QueueCapacity       int    `toml:"queue_capacity"`
	StaleAfterSeconds   int    `toml:"stale_after_seconds"`
	DropPolicy          string `toml:"drop_policy"`
	DrainTimeoutSeconds int    `toml:"drain_timeout_seconds"`
	SinkQueueSize       int    `toml:"sink_queue_size"`
}

// Video configures chunk encoding and offline extraction.
type Video struct {
	FFmpegBinary  string  `toml:"ffmpeg_binary"`
	FFprobeBinary string  `toml:"ffprobe_binary"`
	Codec         string  `toml:"codec"`
	Preset        string  `toml:"preset"`
	ExtractFPS    float64 `toml:"extract_fps"`
}

// Screenshot configures still image output.
type Screenshot struct {
	Format  string `toml:"format"`
	Quality int    `toml:"quality"`
}

// Store configures the optional sqlite record export.
type Store struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for k21.
type Config struct {
	Capture    Capture    `toml:"capture"`
	Processor  Processor  `toml:"processor"`
	OCR        OCR        `toml:"ocr"`
	Vision     Vision     `toml:"vision"`
	Pipeline   Pipeline   `toml:"pipeline"`
	Video      Video      `toml:"video"`
	Screenshot Screenshot `toml:"screenshot"`
	Store      Store      `toml:"store"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the default configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error: defaults are returned with exists=false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("k21.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// Encode renders cfg as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// Duration returns the configured capture bound, or nil when unbounded.
func (c Capture) Duration() *time.Duration {
	if c.DurationSeconds <= 0 {
		return nil
	}
	d := secondsToDuration(c.DurationSeconds)
	return &d
}

// FrameLimit returns the configured frame bound, or nil when unbounded.
func (c Capture) FrameLimit() *uint64 {
	if c.MaxFrames <= 0 {
		return nil
	}
	n := uint64(c.MaxFrames)
	return &n
}

// ChunkDuration returns the video chunk length.
func (c Capture) ChunkDuration() time.Duration {
	return secondsToDuration(c.VideoChunkDurationSeconds)
}

// Timeout returns the per-request vision timeout.
func (v Vision) Timeout() time.Duration {
	return time.Duration(v.TimeoutSeconds) * time.Second
}

// Timeout returns the per-invocation tesseract timeout.
func (o OCR) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// StaleAfter returns the backlog staleness bound; zero disables the check.
func (p Pipeline) StaleAfter() time.Duration {
	return time.Duration(p.StaleAfterSeconds) * time.Second
}

// DrainTimeout returns the bound on in-flight processing after capture stops.
func (p Pipeline) DrainTimeout() time.Duration {
	return time.Duration(p.DrainTimeoutSeconds) * time.Second
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
