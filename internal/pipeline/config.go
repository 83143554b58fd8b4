package pipeline

import (
	"fmt"
	"strings"
	"time"

	"k21/internal/frames"
	"k21/internal/services"
)

// DropPolicy decides which frame is evicted when the processing backlog is full.
type DropPolicy string

const (
	// DropOldest evicts the head of the backlog to admit the arrival.
	DropOldest DropPolicy = "drop-oldest"
	// DropNewest rejects the arrival.
	DropNewest DropPolicy = "drop-newest"
)

// CaptureConfig describes what one run captures and where it writes.
type CaptureConfig struct {
	FPS float64
	// Duration bounds the run; nil is unbounded.
	Duration *time.Duration
	// MaxFrames bounds the run; nil is unbounded.
	MaxFrames           *uint64
	SaveScreenshot      bool
	SaveVideo           bool
	VideoChunkDuration  time.Duration
	OutputDirVideo      string
	OutputDirScreenshot string
	Display             int
}

// Validate checks rates, limits and sink settings.
func (c CaptureConfig) Validate() error {
	if err := c.sourceConfig().Validate(); err != nil {
		return err
	}
	if c.SaveVideo {
		if c.VideoChunkDuration <= 0 {
			return invalidCapture("video chunk duration must be positive")
		}
		if strings.TrimSpace(c.OutputDirVideo) == "" {
			return invalidCapture("video output directory required")
		}
	}
	if c.SaveScreenshot && strings.TrimSpace(c.OutputDirScreenshot) == "" {
		return invalidCapture("screenshot output directory required")
	}
	if c.Display < 0 {
		return invalidCapture(fmt.Sprintf("display index %d is negative", c.Display))
	}
	return nil
}

func (c CaptureConfig) sourceConfig() frames.SourceConfig {
	return frames.SourceConfig{FPS: c.FPS, Duration: c.Duration, MaxFrames: c.MaxFrames}
}

func invalidCapture(msg string) error {
	return services.Wrap(services.ErrConfiguration, "capture", "validate", msg, nil)
}

// Settings tunes backpressure and draining.
type Settings struct {
	MaxInFlight     int
	BacklogCapacity int
	// StaleAfter drops backlog entries waiting longer than this; zero disables.
	StaleAfter    time.Duration
	DropPolicy    DropPolicy
	DrainTimeout  time.Duration
	SinkQueueSize int
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		MaxInFlight:     4,
		BacklogCapacity: 16,
		StaleAfter:      30 * time.Second,
		DropPolicy:      DropOldest,
		DrainTimeout:    30 * time.Second,
		SinkQueueSize:   32,
	}
}

// Validate checks the settings.
func (s Settings) Validate() error {
	if s.MaxInFlight <= 0 {
		return invalidSettings("max_in_flight must be positive")
	}
	if s.BacklogCapacity < 0 {
		return invalidSettings("queue capacity must not be negative")
	}
	if s.StaleAfter < 0 {
		return invalidSettings("stale_after must not be negative")
	}
	switch s.DropPolicy {
	case DropOldest, DropNewest:
	default:
		return invalidSettings(fmt.Sprintf("unknown drop policy %q", s.DropPolicy))
	}
	if s.DrainTimeout <= 0 {
		return invalidSettings("drain timeout must be positive")
	}
	if s.SinkQueueSize <= 0 {
		return invalidSettings("sink queue size must be positive")
	}
	return nil
}

func invalidSettings(msg string) error {
	return services.Wrap(services.ErrConfiguration, "pipeline", "validate", msg, nil)
}
