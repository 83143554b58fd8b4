package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateProcessor(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateScreenshot(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCapture() error {
	if !(c.Capture.FPS > 0) || math.IsInf(c.Capture.FPS, 0) {
		return errors.New("capture.fps must be positive")
	}
	if c.Capture.DurationSeconds < 0 {
		return errors.New("capture.duration_seconds must be positive, or 0 for no limit")
	}
	if c.Capture.MaxFrames < 0 {
		return errors.New("capture.max_frames must be positive, or 0 for no limit")
	}
	if c.Capture.Display < 0 {
		return errors.New("capture.display must be zero or a positive display index")
	}
	if c.Capture.SaveVideo {
		if !(c.Capture.VideoChunkDurationSeconds > 0) {
			return errors.New("capture.video_chunk_duration_seconds must be positive when capture.save_video is true")
		}
		if strings.TrimSpace(c.Capture.OutputDirVideo) == "" {
			return errors.New("capture.output_dir_video must be set when capture.save_video is true")
		}
	}
	if c.Capture.SaveScreenshot && strings.TrimSpace(c.Capture.OutputDirScreenshot) == "" {
		return errors.New("capture.output_dir_screenshot must be set when capture.save_screenshot is true")
	}
	return nil
}

func (c *Config) validateProcessor() error {
	switch c.Processor.Type {
	case ProcessorNone:
		return nil
	case ProcessorOCR:
		switch c.OCR.Model {
		case "default", "tesseract":
		default:
			return fmt.Errorf("ocr.model: unsupported value %q (want default or tesseract)", c.OCR.Model)
		}
		if c.OCR.TimeoutSeconds <= 0 {
			return errors.New("ocr.timeout_seconds must be positive")
		}
		for name, value := range map[string]*int{"ocr.dpi": c.OCR.DPI, "ocr.psm": c.OCR.PSM, "ocr.oem": c.OCR.OEM} {
			if value != nil && *value < 0 {
				return fmt.Errorf("%s must not be negative", name)
			}
		}
		return nil
	case ProcessorVision:
		if c.Vision.URL == "" {
			return errors.New("vision.url must be set when processor.type is vision")
		}
		if c.Vision.Model == "" {
			return errors.New("vision.model must be set when processor.type is vision")
		}
		if c.Vision.TimeoutSeconds <= 0 {
			return errors.New("vision.timeout_seconds must be positive")
		}
		return nil
	default:
		return fmt.Errorf("processor.type: unsupported value %q (want ocr, vision or none)", c.Processor.Type)
	}
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.MaxInFlight <= 0 {
		return errors.New("pipeline.max_in_flight must be positive")
	}
	if c.Pipeline.QueueCapacity < 0 {
		return errors.New("pipeline.queue_capacity must not be negative")
	}
	if c.Pipeline.StaleAfterSeconds < 0 {
		return errors.New("pipeline.stale_after_seconds must not be negative")
	}
	if c.Pipeline.DrainTimeoutSeconds <= 0 {
		return errors.New("pipeline.drain_timeout_seconds must be positive")
	}
	if c.Pipeline.SinkQueueSize <= 0 {
		return errors.New("pipeline.sink_queue_size must be positive")
	}
	switch c.Pipeline.DropPolicy {
	case DropOldest, DropNewest:
	default:
		return fmt.Errorf("pipeline.drop_policy: unsupported value %q (want %s or %s)", c.Pipeline.DropPolicy, DropOldest, DropNewest)
	}
	return nil
}

func (c *Config) validateVideo() error {
	if !(c.Video.ExtractFPS > 0) {
		return errors.New("video.extract_fps must be positive")
	}
	return nil
}

func (c *Config) validateScreenshot() error {
	switch c.Screenshot.Format {
	case FormatPNG:
	case FormatJPEG:
		if c.Screenshot.Quality < 1 || c.Screenshot.Quality > 100 {
			return errors.New("screenshot.quality must be between 1 and 100")
		}
	default:
		return fmt.Errorf("screenshot.format: unsupported value %q (want png or jpeg)", c.Screenshot.Format)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
