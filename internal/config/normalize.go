package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeCapture(); err != nil {
		return err
	}
	c.normalizeProcessor()
	c.normalizeVision()
	c.normalizePipeline()
	c.normalizeVideo()
	c.normalizeScreenshot()
	if err := c.normalizeStore(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeCapture() error {
	var err error
	if strings.TrimSpace(c.Capture.OutputDirVideo) == "" {
		c.Capture.OutputDirVideo = defaultOutputDirVideo
	}
	if c.Capture.OutputDirVideo, err = expandPath(strings.TrimSpace(c.Capture.OutputDirVideo)); err != nil {
		return fmt.Errorf("capture.output_dir_video: %w", err)
	}
	if strings.TrimSpace(c.Capture.OutputDirScreenshot) == "" {
		c.Capture.OutputDirScreenshot = defaultOutputDirScreenshot
	}
	if c.Capture.OutputDirScreenshot, err = expandPath(strings.TrimSpace(c.Capture.OutputDirScreenshot)); err != nil {
		return fmt.Errorf("capture.output_dir_screenshot: %w", err)
	}
	return nil
}

func (c *Config) normalizeProcessor() {
	c.Processor.Type = strings.ToLower(strings.TrimSpace(c.Processor.Type))
	if c.Processor.Type == "" {
		c.Processor.Type = defaultProcessorType
	}
	c.OCR.Model = strings.ToLower(strings.TrimSpace(c.OCR.Model))
	if c.OCR.Model == "" {
		c.OCR.Model = defaultOCRModel
	}
	c.OCR.Binary = strings.TrimSpace(c.OCR.Binary)
	if c.OCR.Binary == "" {
		c.OCR.Binary = defaultOCRBinary
	}
	c.OCR.Language = strings.TrimSpace(c.OCR.Language)
	if c.OCR.Language == "" {
		c.OCR.Language = defaultOCRLanguage
	}
}

func (c *Config) normalizeVision() {
	if strings.TrimSpace(c.Vision.APIKey) == "" {
		for _, name := range []string{"K21_VISION_API_KEY", "OPENAI_API_KEY"} {
			if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
				c.Vision.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.Vision.APIKey = strings.TrimSpace(c.Vision.APIKey)
	c.Vision.URL = strings.TrimSpace(c.Vision.URL)
	c.Vision.Model = strings.TrimSpace(c.Vision.Model)
	if strings.TrimSpace(c.Vision.Prompt) == "" {
		c.Vision.Prompt = defaultVisionPrompt
	}
}

func (c *Config) normalizePipeline() {
	c.Pipeline.DropPolicy = strings.ToLower(strings.TrimSpace(c.Pipeline.DropPolicy))
	if c.Pipeline.DropPolicy == "" {
		c.Pipeline.DropPolicy = defaultDropPolicy
	}
}

func (c *Config) normalizeVideo() {
	if strings.TrimSpace(c.Video.FFmpegBinary) == "" {
		c.Video.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Video.FFprobeBinary) == "" {
		c.Video.FFprobeBinary = defaultFFprobeBinary
	}
	if strings.TrimSpace(c.Video.Codec) == "" {
		c.Video.Codec = defaultVideoCodec
	}
	if strings.TrimSpace(c.Video.Preset) == "" {
		c.Video.Preset = defaultVideoPreset
	}
}

func (c *Config) normalizeScreenshot() {
	switch strings.ToLower(strings.TrimSpace(c.Screenshot.Format)) {
	case "", FormatPNG:
		c.Screenshot.Format = FormatPNG
	case "jpg", FormatJPEG:
		c.Screenshot.Format = FormatJPEG
	default:
		c.Screenshot.Format = strings.ToLower(strings.TrimSpace(c.Screenshot.Format))
	}
}

func (c *Config) normalizeStore() error {
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = defaultStorePath
	}
	var err error
	if c.Store.Path, err = expandPath(strings.TrimSpace(c.Store.Path)); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
	if dir := strings.TrimSpace(c.Logging.Dir); dir != "" {
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
		c.Logging.Dir = expanded
	}
	return nil
}
