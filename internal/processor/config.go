package processor

import (
	"fmt"
	"strings"
	"time"

	"k21/internal/services"
)

// Kind names a processing backend.
type Kind string

const (
	KindOCR    Kind = "ocr"
	KindVision Kind = "vision"
)

// OCRConfig configures the tesseract backend.
type OCRConfig struct {
	// Model is "default" or "tesseract"; both select tesseract.
	Model         string
	Binary        string
	Language      string
	BoundingBoxes bool
	DPI           *int
	PSM           *int
	OEM           *int
	Timeout       time.Duration
}

// VisionConfig configures the vision backend.
type VisionConfig struct {
	EndpointURL string
	APIKey      string
	Model       string
	Prompt      string
	Timeout     time.Duration
}

// Config selects exactly one backend. Kind must match the populated variant.
type Config struct {
	Kind   Kind
	OCR    *OCRConfig
	Vision *VisionConfig
}

// DefaultConfig returns the OCR configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Kind: KindOCR,
		OCR: &OCRConfig{
			Model:         "default",
			Binary:        "tesseract",
			Language:      "eng",
			BoundingBoxes: true,
		},
	}
}

// Validate checks that the variant is consistent.
func (c Config) Validate() error {
	switch c.Kind {
	case KindOCR:
		if c.OCR == nil {
			return invalid("ocr settings missing")
		}
		if c.Vision != nil {
			return invalid("vision settings given for ocr processor")
		}
		switch strings.TrimSpace(c.OCR.Model) {
		case "", "default", "tesseract":
		default:
			return invalid(fmt.Sprintf("unsupported ocr model %q", c.OCR.Model))
		}
		for name, v := range map[string]*int{"dpi": c.OCR.DPI, "psm": c.OCR.PSM, "oem": c.OCR.OEM} {
			if v != nil && *v < 0 {
				return invalid(name + " must not be negative")
			}
		}
	case KindVision:
		if c.Vision == nil {
			return invalid("vision settings missing")
		}
		if c.OCR != nil {
			return invalid("ocr settings given for vision processor")
		}
		if strings.TrimSpace(c.Vision.EndpointURL) == "" {
			return invalid("vision endpoint url required")
		}
		if strings.TrimSpace(c.Vision.Model) == "" {
			return invalid("vision model required")
		}
		if c.Vision.Timeout < 0 {
			return invalid("vision timeout must not be negative")
		}
	default:
		return invalid(fmt.Sprintf("unknown processor kind %q", c.Kind))
	}
	return nil
}

func invalid(msg string) error {
	return services.Wrap(services.ErrConfiguration, "processor", "validate", msg, nil)
}
