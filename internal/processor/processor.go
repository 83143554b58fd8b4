package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"k21/internal/frames"
	"k21/internal/logging"
	"k21/internal/records"
	"k21/internal/services"
	"k21/internal/services/tesseract"
	"k21/internal/services/vision"
)

const maxAttempts = 2

// Recognizer runs OCR over an encoded image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, opts tesseract.Options) (tesseract.Result, error)
}

// Describer transcribes an encoded PNG through a vision model.
type Describer interface {
	Describe(ctx context.Context, png []byte) (string, error)
}

// Deps overrides the backends built from Config. Nil fields are constructed
// from the configuration.
type Deps struct {
	OCR    Recognizer
	Vision Describer
	Logger *slog.Logger
}

// Outcome is the result of processing one frame. Exactly one of Record and
// Err is set.
type Outcome struct {
	Record   *records.TextRecord
	Err      error
	Attempts int
}

// OK reports whether the frame produced a record.
func (o Outcome) OK() bool { return o.Err == nil && o.Record != nil }

// Processor extracts text from frames with a single backend.
type Processor struct {
	cfg    Config
	ocr    Recognizer
	vision Describer
	logger *slog.Logger
}

// New validates cfg and builds the backend it names.
func New(cfg Config, deps Deps) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Processor{cfg: cfg, ocr: deps.OCR, vision: deps.Vision, logger: deps.Logger}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}
	switch cfg.Kind {
	case KindOCR:
		if p.ocr == nil {
			binary := cfg.OCR.Binary
			if binary == "" {
				binary = "tesseract"
			}
			client, err := tesseract.New(binary, tesseract.WithTimeout(cfg.OCR.Timeout))
			if err != nil {
				return nil, services.Wrap(services.ErrConfiguration, "processor", "init", "tesseract client", err)
			}
			p.ocr = client
		}
	case KindVision:
		if p.vision == nil {
			p.vision = vision.NewClient(vision.Config{
				BaseURL: cfg.Vision.EndpointURL,
				APIKey:  cfg.Vision.APIKey,
				Model:   cfg.Vision.Model,
				Prompt:  cfg.Vision.Prompt,
				Timeout: cfg.Vision.Timeout,
			})
		}
	}
	return p, nil
}

// Kind returns the active backend.
func (p *Processor) Kind() Kind { return p.cfg.Kind }

// ProcessingType returns the TextRecord processing type this processor emits.
func (p *Processor) ProcessingType() string {
	if p.cfg.Kind == KindVision {
		return records.TypeVision
	}
	return records.TypeOCR
}

// Process encodes f as PNG and extracts its text. The caller keeps
// ownership of f.
func (p *Processor) Process(ctx context.Context, f *frames.Frame) Outcome {
	png, err := f.EncodePNG()
	if err != nil {
		return Outcome{Err: services.Wrap(services.ErrFrameProcess, "processor", "encode",
			fmt.Sprintf("frame %d", f.Index), err)}
	}
	return p.ProcessEncoded(ctx, f.Index, f.Timestamp, png)
}

// ProcessEncoded extracts text from an already encoded image. One failed
// attempt is retried; cancellation is not.
func (p *Processor) ProcessEncoded(ctx context.Context, index uint64, captured time.Time, image []byte) Outcome {
	ctx = services.WithFrameIndex(ctx, index)
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		rec, err := p.attempt(ctx, index, captured, image)
		if err == nil {
			return Outcome{Record: &rec, Attempts: attempt}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{Err: ctxErr, Attempts: attempt}
		}
		lastErr = err
		if attempt < maxAttempts {
			logging.WithContext(ctx, p.logger).Debug("frame processing retry",
				logging.Int("attempt", attempt),
				logging.Error(err),
			)
		}
	}
	if !errors.Is(lastErr, services.ErrFrameProcess) {
		lastErr = services.Wrap(services.ErrFrameProcess, "processor", string(p.cfg.Kind),
			fmt.Sprintf("frame %d failed after %d attempts", index, maxAttempts), lastErr)
	}
	return Outcome{Err: lastErr, Attempts: maxAttempts}
}

func (p *Processor) attempt(ctx context.Context, index uint64, captured time.Time, image []byte) (records.TextRecord, error) {
	switch p.cfg.Kind {
	case KindVision:
		text, err := p.vision.Describe(ctx, image)
		if err != nil {
			return records.TextRecord{}, err
		}
		return records.New(text, captured, index, records.TypeVision), nil
	default:
		result, err := p.ocr.Recognize(ctx, image, tesseract.Options{
			Language: p.cfg.OCR.Language,
			DPI:      p.cfg.OCR.DPI,
			PSM:      p.cfg.OCR.PSM,
			OEM:      p.cfg.OCR.OEM,
		})
		if err != nil {
			return records.TextRecord{}, err
		}
		rec := records.New(result.Text, captured, index, records.TypeOCR)
		rec.Confidence = result.Confidence
		if p.cfg.OCR.BoundingBoxes && len(result.Words) > 0 {
			rec.BoundingBoxes = make([]records.BoundingBox, 0, len(result.Words))
			for _, w := range result.Words {
				rec.BoundingBoxes = append(rec.BoundingBoxes, records.BoundingBox{
					Text:       w.Text,
					Left:       w.Left,
					Top:        w.Top,
					Width:      w.Width,
					Height:     w.Height,
					Confidence: w.Confidence,
				})
			}
		}
		return rec, nil
	}
}
