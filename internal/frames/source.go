package frames

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"k21/internal/logging"
	"k21/internal/services"
)

// Grabber captures one screen image.
type Grabber interface {
	Grab(ctx context.Context) (*image.RGBA, error)
	Bounds() image.Rectangle
}

// SourceConfig bounds a capture run. Nil limits mean unbounded.
type SourceConfig struct {
	FPS       float64
	Duration  *time.Duration
	MaxFrames *uint64
}

// Interval returns the time between ticks.
func (c SourceConfig) Interval() time.Duration {
	return time.Duration(float64(time.Second) / c.FPS)
}

// Validate checks the rate and limits.
func (c SourceConfig) Validate() error {
	if !(c.FPS > 0) || math.IsInf(c.FPS, 0) {
		return services.Wrap(services.ErrConfiguration, "capture", "validate", fmt.Sprintf("fps must be positive, got %v", c.FPS), nil)
	}
	if c.Interval() <= 0 {
		return services.Wrap(services.ErrConfiguration, "capture", "validate", fmt.Sprintf("fps %v is too high", c.FPS), nil)
	}
	if c.Duration != nil && *c.Duration <= 0 {
		return services.Wrap(services.ErrConfiguration, "capture", "validate", "duration must be positive", nil)
	}
	if c.MaxFrames != nil && *c.MaxFrames == 0 {
		return services.Wrap(services.ErrConfiguration, "capture", "validate", "max_frames must be positive", nil)
	}
	return nil
}

// Option configures a Source.
type Option func(*Source)

// WithOnRetry registers a hook called with the first error of a retried capture.
func WithOnRetry(fn func(error)) Option {
	return func(s *Source) { s.onRetry = fn }
}

// WithLogger sets the source logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the timestamp clock.
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		if now != nil {
			s.now = now
		}
	}
}

// Source samples a Grabber at a fixed rate.
type Source struct {
	grabber Grabber
	cfg     SourceConfig
	onRetry func(error)
	logger  *slog.Logger
	now     func() time.Time
	live    atomic.Int64
}

// NewSource validates cfg and builds a Source.
func NewSource(grabber Grabber, cfg SourceConfig, opts ...Option) (*Source, error) {
	if grabber == nil {
		return nil, services.Wrap(services.ErrConfiguration, "capture", "validate", "grabber required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Source{grabber: grabber, cfg: cfg, logger: logging.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Live reports frames emitted by this source that still hold references.
func (s *Source) Live() int64 { return s.live.Load() }

// Run captures until the duration elapses, MaxFrames frames were emitted or
// ctx is cancelled, whichever comes first. Each Run starts at index 0.
//
// emit receives ownership of the frame's initial reference and must not
// block for long: a slow emit delays the next tick, and missed ticks are not
// replayed. A capture that fails twice in a row ends the run with
// ErrFatalCapture. Cancellation returns nil.
func (s *Source) Run(ctx context.Context, emit func(*Frame)) error {
	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()

	var deadline <-chan time.Time
	if s.cfg.Duration != nil {
		timer := time.NewTimer(*s.cfg.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	var index uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		default:
		}

		ts := s.now()
		img, err := s.grab(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		s.live.Add(1)
		frame := NewFrame(index, ts, img, func() { s.live.Add(-1) })
		index++
		emit(frame)

		if s.cfg.MaxFrames != nil && index >= *s.cfg.MaxFrames {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Source) grab(ctx context.Context) (*image.RGBA, error) {
	img, err := s.grabber.Grab(ctx)
	if err == nil && img != nil {
		return img, nil
	}
	if err == nil {
		err = errors.New("grabber returned no image")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	logging.WarnWithContext(s.logger, "screen capture failed; retrying", "capture_retry",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check display availability and screen recording permission"),
		logging.String(logging.FieldImpact, "frame delayed"),
	)
	if s.onRetry != nil {
		s.onRetry(err)
	}

	img, retryErr := s.grabber.Grab(ctx)
	if retryErr == nil && img != nil {
		return img, nil
	}
	if retryErr == nil {
		retryErr = errors.New("grabber returned no image")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, services.Wrap(services.ErrFatalCapture, "capture", "grab", "two consecutive capture failures", errors.Join(err, retryErr))
}
