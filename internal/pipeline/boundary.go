package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"k21/internal/frames"
	"k21/internal/logging"
	"k21/internal/processor"
	"k21/internal/records"
	"k21/internal/services"
	"k21/internal/video"
)

// Capture runs the pipeline without text extraction.
func Capture(ctx context.Context, o *Orchestrator, cfg CaptureConfig) (Result, error) {
	return o.Run(ctx, cfg, nil)
}

// CaptureAndProcess runs the pipeline with the given processor.
func CaptureAndProcess(ctx context.Context, o *Orchestrator, cfg CaptureConfig, proc processor.Config) (Result, error) {
	return o.Run(ctx, cfg, &proc)
}

// ImageProcessor extracts text from encoded images and frames.
type ImageProcessor interface {
	FrameProcessor
	ProcessEncoded(ctx context.Context, index uint64, captured time.Time, image []byte) processor.Outcome
}

// ProcessSingleImage extracts the text of one still image as frame 0,
// timestamped with the processing time.
func ProcessSingleImage(ctx context.Context, proc ImageProcessor, path string) (records.TextRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return records.TextRecord{}, services.Wrap(services.ErrNotFound, "image", "read", path, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return records.TextRecord{}, services.Wrap(services.ErrConfiguration, "image", "decode", path, err)
	}
	frame := frames.FromImage(0, time.Now(), img)
	defer frame.Release()

	out := proc.Process(ctx, frame)
	if out.Err != nil {
		return records.TextRecord{}, out.Err
	}
	return *out.Record, nil
}

// VideoExtractor decodes a video into numbered stills.
type VideoExtractor interface {
	Extract(ctx context.Context, videoPath, outDir string, fps float64) (video.Extraction, error)
}

// VideoOption configures ProcessVideo.
type VideoOption func(*videoRun)

type videoRun struct {
	maxInFlight int
	stats       *Stats
	logger      *slog.Logger
}

// WithVideoConcurrency bounds concurrent frame processing.
func WithVideoConcurrency(n int) VideoOption {
	return func(r *videoRun) {
		if n > 0 {
			r.maxInFlight = n
		}
	}
}

// WithVideoStats collects per-frame counters into stats.
func WithVideoStats(stats *Stats) VideoOption {
	return func(r *videoRun) {
		if stats != nil {
			r.stats = stats
		}
	}
}

// WithVideoLogger sets the logger.
func WithVideoLogger(logger *slog.Logger) VideoOption {
	return func(r *videoRun) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// ProcessVideo samples path at fps and extracts text from every still.
// Frame i is timestamped at the video start plus i/fps, where the start is
// the file modification time minus the probed duration, or the processing
// start when the duration is unknown. Failed frames are skipped; only setup
// failures are returned as errors.
func ProcessVideo(ctx context.Context, extractor VideoExtractor, proc ImageProcessor, path string, fps float64, opts ...VideoOption) ([]records.TextRecord, error) {
	run := videoRun{maxInFlight: DefaultSettings().MaxInFlight, stats: &Stats{}, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&run)
	}
	if !(fps > 0) {
		return nil, services.Wrap(services.ErrConfiguration, "video", "process", "fps must be positive", nil)
	}
	started := time.Now()

	tmpDir, err := os.MkdirTemp("", "k21-frames-*")
	if err != nil {
		return nil, fmt.Errorf("create frame directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			run.logger.Warn("remove frame directory failed", logging.String("path", tmpDir), logging.Error(err))
		}
	}()

	extraction, err := extractor.Extract(ctx, path, tmpDir, fps)
	if err != nil {
		return nil, err
	}

	start := started
	if extraction.Duration > 0 {
		if info, err := os.Stat(path); err == nil {
			start = info.ModTime().Add(-extraction.Duration)
		}
	}
	step := time.Duration(float64(time.Second) / fps)

	var (
		mu   sync.Mutex
		recs = make([]records.TextRecord, 0, len(extraction.FramePaths))
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(run.maxInFlight)
	sampler := logging.NewProgressSampler(10, 5*time.Second)
	total := uint64(len(extraction.FramePaths))
	for i, framePath := range extraction.FramePaths {
		index := uint64(i)
		captured := start.Add(time.Duration(i) * step)
		run.stats.FramesSubmitted.Add(1)
		group.Go(func() error {
			data, err := os.ReadFile(framePath)
			if err != nil {
				run.stats.FramesFailed.Add(1)
				run.logger.Warn("extracted frame unreadable", logging.Uint64(logging.FieldFrameIndex, index), logging.Error(err))
				return nil
			}
			out := proc.ProcessEncoded(groupCtx, index, captured, data)
			if out.Err != nil {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				run.stats.FramesFailed.Add(1)
				logging.WarnWithContext(run.logger, "frame processing failed; skipping frame", "frame_process_failed",
					logging.Uint64(logging.FieldFrameIndex, index),
					logging.Error(out.Err),
					logging.String(logging.FieldErrorHint, "check the OCR engine or vision endpoint"),
					logging.String(logging.FieldImpact, "no text record for this frame"),
				)
				return nil
			}
			done := run.stats.FramesProcessed.Add(1)
			mu.Lock()
			recs = append(recs, *out.Record)
			mu.Unlock()
			if sampler.ShouldLog(done, total) {
				run.logger.Info("video processing progress", logging.Uint64("done", done), logging.Uint64("total", total))
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("process video frames: %w", err)
	}

	records.Sort(recs)
	return recs, nil
}
