package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"k21/internal/logging"
	"k21/internal/media/ffprobe"
	"k21/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Extraction lists the stills decoded from one video.
type Extraction struct {
	FramePaths []string
	FPS        float64
	// Duration is the probed video length; zero when ffprobe failed.
	Duration time.Duration
}

// Extractor decodes videos into PNG stills with ffmpeg.
type Extractor struct {
	ffmpeg  string
	ffprobe string
	exec    Executor
	probe   ffprobe.Runner
	logger  *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExecutor injects a custom ffmpeg executor (primarily for tests).
func WithExecutor(exec Executor) ExtractorOption {
	return func(e *Extractor) {
		if exec != nil {
			e.exec = exec
		}
	}
}

// WithProbeRunner injects a custom ffprobe runner (primarily for tests).
func WithProbeRunner(run ffprobe.Runner) ExtractorOption {
	return func(e *Extractor) {
		if run != nil {
			e.probe = run
		}
	}
}

// WithExtractorLogger sets the extractor logger.
func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor builds an extractor using the given binaries.
func NewExtractor(ffmpegBinary, ffprobeBinary string, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		ffmpeg:  strings.TrimSpace(ffmpegBinary),
		ffprobe: strings.TrimSpace(ffprobeBinary),
		exec:    commandExecutor{},
		logger:  logging.NewNop(),
	}
	if e.ffmpeg == "" {
		e.ffmpeg = "ffmpeg"
	}
	if e.ffprobe == "" {
		e.ffprobe = "ffprobe"
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractArgs builds the ffmpeg argument list that samples videoPath at fps
// into numbered PNGs under outDir.
func ExtractArgs(videoPath, outDir string, fps float64) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vf", "fps=" + strconv.FormatFloat(fps, 'f', -1, 64),
		"-y",
		filepath.Join(outDir, "frame_%06d.png"),
	}
}

// Extract samples videoPath at fps into outDir, which must exist.
func (e *Extractor) Extract(ctx context.Context, videoPath, outDir string, fps float64) (Extraction, error) {
	if !(fps > 0) {
		return Extraction{}, services.Wrap(services.ErrConfiguration, "video", "extract", "fps must be positive", nil)
	}
	info, err := os.Stat(videoPath)
	if err != nil {
		return Extraction{}, services.Wrap(services.ErrNotFound, "video", "extract", videoPath, err)
	}
	if info.IsDir() {
		return Extraction{}, services.Wrap(services.ErrConfiguration, "video", "extract", videoPath+" is a directory", nil)
	}

	result := Extraction{FPS: fps}
	if probe, err := ffprobe.InspectWith(ctx, e.probe, e.ffprobe, videoPath); err != nil {
		logging.WarnWithContext(e.logger, "could not read video duration", "ffprobe_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install ffprobe to place frames on the recording timeline"),
			logging.String(logging.FieldImpact, "frame timestamps are relative to processing start"),
		)
	} else {
		result.Duration = time.Duration(probe.DurationSeconds() * float64(time.Second))
	}

	if _, err := e.exec.Run(ctx, e.ffmpeg, ExtractArgs(videoPath, outDir, fps)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Extraction{}, ctxErr
		}
		return Extraction{}, services.Wrap(services.ErrExternalTool, "video", "extract", "ffmpeg failed", err)
	}

	paths, err := filepath.Glob(filepath.Join(outDir, "frame_*.png"))
	if err != nil {
		return Extraction{}, fmt.Errorf("glob frames: %w", err)
	}
	if len(paths) == 0 {
		return Extraction{}, services.Wrap(services.ErrExternalTool, "video", "extract", "no frames extracted", nil)
	}
	sort.Strings(paths)
	result.FramePaths = paths

	e.logger.Info("frames extracted",
		logging.Int("count", len(paths)),
		logging.Duration("video_duration", result.Duration),
	)
	return result, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return output, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
		}
		return output, err
	}
	return output, nil
}
