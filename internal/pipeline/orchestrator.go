package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"k21/internal/deps"
	"k21/internal/fileutil"
	"k21/internal/frames"
	"k21/internal/logging"
	"k21/internal/preflight"
	"k21/internal/processor"
	"k21/internal/records"
	"k21/internal/screenshot"
	"k21/internal/services"
	"k21/internal/video"
)

// RecordSaver persists the records of a finished run.
type RecordSaver interface {
	SaveRun(ctx context.Context, run records.Run, recs []records.TextRecord) error
}

// Result is what a run hands back at completion, cancellation or fatal
// capture failure.
type Result struct {
	RunID      string               `json:"run_id"`
	State      State                `json:"state"`
	Records    []records.TextRecord `json:"records"`
	Stats      StatsSnapshot        `json:"stats"`
	Notices    []string             `json:"notices,omitempty"`
	Chunks     []video.Chunk        `json:"-"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSettings replaces the backpressure settings.
func WithSettings(settings Settings) Option {
	return func(o *Orchestrator) { o.settings = settings }
}

// WithGrabber captures from g instead of the configured display.
func WithGrabber(g frames.Grabber) Option {
	return func(o *Orchestrator) { o.grabber = g }
}

// WithEncoder replaces the ffmpeg chunk encoder.
func WithEncoder(enc video.Encoder) Option {
	return func(o *Orchestrator) { o.encoder = enc }
}

// WithFFmpeg sets the binary, codec and preset of the default chunk encoder.
func WithFFmpeg(binary, codec, preset string) Option {
	return func(o *Orchestrator) {
		if binary != "" {
			o.ffmpeg = video.FFmpegEncoder{Binary: binary, Codec: codec, Preset: preset}
		}
	}
}

// WithBinaryCheck overrides how the ffmpeg binary is located.
func WithBinaryCheck(available func(string) bool) Option {
	return func(o *Orchestrator) {
		if available != nil {
			o.available = available
		}
	}
}

// WithScreenshotFormat sets the still image format and jpeg quality.
func WithScreenshotFormat(format string, quality int) Option {
	return func(o *Orchestrator) {
		o.shotFormat = format
		o.shotQuality = quality
	}
}

// WithProcessorDeps injects processing backends.
func WithProcessorDeps(d processor.Deps) Option {
	return func(o *Orchestrator) { o.procDeps = d }
}

// WithRecordStore persists every finished run.
func WithRecordStore(store RecordSaver) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithClock overrides the frame and staleness clock.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator runs one capture pipeline at a time.
type Orchestrator struct {
	logger      *slog.Logger
	settings    Settings
	grabber     frames.Grabber
	encoder     video.Encoder
	ffmpeg      video.FFmpegEncoder
	available   func(string) bool
	shotFormat  string
	shotQuality int
	procDeps    processor.Deps
	store       RecordSaver
	now         func() time.Time

	state   atomic.Int32
	running atomic.Bool
}

// NewOrchestrator builds an orchestrator with default settings.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:    logging.NewNop(),
		settings:  DefaultSettings(),
		ffmpeg:    video.FFmpegEncoder{Binary: "ffmpeg"},
		available: deps.Available,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State reports the lifecycle position of the current or last run.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

func (o *Orchestrator) setState(s State) { o.state.Store(int32(s)) }

// Run executes one capture run. proc may be nil for capture only.
//
// The partial Result is returned together with the error when capture fails
// fatally. Cancelling ctx stops capture; draining continues on a detached
// context bounded by the drain timeout and the run ends Completed.
func (o *Orchestrator) Run(ctx context.Context, capture CaptureConfig, proc *processor.Config) (Result, error) {
	if !o.running.CompareAndSwap(false, true) {
		return Result{}, errors.New("orchestrator already running")
	}
	defer o.running.Store(false)

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(o.logger, "pipeline"))
	stats := &Stats{}
	result := Result{RunID: runID, StartedAt: o.now()}

	fail := func(err error) (Result, error) {
		o.setState(StateFailedFatal)
		result.State = StateFailedFatal
		result.Stats = stats.Snapshot()
		result.FinishedAt = o.now()
		logging.ErrorWithContext(logger, "run failed", "run_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, errorHint(err)),
			logging.String(logging.FieldImpact, "run stopped"),
		)
		return result, err
	}

	o.setState(StateValidating)
	if err := capture.Validate(); err != nil {
		return fail(err)
	}
	if err := o.settings.Validate(); err != nil {
		return fail(err)
	}
	var frameProc FrameProcessor
	if proc != nil {
		procDeps := o.procDeps
		if procDeps.Logger == nil {
			procDeps.Logger = logging.NewComponentLogger(o.logger, "processor")
		}
		p, err := processor.New(*proc, procDeps)
		if err != nil {
			return fail(err)
		}
		frameProc = p
	}

	locks, err := lockOutputDirs(capture)
	if err != nil {
		return fail(err)
	}
	defer func() {
		for _, lock := range locks {
			if err := lock.Unlock(); err != nil {
				logger.Warn("release output lock failed", logging.String("path", lock.Path()), logging.Error(err))
			}
		}
	}()

	sinks, notices, err := o.buildSinks(capture, stats)
	result.Notices = notices
	if err != nil {
		return fail(err)
	}
	if len(sinks) == 0 && frameProc == nil {
		return fail(services.Wrap(services.ErrSinkInit, "pipeline", "sinks", "no sink or processor enabled", nil))
	}

	grabber := o.grabber
	if grabber == nil {
		g, err := frames.NewScreenGrabber(capture.Display)
		if err != nil {
			return fail(err)
		}
		grabber = g
	}
	source, err := frames.NewSource(grabber, capture.sourceConfig(),
		frames.WithOnRetry(func(error) { stats.CaptureRetries.Add(1) }),
		frames.WithLogger(logging.WithContext(ctx, logging.NewComponentLogger(o.logger, "capture"))),
		frames.WithClock(o.now),
	)
	if err != nil {
		return fail(err)
	}

	// Sinks and processing outlive capture cancellation so the last chunk is
	// finalized and in-flight frames drain.
	workCtx := context.WithoutCancel(ctx)
	sinkCtx, cancelSinks := context.WithCancel(workCtx)
	defer cancelSinks()
	queues := make([]*sinkQueue, 0, len(sinks))
	for _, sink := range sinks {
		queues = append(queues, newSinkQueue(sinkCtx, sink, o.settings.SinkQueueSize, stats, logger))
	}
	var disp *dispatcher
	if frameProc != nil {
		disp = newDispatcher(workCtx, frameProc, o.settings, stats, logger, o.now)
	}

	o.setState(StateRunning)
	logger.Info("capture started",
		logging.Float64("fps", capture.FPS),
		logging.Bool("video", hasSink(sinks, "video")),
		logging.Bool("screenshots", hasSink(sinks, "screenshot")),
		logging.Bool("processing", frameProc != nil),
	)

	var total uint64
	if capture.MaxFrames != nil {
		total = *capture.MaxFrames
	} else if capture.Duration != nil {
		total = uint64(capture.Duration.Seconds() * capture.FPS)
	}
	sampler := logging.NewProgressSampler(10, 5*time.Second)
	captureErr := source.Run(ctx, func(f *frames.Frame) {
		captured := stats.FramesCaptured.Add(1)
		for _, q := range queues {
			q.Enqueue(f.Retain())
		}
		if disp != nil {
			disp.Submit(f.Retain())
		}
		f.Release()
		if sampler.ShouldLog(captured, total) {
			attrs := []logging.Attr{logging.Uint64("frames", captured)}
			if disp != nil {
				attrs = append(attrs, logging.Int64("in_flight", disp.InFlight()), logging.Int("backlog", disp.Backlog()))
			}
			logger.Info("capture progress", logging.Args(attrs...)...)
		}
	})

	o.setState(StateDraining)
	logger.Info("capture stopped; draining",
		logging.Uint64("frames", stats.FramesCaptured.Load()),
		logging.Bool("cancelled", ctx.Err() != nil),
	)
	drainDeadline := time.Now().Add(o.settings.DrainTimeout)
	var sinkWG sync.WaitGroup
	for _, q := range queues {
		sinkWG.Add(1)
		go func(q *sinkQueue) {
			defer sinkWG.Done()
			q.Close()
		}(q)
	}
	sinksDone := make(chan struct{})
	go func() {
		sinkWG.Wait()
		close(sinksDone)
	}()
	recs := []records.TextRecord{}
	if disp != nil {
		recs = append(recs, disp.Drain(o.settings.DrainTimeout)...)
	}
	o.waitSinks(logger, sinksDone, time.Until(drainDeadline), cancelSinks)
	records.Sort(recs)

	result.Records = recs
	for _, q := range queues {
		if vs, ok := q.sink.(*videoSink); ok && q.Finished() {
			result.Chunks = vs.chunks
		}
	}
	result.Stats = stats.Snapshot()
	result.FinishedAt = o.now()

	if captureErr != nil {
		o.persist(workCtx, logger, &result, StateFailedFatal)
		return fail(captureErr)
	}
	o.setState(StateCompleted)
	result.State = StateCompleted
	o.persist(workCtx, logger, &result, StateCompleted)
	logger.Info("run completed",
		logging.Int("records", len(result.Records)),
		logging.Uint64("frames_captured", result.Stats.FramesCaptured),
		logging.Uint64("frames_failed", result.Stats.FramesFailed),
		logging.Uint64("frames_dropped", result.Stats.FramesDropped),
		logging.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, nil
}

// waitSinks waits for the writer sinks to finish within timeout. On timeout
// the sink context is cancelled, which stops ffmpeg, and the run moves on
// without waiting further.
func (o *Orchestrator) waitSinks(logger *slog.Logger, done <-chan struct{}, timeout time.Duration, cancel context.CancelFunc) {
	if timeout < 0 {
		timeout = 0
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		cancel()
		logging.WarnWithContext(logger, "sink drain timed out", "drain_timeout",
			logging.Duration("timeout", o.settings.DrainTimeout),
			logging.String(logging.FieldErrorHint, "check ffmpeg and disk speed or raise pipeline.drain_timeout_seconds"),
			logging.String(logging.FieldImpact, "pending screenshots and the last video chunk may be missing"),
		)
	}
}

// lockOutputDirs creates, checks and locks every enabled output directory.
func lockOutputDirs(capture CaptureConfig) ([]*fileutil.DirLock, error) {
	type dir struct{ name, path string }
	var dirs []dir
	if capture.SaveVideo {
		dirs = append(dirs, dir{"video output directory", capture.OutputDirVideo})
	}
	if capture.SaveScreenshot {
		dirs = append(dirs, dir{"screenshot output directory", capture.OutputDirScreenshot})
	}

	var locks []*fileutil.DirLock
	seen := make(map[string]bool)
	release := func() {
		for _, lock := range locks {
			_ = lock.Unlock()
		}
	}
	for _, d := range dirs {
		clean := filepath.Clean(d.path)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		if err := preflight.EnsureWritableDir(d.name, clean); err != nil {
			release()
			return nil, err
		}
		lock, err := fileutil.LockDir(clean)
		if err != nil {
			release()
			return nil, services.Wrap(services.ErrSinkInit, "pipeline", "lock", d.name, err)
		}
		locks = append(locks, lock)
	}
	return locks, nil
}

// buildSinks constructs the enabled writer sinks. A missing ffmpeg binary
// disables video with a notice instead of failing the run.
func (o *Orchestrator) buildSinks(capture CaptureConfig, stats *Stats) ([]frameSink, []string, error) {
	var sinks []frameSink
	var notices []string

	if capture.SaveVideo {
		encoder := o.encoder
		if encoder == nil {
			if o.available(o.ffmpeg.Binary) {
				encoder = o.ffmpeg
			} else {
				notice := fmt.Sprintf("video disabled: ffmpeg binary %q not found", o.ffmpeg.Binary)
				notices = append(notices, notice)
				logging.WarnWithContext(o.logger, notice, "video_sink_disabled",
					logging.String(logging.FieldErrorHint, "install ffmpeg or set video.ffmpeg_binary"),
					logging.String(logging.FieldImpact, "no video chunks are written this run"),
				)
			}
		}
		if encoder != nil {
			logger := logging.NewComponentLogger(o.logger, "video")
			writer, err := video.NewChunkWriter(video.ChunkWriterConfig{
				Dir:           capture.OutputDirVideo,
				ChunkDuration: capture.VideoChunkDuration,
				FPS:           capture.FPS,
			}, encoder, video.WithChunkLogger(logger))
			if err != nil {
				return nil, notices, services.Wrap(services.ErrSinkInit, "pipeline", "sinks", "video writer", err)
			}
			sinks = append(sinks, &videoSink{writer: writer, stats: stats, logger: logger})
		}
	}

	if capture.SaveScreenshot {
		writer, err := screenshot.NewWriter(screenshot.Config{
			Dir:     capture.OutputDirScreenshot,
			Format:  o.shotFormat,
			Quality: o.shotQuality,
		})
		if err != nil {
			return nil, notices, services.Wrap(services.ErrSinkInit, "pipeline", "sinks", "screenshot writer", err)
		}
		sinks = append(sinks, &screenshotSink{writer: writer, stats: stats, logger: logging.NewComponentLogger(o.logger, "screenshot")})
	}

	if (capture.SaveVideo || capture.SaveScreenshot) && len(sinks) == 0 {
		notices = append(notices, "no writer sink available")
	}
	return sinks, notices, nil
}

func (o *Orchestrator) persist(ctx context.Context, logger *slog.Logger, result *Result, state State) {
	if o.store == nil {
		return
	}
	run := records.Run{
		ID:          result.RunID,
		Source:      "capture",
		State:       state.String(),
		StartedAt:   result.StartedAt,
		FinishedAt:  result.FinishedAt,
		RecordCount: len(result.Records),
	}
	if err := o.store.SaveRun(ctx, run, result.Records); err != nil {
		result.Notices = append(result.Notices, "records not saved: "+err.Error())
		logging.WarnWithContext(logger, "saving run records failed", "store_save_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check store.path"),
			logging.String(logging.FieldImpact, "records are only in this run's output"),
		)
	}
}

func hasSink(sinks []frameSink, name string) bool {
	for _, s := range sinks {
		if s.Name() == name {
			return true
		}
	}
	return false
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, services.ErrConfiguration):
		return "check capture and processor settings"
	case errors.Is(err, services.ErrSinkInit):
		return "check output directories are writable and not used by another run"
	case errors.Is(err, services.ErrFatalCapture):
		return "check display availability and screen recording permission"
	default:
		return "see error details"
	}
}
