package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"k21/internal/frames"
	"k21/internal/logging"
	"k21/internal/processor"
	"k21/internal/records"
	"k21/internal/services"
)

// FrameProcessor extracts text from one frame.
type FrameProcessor interface {
	Process(ctx context.Context, f *frames.Frame) processor.Outcome
}

type pending struct {
	frame    *frames.Frame
	queuedAt time.Time
}

// dispatcher runs at most maxInFlight Process calls at once. Frames arriving
// while every permit is taken wait in a fixed-capacity backlog.
type dispatcher struct {
	proc     FrameProcessor
	ctx      context.Context
	cancel   context.CancelFunc
	settings Settings
	stats    *Stats
	logger   *slog.Logger
	now      func() time.Time

	permits  chan struct{}
	inFlight atomic.Int64
	wg       sync.WaitGroup

	mu      sync.Mutex
	backlog []pending
	closed  bool

	resultsMu sync.Mutex
	results   []records.TextRecord
}

func newDispatcher(ctx context.Context, proc FrameProcessor, settings Settings, stats *Stats, logger *slog.Logger, now func() time.Time) *dispatcher {
	ctx, cancel := context.WithCancel(ctx)
	if now == nil {
		now = time.Now
	}
	return &dispatcher{
		proc:     proc,
		ctx:      ctx,
		cancel:   cancel,
		settings: settings,
		stats:    stats,
		logger:   logger,
		now:      now,
		permits:  make(chan struct{}, settings.MaxInFlight),
		backlog:  make([]pending, 0, settings.BacklogCapacity),
	}
}

// InFlight reports frames currently being processed.
func (d *dispatcher) InFlight() int64 { return d.inFlight.Load() }

// Backlog reports frames waiting for a permit.
func (d *dispatcher) Backlog() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.backlog)
}

// Submit takes ownership of one reference to f and never blocks.
func (d *dispatcher) Submit(f *frames.Frame) {
	d.stats.FramesSubmitted.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.drop(f, "dispatcher closed")
		return
	}

	select {
	case d.permits <- struct{}{}:
		d.inFlight.Add(1)
		d.wg.Add(1)
		go d.work(f)
		return
	default:
	}

	if len(d.backlog) < d.settings.BacklogCapacity {
		d.backlog = append(d.backlog, pending{frame: f, queuedAt: d.now()})
		return
	}
	if d.settings.DropPolicy == DropOldest && len(d.backlog) > 0 {
		evicted := d.backlog[0]
		copy(d.backlog, d.backlog[1:])
		d.backlog[len(d.backlog)-1] = pending{frame: f, queuedAt: d.now()}
		d.drop(evicted.frame, "backlog full")
		return
	}
	d.drop(f, "backlog full")
}

func (d *dispatcher) work(f *frames.Frame) {
	defer d.wg.Done()
	for f != nil {
		d.process(f)
		f = d.next()
	}
}

// next pops the oldest fresh backlog entry, or returns the permit when the
// backlog is empty. Both happen under mu so Submit never strands an entry.
func (d *dispatcher) next() *frames.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.backlog) > 0 && !d.closed {
		head := d.backlog[0]
		d.backlog[0] = pending{}
		d.backlog = d.backlog[1:]
		if d.settings.StaleAfter > 0 {
			if age := d.now().Sub(head.queuedAt); age > d.settings.StaleAfter {
				d.drop(head.frame, "stale")
				continue
			}
		}
		return head.frame
	}
	<-d.permits
	d.inFlight.Add(-1)
	return nil
}

func (d *dispatcher) process(f *frames.Frame) {
	ctx := services.WithFrameIndex(d.ctx, f.Index)
	out := d.proc.Process(ctx, f)
	f.Release()
	switch {
	case out.OK():
		d.stats.FramesProcessed.Add(1)
		d.resultsMu.Lock()
		d.results = append(d.results, *out.Record)
		d.resultsMu.Unlock()
	case d.ctx.Err() != nil && (errors.Is(out.Err, context.Canceled) || errors.Is(out.Err, context.DeadlineExceeded)):
		d.stats.FramesDropped.Add(1)
	default:
		d.stats.FramesFailed.Add(1)
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "frame processing failed; skipping frame", "frame_process_failed",
			logging.Error(out.Err),
			logging.Int("attempts", out.Attempts),
			logging.String(logging.FieldErrorHint, "check the OCR engine or vision endpoint"),
			logging.String(logging.FieldImpact, "no text record for this frame"),
		)
	}
}

// drop releases f and counts it. Callers hold mu.
func (d *dispatcher) drop(f *frames.Frame, reason string) {
	d.stats.FramesDropped.Add(1)
	logging.WarnWithContext(d.logger, "frame dropped before processing", "frame_dropped",
		logging.Uint64(logging.FieldFrameIndex, f.Index),
		logging.String("reason", reason),
		logging.String(logging.FieldErrorHint, "lower capture fps or raise pipeline.max_in_flight"),
		logging.String(logging.FieldImpact, "no text record for this frame"),
	)
	f.Release()
}

// Drain waits for the backlog and in-flight work to finish. When timeout
// elapses first, in-flight calls are cancelled and the backlog dropped.
// The returned records are unsorted.
func (d *dispatcher) Drain(timeout time.Duration) []records.TextRecord {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		d.mu.Lock()
		d.closed = true
		remaining := d.backlog
		d.backlog = nil
		for _, p := range remaining {
			d.drop(p.frame, "drain timeout")
		}
		d.mu.Unlock()
		logging.WarnWithContext(d.logger, "processing drain timed out", "drain_timeout",
			logging.Duration("timeout", timeout),
			logging.Int64("in_flight", d.inFlight.Load()),
			logging.Int("backlog_dropped", len(remaining)),
			logging.String(logging.FieldErrorHint, "raise pipeline.drain_timeout_seconds or lower capture fps"),
			logging.String(logging.FieldImpact, "frames still in flight are cancelled"),
		)
		d.cancel()
		<-done
	}

	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()

	d.resultsMu.Lock()
	defer d.resultsMu.Unlock()
	return append([]records.TextRecord(nil), d.results...)
}
