package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"k21/internal/frames"
	"k21/internal/logging"
)

// frameSink consumes frames in index order on its own goroutine.
type frameSink interface {
	Name() string
	// Consume handles f. The queue releases f afterwards.
	Consume(ctx context.Context, f *frames.Frame)
	// Finish runs once after the last frame.
	Finish(ctx context.Context)
}

// sinkQueue is a bounded ordered queue in front of one sink. Enqueue never
// blocks: when the queue is full the oldest pending frame is dropped.
type sinkQueue struct {
	sink   frameSink
	queue  chan *frames.Frame
	stats  *Stats
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}

	lastDropLog atomic.Int64
}

func newSinkQueue(ctx context.Context, sink frameSink, size int, stats *Stats, logger *slog.Logger) *sinkQueue {
	q := &sinkQueue{
		sink:   sink,
		queue:  make(chan *frames.Frame, size),
		stats:  stats,
		logger: logger,
		done:   make(chan struct{}),
	}
	go q.loop(ctx)
	return q
}

// Enqueue takes ownership of one reference to f.
func (q *sinkQueue) Enqueue(f *frames.Frame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		f.Release()
		return
	}

	select {
	case q.queue <- f:
		return
	default:
	}

	select {
	case old := <-q.queue:
		old.Release()
		q.recordDrop(old.Index)
	default:
	}

	select {
	case q.queue <- f:
	default:
		f.Release()
		q.recordDrop(f.Index)
	}
}

func (q *sinkQueue) recordDrop(index uint64) {
	total := q.stats.SinkQueueDrops.Add(1)
	now := time.Now().UnixNano()
	last := q.lastDropLog.Load()
	if now-last < int64(time.Second) || !q.lastDropLog.CompareAndSwap(last, now) {
		return
	}
	logging.WarnWithContext(q.logger, "sink queue full; dropped frame", "sink_queue_drop",
		logging.String("sink", q.sink.Name()),
		logging.Uint64(logging.FieldFrameIndex, index),
		logging.Uint64("dropped_total", total),
		logging.String(logging.FieldErrorHint, "lower capture fps or raise pipeline.sink_queue_size"),
		logging.String(logging.FieldImpact, "frame missing from "+q.sink.Name()+" output"),
	)
}

// Close stops accepting frames and waits until the pending ones are consumed
// and the sink finished.
func (q *sinkQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.queue)
	}
	q.mu.Unlock()
	<-q.done
}

// Finished reports whether the sink has consumed its queue and finished.
func (q *sinkQueue) Finished() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// loop consumes frames in order until the queue closes. Once ctx is
// cancelled the remaining frames are released unconsumed.
func (q *sinkQueue) loop(ctx context.Context) {
	defer close(q.done)
	for f := range q.queue {
		if ctx.Err() == nil {
			q.sink.Consume(ctx, f)
		}
		f.Release()
	}
	q.sink.Finish(ctx)
}
