package pipeline

import (
	"context"
	"image/color"
	"sync"
	"testing"
	"time"

	"k21/internal/frames"
	"k21/internal/logging"
	"k21/internal/testsupport"
)

type recordingSink struct {
	mu       sync.Mutex
	gate     chan struct{}
	started  chan struct{}
	consumed []uint64
	finished bool
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Consume(_ context.Context, f *frames.Frame) {
	if s.started != nil {
		s.started <- struct{}{}
		s.started = nil
		<-s.gate
	}
	s.mu.Lock()
	s.consumed = append(s.consumed, f.Index)
	s.mu.Unlock()
}

func (s *recordingSink) Finish(context.Context) {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
}

func TestSinkQueueDropsOldestWhenFull(t *testing.T) {
	started := make(chan struct{})
	sink := &recordingSink{gate: make(chan struct{}), started: started}
	stats := &Stats{}
	q := newSinkQueue(context.Background(), sink, 2, stats, logging.NewNop())

	var all []*frames.Frame
	enqueue := func(i uint64) {
		f := testsupport.SolidFrame(i, time.Now(), 2, 2, color.RGBA{A: 255})
		all = append(all, f)
		q.Enqueue(f)
	}
	enqueue(0)
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("sink never started")
	}
	for i := uint64(1); i <= 4; i++ {
		enqueue(i)
	}
	close(sink.gate)
	q.Close()

	if !equalNumbers(sink.consumed, []uint64{0, 3, 4}) {
		t.Fatalf("consumed = %v", sink.consumed)
	}
	if !sink.finished {
		t.Fatal("Finish not called")
	}
	if stats.SinkQueueDrops.Load() != 2 {
		t.Fatalf("drops = %d", stats.SinkQueueDrops.Load())
	}
	for _, f := range all {
		if f.Refs() != 0 {
			t.Fatalf("frame %d still referenced", f.Index)
		}
	}
}

func TestSinkQueueReleasesAfterClose(t *testing.T) {
	sink := &recordingSink{}
	q := newSinkQueue(context.Background(), sink, 4, &Stats{}, logging.NewNop())
	q.Close()
	f := testsupport.SolidFrame(9, time.Now(), 2, 2, color.RGBA{A: 255})
	q.Enqueue(f)
	if f.Refs() != 0 || len(sink.consumed) != 0 {
		t.Fatal("frame enqueued after close must be released unconsumed")
	}
}
