package logging

import (
	"sync"
	"time"
)

// ProgressSampler suppresses repetitive per-frame progress logs. It emits
// when the completed fraction crosses a bucket boundary, or, when the total is
// unknown, at most once per interval.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	interval   time.Duration
	lastBucket int
	lastEmit   time.Time
	now        func() time.Time
}

// NewProgressSampler constructs a sampler using bucketSize percent (default 10)
// and interval for open-ended runs (default 5s).
func NewProgressSampler(bucketSize float64, interval time.Duration) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &ProgressSampler{bucketSize: bucketSize, interval: interval, lastBucket: -1, now: time.Now}
}

// ShouldLog reports whether progress at done out of total should be logged.
// A total of zero means the run length is unknown.
func (s *ProgressSampler) ShouldLog(done, total uint64) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if total == 0 {
		now := s.now()
		if s.lastEmit.IsZero() || now.Sub(s.lastEmit) >= s.interval {
			s.lastEmit = now
			return true
		}
		return false
	}
	percent := float64(done) / float64(total) * 100
	if percent > 100 {
		percent = 100
	}
	bucket := int(percent / s.bucketSize)
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears sampler state.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.lastBucket = -1
	s.lastEmit = time.Time{}
	s.mu.Unlock()
}
