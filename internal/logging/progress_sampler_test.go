package logging

import (
	"testing"
	"time"
)

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25, 0)
	var emitted []uint64
	for done := uint64(0); done <= 8; done++ {
		if s.ShouldLog(done, 8) {
			emitted = append(emitted, done)
		}
	}
	want := []uint64{0, 2, 4, 6, 8}
	if len(emitted) != len(want) {
		t.Fatalf("emitted = %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted = %v, want %v", emitted, want)
		}
	}
}

func TestProgressSamplerUnknownTotalUsesInterval(t *testing.T) {
	s := NewProgressSampler(0, time.Second)
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }

	if !s.ShouldLog(1, 0) {
		t.Fatal("first call should log")
	}
	now = now.Add(500 * time.Millisecond)
	if s.ShouldLog(2, 0) {
		t.Fatal("call inside interval should be suppressed")
	}
	now = now.Add(600 * time.Millisecond)
	if !s.ShouldLog(3, 0) {
		t.Fatal("call after interval should log")
	}
}

func TestProgressSamplerNilAndReset(t *testing.T) {
	var nilSampler *ProgressSampler
	if !nilSampler.ShouldLog(1, 2) {
		t.Fatal("nil sampler should always log")
	}
	nilSampler.Reset()

	s := NewProgressSampler(50, 0)
	s.ShouldLog(2, 2)
	if s.ShouldLog(2, 2) {
		t.Fatal("repeat at same bucket should be suppressed")
	}
	s.Reset()
	if !s.ShouldLog(2, 2) {
		t.Fatal("reset should allow logging again")
	}
}
