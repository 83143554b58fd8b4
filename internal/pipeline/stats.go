package pipeline

import "sync/atomic"

// Stats counts non-fatal events during a run. All fields are safe for
// concurrent use.
type Stats struct {
	FramesCaptured     atomic.Uint64
	CaptureRetries     atomic.Uint64
	FramesSubmitted    atomic.Uint64
	FramesProcessed    atomic.Uint64
	FramesFailed       atomic.Uint64
	FramesDropped      atomic.Uint64
	ScreenshotsWritten atomic.Uint64
	ScreenshotFailures atomic.Uint64
	ChunksWritten      atomic.Uint64
	VideoFrameFailures atomic.Uint64
	SinkQueueDrops     atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	FramesCaptured     uint64 `json:"frames_captured"`
	CaptureRetries     uint64 `json:"capture_retries"`
	FramesSubmitted    uint64 `json:"frames_submitted"`
	FramesProcessed    uint64 `json:"frames_processed"`
	FramesFailed       uint64 `json:"frames_failed"`
	FramesDropped      uint64 `json:"frames_dropped"`
	ScreenshotsWritten uint64 `json:"screenshots_written"`
	ScreenshotFailures uint64 `json:"screenshot_failures"`
	ChunksWritten      uint64 `json:"chunks_written"`
	VideoFrameFailures uint64 `json:"video_frame_failures"`
	SinkQueueDrops     uint64 `json:"sink_queue_drops"`
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		FramesCaptured:     s.FramesCaptured.Load(),
		CaptureRetries:     s.CaptureRetries.Load(),
		FramesSubmitted:    s.FramesSubmitted.Load(),
		FramesProcessed:    s.FramesProcessed.Load(),
		FramesFailed:       s.FramesFailed.Load(),
		FramesDropped:      s.FramesDropped.Load(),
		ScreenshotsWritten: s.ScreenshotsWritten.Load(),
		ScreenshotFailures: s.ScreenshotFailures.Load(),
		ChunksWritten:      s.ChunksWritten.Load(),
		VideoFrameFailures: s.VideoFrameFailures.Load(),
		SinkQueueDrops:     s.SinkQueueDrops.Load(),
	}
}
