package pipeline

import (
	"context"
	"log/slog"

	"k21/internal/frames"
	"k21/internal/logging"
	"k21/internal/screenshot"
	"k21/internal/services"
	"k21/internal/video"
)

type videoSink struct {
	writer *video.ChunkWriter
	stats  *Stats
	logger *slog.Logger
	chunks []video.Chunk
}

func (s *videoSink) Name() string { return "video" }

func (s *videoSink) Consume(ctx context.Context, f *frames.Frame) {
	before := len(s.writer.Chunks())
	if err := s.writer.Accept(ctx, f); err != nil {
		s.stats.VideoFrameFailures.Add(1)
		logging.WarnWithContext(logging.WithContext(services.WithFrameIndex(ctx, f.Index), s.logger),
			"video frame not written", "video_frame_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ffmpeg output and free space in the video directory"),
			logging.String(logging.FieldImpact, "frame missing from video; next frame reopens the chunk"),
		)
	}
	if after := len(s.writer.Chunks()); after > before {
		s.stats.ChunksWritten.Add(uint64(after - before))
	}
}

func (s *videoSink) Finish(ctx context.Context) {
	before := len(s.writer.Chunks())
	if err := s.writer.Finalize(); err != nil {
		s.stats.VideoFrameFailures.Add(1)
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "final video chunk not finalized", "video_finalize_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ffmpeg output in the log"),
			logging.String(logging.FieldImpact, "last chunk may be unplayable"),
		)
	}
	s.chunks = s.writer.Chunks()
	if after := len(s.chunks); after > before {
		s.stats.ChunksWritten.Add(uint64(after - before))
	}
}

type screenshotSink struct {
	writer *screenshot.Writer
	stats  *Stats
	logger *slog.Logger
}

func (s *screenshotSink) Name() string { return "screenshot" }

func (s *screenshotSink) Consume(ctx context.Context, f *frames.Frame) {
	if _, err := s.writer.Accept(f); err != nil {
		s.stats.ScreenshotFailures.Add(1)
		logging.WarnWithContext(logging.WithContext(services.WithFrameIndex(ctx, f.Index), s.logger),
			"screenshot not written", "screenshot_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions in the screenshot directory"),
			logging.String(logging.FieldImpact, "screenshot missing for this frame"),
		)
		return
	}
	s.stats.ScreenshotsWritten.Add(1)
}

func (s *screenshotSink) Finish(context.Context) {}
