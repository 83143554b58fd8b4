package logging

import (
	"context"
	"log/slog"

	"k21/internal/services"
)

const (
	// FieldComponent names the subsystem emitting the log line.
	FieldComponent = "component"
	// FieldRunID carries the orchestrator run identifier.
	FieldRunID = "run_id"
	// FieldStage carries the pipeline stage (capture, process, screenshot, video).
	FieldStage = "stage"
	// FieldFrameIndex carries the capture frame index.
	FieldFrameIndex = "frame_index"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts run, stage and frame attributes from ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if idx, ok := services.FrameIndexFromContext(ctx); ok {
		fields = append(fields, slog.Uint64(FieldFrameIndex, idx))
	}
	return fields
}

// WithContext returns a logger augmented with the fields carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
