package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")

	// Run-level failures.
	ErrSinkInit     = errors.New("sink initialization error")
	ErrFatalCapture = errors.New("fatal capture error")

	// Per-frame failures. These never abort a run.
	ErrFrameProcess = errors.New("frame processing error")
	ErrFrameWrite   = errors.New("frame write error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err ends a pipeline run rather than skipping a
// single frame.
func IsFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrFrameProcess), errors.Is(err, ErrFrameWrite):
		return false
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrSinkInit), errors.Is(err, ErrFatalCapture):
		return true
	default:
		return false
	}
}

// Reason flattens an error into the single-line failure reason reported to
// callers at the process boundary.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	return strings.Join(strings.Fields(err.Error()), " ")
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
