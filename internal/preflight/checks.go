package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"k21/internal/config"
	"k21/internal/deps"
	"k21/internal/services"
	"k21/internal/services/vision"
)

// CheckVision verifies that the vision endpoint is reachable and the key is
// accepted. It uses a 30-second timeout and a single attempt.
func CheckVision(ctx context.Context, cfg config.Vision) Result {
	const name = "Vision endpoint"
	if strings.TrimSpace(cfg.URL) == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := vision.NewClient(vision.Config{
		BaseURL: cfg.URL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: 30 * time.Second,
	})
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeVisionError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// EnsureWritableDir creates path when missing and confirms the current user
// can write to it. Failures are ErrSinkInit.
func EnsureWritableDir(name, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return services.Wrap(services.ErrConfiguration, "preflight", "output dir", name+" not set", nil)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return services.Wrap(services.ErrSinkInit, "preflight", "output dir", "create "+path, err)
	}
	if result := CheckDirectoryAccess(name, path); !result.Passed {
		return services.Wrap(services.ErrSinkInit, "preflight", "output dir", result.Detail, nil)
	}
	return nil
}

// CheckSystemDeps evaluates the external binaries the given config uses.
// Both the pipeline setup and the CLI status command use this to avoid
// duplicating the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Video.FFmpegBinary,
			Description: "Required for video chunks and video processing",
			Optional:    !cfg.Capture.SaveVideo,
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Video.FFprobeBinary,
			Description: "Places extracted video frames on the recording timeline",
			Optional:    true,
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "Tesseract",
			Command:     cfg.OCR.Binary,
			Description: "Required for OCR processing",
			Optional:    cfg.Processor.Type != config.ProcessorOCR,
			VersionArgs: []string{"--version"},
		},
	}
	return deps.CheckBinaries(requirements)
}

// summarizeVisionError produces a human-readable summary for health check failures.
func summarizeVisionError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, services.ErrTimeout) {
		return "health check timed out (vision API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (vision API unreachable)"
	}
	if errors.Is(err, services.ErrConfiguration) {
		return "auth failed (check vision.api_key)"
	}
	return err.Error()
}
