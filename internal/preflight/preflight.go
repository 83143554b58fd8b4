package preflight

import (
	"context"

	"k21/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	if cfg.Capture.SaveVideo {
		results = append(results, CheckDirectoryAccess("Video directory", cfg.Capture.OutputDirVideo))
	}
	if cfg.Capture.SaveScreenshot {
		results = append(results, CheckDirectoryAccess("Screenshot directory", cfg.Capture.OutputDirScreenshot))
	}

	if cfg.Processor.Type == config.ProcessorVision {
		results = append(results, CheckVision(ctx, cfg.Vision))
	}

	return results
}
