package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"k21/internal/config"
	"k21/internal/pipeline"
	"k21/internal/services"
)

type captureFlags struct {
	fps           float64
	duration      time.Duration
	maxFrames     uint64
	screenshots   string
	video         string
	chunkDuration time.Duration
	display       int
	processor     string
}

func (f *captureFlags) register(flags *pflag.FlagSet) {
	flags.Float64Var(&f.fps, "fps", 0, "Frames per second (overrides capture.fps)")
	flags.DurationVar(&f.duration, "duration", 0, "Stop after this long; 0 runs until interrupted")
	flags.Uint64Var(&f.maxFrames, "max-frames", 0, "Stop after this many frames; 0 removes the limit")
	flags.StringVar(&f.screenshots, "screenshots", "", "Write a still for every frame into DIR")
	flags.StringVar(&f.video, "video", "", "Write chunked video into DIR")
	flags.DurationVar(&f.chunkDuration, "chunk-duration", 0, "Length of each video chunk")
	flags.IntVar(&f.display, "display", 0, "Display index to capture")
}

// apply returns a copy of cfg with every explicitly set flag applied.
func (f *captureFlags) apply(flags *pflag.FlagSet, cfg *config.Config) (*config.Config, error) {
	out := *cfg
	if flags.Changed("fps") {
		out.Capture.FPS = f.fps
	}
	if flags.Changed("duration") {
		if f.duration < 0 {
			return nil, invalidFlag("--duration must not be negative")
		}
		out.Capture.DurationSeconds = f.duration.Seconds()
	}
	if flags.Changed("max-frames") {
		out.Capture.MaxFrames = int64(f.maxFrames)
	}
	if flags.Changed("screenshots") {
		dir, err := config.ExpandPath(f.screenshots)
		if err != nil {
			return nil, invalidFlag(fmt.Sprintf("--screenshots: %v", err))
		}
		out.Capture.SaveScreenshot = true
		out.Capture.OutputDirScreenshot = dir
	}
	if flags.Changed("video") {
		dir, err := config.ExpandPath(f.video)
		if err != nil {
			return nil, invalidFlag(fmt.Sprintf("--video: %v", err))
		}
		out.Capture.SaveVideo = true
		out.Capture.OutputDirVideo = dir
	}
	if flags.Changed("chunk-duration") {
		out.Capture.VideoChunkDurationSeconds = f.chunkDuration.Seconds()
	}
	if flags.Changed("display") {
		out.Capture.Display = f.display
	}
	if err := out.Validate(); err != nil {
		return nil, invalidFlag(err.Error())
	}
	return &out, nil
}

func invalidFlag(msg string) error {
	return services.Wrap(services.ErrConfiguration, "cli", "flags", msg, nil)
}

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	flags := &captureFlags{}
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture the screen into screenshots and video chunks",
		Long: "Capture the screen at the configured rate without extracting text.\n" +
			"Enable outputs with --screenshots and --video, or in the [capture] section.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runCapture(cmd, flags, config.ProcessorNone)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	flags := &captureFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture the screen and extract text from every frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runCapture(cmd, flags, flags.processor)
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&flags.processor, "processor", "", "Text extraction backend: ocr, vision or none (overrides processor.type)")
	return cmd
}

func (c *commandContext) runCapture(cmd *cobra.Command, flags *captureFlags, kind string) (err error) {
	base, err := c.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err := flags.apply(cmd.Flags(), base)
	if err != nil {
		return err
	}
	procCfg, err := processorConfigFrom(cfg, kind)
	if err != nil {
		return err
	}
	logger, err := c.logger(cmd)
	if err != nil {
		return err
	}

	orch, closeStore, err := buildOrchestrator(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = closeStoreErr(err, closeStore) }()

	capture := captureConfigFrom(cfg)
	var result pipeline.Result
	var runErr error
	if procCfg == nil {
		result, runErr = pipeline.Capture(cmd.Context(), orch, capture)
	} else {
		result, runErr = pipeline.CaptureAndProcess(cmd.Context(), orch, capture, *procCfg)
	}
	// Setup failures carry no partial output worth printing.
	if runErr != nil && (!errors.Is(runErr, services.ErrFatalCapture) || result.Stats.FramesCaptured == 0) {
		return runErr
	}

	writeRunSummary(cmd, result)
	if err := c.writeRecords(cmd, result.Records); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// closeStoreErr closes the record store and joins a close failure into err.
func closeStoreErr(err error, closeStore func() error) error {
	if cerr := closeStore(); cerr != nil {
		return errors.Join(err, fmt.Errorf("close record store: %w", cerr))
	}
	return err
}
