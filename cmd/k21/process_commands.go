package main

import (
	"github.com/spf13/cobra"

	"k21/internal/config"
	"k21/internal/logging"
	"k21/internal/pipeline"
	"k21/internal/processor"
	"k21/internal/records"
	"k21/internal/video"
)

func newImageCommand(ctx *commandContext) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "image PATH",
		Short: "Extract text from a single image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, err := ctx.newProcessor(cmd, kind)
			if err != nil {
				return err
			}
			rec, err := pipeline.ProcessSingleImage(cmd.Context(), proc, args[0])
			if err != nil {
				return err
			}
			return ctx.writeRecords(cmd, []records.TextRecord{rec})
		},
	}
	cmd.Flags().StringVar(&kind, "processor", "", "Text extraction backend: ocr or vision (overrides processor.type)")
	return cmd
}

func newVideoCommand(ctx *commandContext) *cobra.Command {
	var (
		kind string
		fps  float64
	)
	cmd := &cobra.Command{
		Use:   "video PATH",
		Short: "Extract text from frames sampled out of a video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("fps") {
				fps = cfg.Video.ExtractFPS
			}
			proc, err := ctx.newProcessor(cmd, kind)
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			extractor := video.NewExtractor(cfg.Video.FFmpegBinary, cfg.Video.FFprobeBinary,
				video.WithExtractorLogger(logging.NewComponentLogger(logger, "extract")))
			stats := &pipeline.Stats{}
			recs, err := pipeline.ProcessVideo(cmd.Context(), extractor, proc, args[0], fps,
				pipeline.WithVideoConcurrency(cfg.Pipeline.MaxInFlight),
				pipeline.WithVideoStats(stats),
				pipeline.WithVideoLogger(logger),
			)
			if err != nil {
				return err
			}
			snapshot := stats.Snapshot()
			writeRunSummary(cmd, pipeline.Result{State: pipeline.StateCompleted, Stats: snapshot})
			return ctx.writeRecords(cmd, recs)
		},
	}
	cmd.Flags().StringVar(&kind, "processor", "", "Text extraction backend: ocr or vision (overrides processor.type)")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Frames sampled per second of video (overrides video.extract_fps)")
	return cmd
}

// newProcessor builds the processor selected by kind or processor.type.
// Processing requires a backend, so "none" falls back to OCR.
func (c *commandContext) newProcessor(cmd *cobra.Command, kind string) (*processor.Processor, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger(cmd)
	if err != nil {
		return nil, err
	}
	procCfg, err := processorConfigFrom(cfg, kind)
	if err != nil {
		return nil, err
	}
	if procCfg == nil {
		procCfg, _ = processorConfigFrom(cfg, config.ProcessorOCR)
	}
	return processor.New(*procCfg, processor.Deps{Logger: logging.NewComponentLogger(logger, "processor")})
}
