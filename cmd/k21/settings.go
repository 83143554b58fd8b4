package main

import (
	"fmt"
	"log/slog"
	"strings"

	"k21/internal/config"
	"k21/internal/pipeline"
	"k21/internal/processor"
	"k21/internal/records"
	"k21/internal/services"
)

func captureConfigFrom(cfg *config.Config) pipeline.CaptureConfig {
	return pipeline.CaptureConfig{
		FPS:                 cfg.Capture.FPS,
		Duration:            cfg.Capture.Duration(),
		MaxFrames:           cfg.Capture.FrameLimit(),
		SaveScreenshot:      cfg.Capture.SaveScreenshot,
		SaveVideo:           cfg.Capture.SaveVideo,
		VideoChunkDuration:  cfg.Capture.ChunkDuration(),
		OutputDirVideo:      cfg.Capture.OutputDirVideo,
		OutputDirScreenshot: cfg.Capture.OutputDirScreenshot,
		Display:             cfg.Capture.Display,
	}
}

func settingsFrom(cfg *config.Config) pipeline.Settings {
	return pipeline.Settings{
		MaxInFlight:     cfg.Pipeline.MaxInFlight,
		BacklogCapacity: cfg.Pipeline.QueueCapacity,
		StaleAfter:      cfg.Pipeline.StaleAfter(),
		DropPolicy:      pipeline.DropPolicy(cfg.Pipeline.DropPolicy),
		DrainTimeout:    cfg.Pipeline.DrainTimeout(),
		SinkQueueSize:   cfg.Pipeline.SinkQueueSize,
	}
}

// processorConfigFrom builds the backend configuration for kind, falling back
// to processor.type when kind is empty. A nil config means no processing.
func processorConfigFrom(cfg *config.Config, kind string) (*processor.Config, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = cfg.Processor.Type
	}
	switch kind {
	case config.ProcessorNone:
		return nil, nil
	case config.ProcessorOCR:
		return &processor.Config{
			Kind: processor.KindOCR,
			OCR: &processor.OCRConfig{
				Model:         cfg.OCR.Model,
				Binary:        cfg.OCR.Binary,
				Language:      cfg.OCR.Language,
				BoundingBoxes: cfg.OCR.BoundingBoxes,
				DPI:           cfg.OCR.DPI,
				PSM:           cfg.OCR.PSM,
				OEM:           cfg.OCR.OEM,
				Timeout:       cfg.OCR.Timeout(),
			},
		}, nil
	case config.ProcessorVision:
		return &processor.Config{
			Kind: processor.KindVision,
			Vision: &processor.VisionConfig{
				EndpointURL: cfg.Vision.URL,
				APIKey:      cfg.Vision.APIKey,
				Model:       cfg.Vision.Model,
				Prompt:      cfg.Vision.Prompt,
				Timeout:     cfg.Vision.Timeout(),
			},
		}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "cli", "processor",
			fmt.Sprintf("unsupported processor %q (want ocr, vision or none)", kind), nil)
	}
}

// buildOrchestrator wires an orchestrator from cfg. The returned closer
// releases the record store when one was opened.
func buildOrchestrator(cfg *config.Config, logger *slog.Logger) (*pipeline.Orchestrator, func() error, error) {
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithSettings(settingsFrom(cfg)),
		pipeline.WithFFmpeg(cfg.Video.FFmpegBinary, cfg.Video.Codec, cfg.Video.Preset),
		pipeline.WithScreenshotFormat(cfg.Screenshot.Format, cfg.Screenshot.Quality),
		pipeline.WithProcessorDeps(processor.Deps{Logger: logger}),
	}
	closer := func() error { return nil }
	if cfg.Store.Enabled {
		store, err := records.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, services.Wrap(services.ErrSinkInit, "cli", "open store", cfg.Store.Path, err)
		}
		opts = append(opts, pipeline.WithRecordStore(store))
		closer = store.Close
	}
	return pipeline.NewOrchestrator(opts...), closer, nil
}
