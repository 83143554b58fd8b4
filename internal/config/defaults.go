package config

const (
	defaultConfigPath          = "~/.config/k21/config.toml"
	defaultFPS                 = 1.0
	defaultDurationSeconds     = 10
	defaultChunkSeconds        = 10
	defaultOutputDirVideo      = "~/.local/share/k21/video"
	defaultOutputDirScreenshot = "~/.local/share/k21/screenshots"
	defaultProcessorType       = ProcessorOCR
	defaultOCRModel            = "default"
	defaultOCRBinary           = "tesseract"
	defaultOCRLanguage         = "eng"
	defaultOCRTimeoutSeconds   = 60
	defaultVisionURL           = "https://api.openai.com/v1"
	defaultVisionModel         = "gpt-4o-mini"
	defaultVisionPrompt        = "Transcribe all text visible in this screenshot. Return only the text."
	defaultVisionTimeout       = 60
	defaultMaxInFlight         = 4
	defaultQueueCapacity       = 16
	defaultStaleAfterSeconds   = 30
	defaultDropPolicy          = DropOldest
	defaultDrainTimeoutSeconds = 30
	defaultSinkQueueSize       = 32
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultVideoCodec          = "libx264"
	defaultVideoPreset         = "ultrafast"
	defaultExtractFPS          = 1.0
	defaultScreenshotFormat    = FormatPNG
	defaultScreenshotQuality   = 90
	defaultStorePath           = "~/.local/share/k21/records.db"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Processor types.
const (
	ProcessorOCR    = "ocr"
	ProcessorVision = "vision"
	ProcessorNone   = "none"
)

// Backlog drop policies.
const (
	DropOldest = "drop-oldest"
	DropNewest = "drop-newest"
)

// Screenshot formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Capture: Capture{
			FPS:                       defaultFPS,
			DurationSeconds:           defaultDurationSeconds,
			VideoChunkDurationSeconds: defaultChunkSeconds,
			OutputDirVideo:            defaultOutputDirVideo,
			OutputDirScreenshot:       defaultOutputDirScreenshot,
		},
		Processor: Processor{Type: defaultProcessorType},
		OCR: OCR{
			Model:          defaultOCRModel,
			Binary:         defaultOCRBinary,
			Language:       defaultOCRLanguage,
			BoundingBoxes:  true,
			TimeoutSeconds: defaultOCRTimeoutSeconds,
		},
		Vision: Vision{
			URL:            defaultVisionURL,
			Model:          defaultVisionModel,
			Prompt:         defaultVisionPrompt,
			TimeoutSeconds: defaultVisionTimeout,
		},
		Pipeline: Pipeline{
			MaxInFlight:         defaultMaxInFlight,
			QueueCapacity:       defaultQueueCapacity,
			StaleAfterSeconds:   defaultStaleAfterSeconds,
			DropPolicy:          defaultDropPolicy,
			DrainTimeoutSeconds: defaultDrainTimeoutSeconds,
			SinkQueueSize:       defaultSinkQueueSize,
		},
		Video: Video{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			Codec:         defaultVideoCodec,
			Preset:        defaultVideoPreset,
			ExtractFPS:    defaultExtractFPS,
		},
		Screenshot: Screenshot{
			Format:  defaultScreenshotFormat,
			Quality: defaultScreenshotQuality,
		},
		Store: Store{Path: defaultStorePath},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
