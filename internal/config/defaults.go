package config

const (
	defaultOutputDir = "~/.local/share/reelsmith/output"
	defaultWorkDir   = "~/.local/share/reelsmith/work"
	defaultLogDir    = "~/.local/share/reelsmith/logs"

	defaultMaxChunkSize = 1000
	defaultOverlap      = 100
	defaultLocale       = "en-US"

	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "deepseek/deepseek-chat"
	defaultLLMTimeoutSeconds = 60

	defaultTTSBaseURL        = "https://api.elevenlabs.io/v1"
	defaultTTSModelID        = "eleven_multilingual_v2"
	defaultTTSTimeoutSeconds = 120

	defaultTranscriptionBaseURL      = "https://api.assemblyai.com/v2"
	defaultTranscriptionTimeout      = 300
	defaultTranscriptionPollInterval = 3

	defaultMaxWordsPerLine = 7

	defaultVisualsJobTimeout    = 600
	defaultVisualsPollInterval  = 5
	defaultDurationToleranceSec = 0.5

	defaultWindowWorkers = 2

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
		},
		Segmenter: Segmenter{
			MaxChunkSize: defaultMaxChunkSize,
			Overlap:      defaultOverlap,
			Locale:       defaultLocale,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		TTS: TTS{
			Enabled:        true,
			BaseURL:        defaultTTSBaseURL,
			ModelID:        defaultTTSModelID,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Transcription: Transcription{
			BaseURL:             defaultTranscriptionBaseURL,
			TimeoutSeconds:      defaultTranscriptionTimeout,
			PollIntervalSeconds: defaultTranscriptionPollInterval,
		},
		Captions: Captions{
			MaxWordsPerLine: defaultMaxWordsPerLine,
		},
		Visuals: Visuals{
			Enabled:              false,
			JobTimeoutSeconds:    defaultVisualsJobTimeout,
			PollIntervalSeconds:  defaultVisualsPollInterval,
			DurationToleranceSec: defaultDurationToleranceSec,
		},
		Workflow: Workflow{
			WindowWorkers: defaultWindowWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
	}
}
