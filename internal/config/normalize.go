package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSegmenter()
	c.normalizeLLM()
	c.normalizeTTS()
	c.normalizeTranscription()
	c.normalizeVisuals()
	c.normalizeLogging()
	c.normalizeTools()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSegmenter() {
	c.Segmenter.Locale = strings.TrimSpace(c.Segmenter.Locale)
	if c.Segmenter.Locale == "" {
		c.Segmenter.Locale = defaultLocale
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("DEEPSEEK_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	if c.TTS.APIKey == "" {
		if value, ok := os.LookupEnv("ELEVENLABS_API_KEY"); ok {
			c.TTS.APIKey = strings.TrimSpace(value)
		}
	}
	c.TTS.VoiceID = strings.TrimSpace(c.TTS.VoiceID)
	if c.TTS.VoiceID == "" {
		if value, ok := os.LookupEnv("ELEVENLABS_VOICE_ID"); ok {
			c.TTS.VoiceID = strings.TrimSpace(value)
		}
	}
	c.TTS.BaseURL = strings.TrimSpace(c.TTS.BaseURL)
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	if c.TTS.ModelID == "" {
		c.TTS.ModelID = defaultTTSModelID
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.APIKey = strings.TrimSpace(c.Transcription.APIKey)
	if c.Transcription.APIKey == "" {
		if value, ok := os.LookupEnv("ASSEMBLYAI_API_KEY"); ok {
			c.Transcription.APIKey = strings.TrimSpace(value)
		}
	}
	c.Transcription.BaseURL = strings.TrimSpace(c.Transcription.BaseURL)
	if c.Transcription.BaseURL == "" {
		c.Transcription.BaseURL = defaultTranscriptionBaseURL
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = defaultTranscriptionTimeout
	}
	if c.Transcription.PollIntervalSeconds <= 0 {
		c.Transcription.PollIntervalSeconds = defaultTranscriptionPollInterval
	}
	if c.Captions.MaxWordsPerLine <= 0 {
		c.Captions.MaxWordsPerLine = defaultMaxWordsPerLine
	}
}

func (c *Config) normalizeVisuals() {
	c.Visuals.APIKey = strings.TrimSpace(c.Visuals.APIKey)
	if c.Visuals.APIKey == "" {
		if value, ok := os.LookupEnv("GENVID_API_KEY"); ok {
			c.Visuals.APIKey = strings.TrimSpace(value)
		}
	}
	c.Visuals.BaseURL = strings.TrimSpace(c.Visuals.BaseURL)
	if c.Visuals.JobTimeoutSeconds <= 0 {
		c.Visuals.JobTimeoutSeconds = defaultVisualsJobTimeout
	}
	if c.Visuals.PollIntervalSeconds <= 0 {
		c.Visuals.PollIntervalSeconds = defaultVisualsPollInterval
	}
	if c.Visuals.DurationToleranceSec <= 0 {
		c.Visuals.DurationToleranceSec = defaultDurationToleranceSec
	}
	if c.Workflow.WindowWorkers <= 0 {
		c.Workflow.WindowWorkers = defaultWindowWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
	}
}
