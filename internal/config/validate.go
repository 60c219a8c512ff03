package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSegmenter(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateVisuals(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSegmenter() error {
	if c.Segmenter.MaxChunkSize <= 0 {
		return errors.New("segmenter.max_chunk_size must be positive")
	}
	if c.Segmenter.Overlap < 0 || c.Segmenter.Overlap >= c.Segmenter.MaxChunkSize {
		return fmt.Errorf("segmenter.overlap must satisfy 0 <= overlap < max_chunk_size (%d)", c.Segmenter.MaxChunkSize)
	}
	if _, err := language.Parse(c.Segmenter.Locale); err != nil {
		return fmt.Errorf("segmenter.locale: invalid BCP-47 tag %q: %w", c.Segmenter.Locale, err)
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/reelsmith/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set OPENROUTER_API_KEY env var or edit %s (create with 'reelsmith config init')", defaultPath)
	}
	if c.LLM.BaseURL == "" {
		return errors.New("llm.base_url must be set")
	}
	return nil
}

func (c *Config) validateTTS() error {
	if !c.TTS.Enabled {
		return nil
	}
	if c.TTS.APIKey == "" {
		return errors.New("tts.api_key must be set when tts.enabled is true (or disable tts for silent placeholder audio)")
	}
	if strings.TrimSpace(c.TTS.VoiceID) == "" {
		return errors.New("tts.voice_id must be set when tts.enabled is true")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.APIKey == "" {
		return errors.New("transcription.api_key is required. Set ASSEMBLYAI_API_KEY env var or edit the config file")
	}
	if c.Captions.MaxWordsPerLine <= 0 {
		return errors.New("captions.max_words_per_line must be positive")
	}
	return nil
}

func (c *Config) validateVisuals() error {
	if c.Visuals.Enabled && c.Visuals.APIKey == "" {
		return errors.New("visuals.api_key must be set when visuals.enabled is true")
	}
	if strings.TrimSpace(c.Visuals.BaseURL) == "" && c.Visuals.Enabled {
		return errors.New("visuals.base_url must be set when visuals.enabled is true")
	}
	if c.Visuals.PollIntervalSeconds >= c.Visuals.JobTimeoutSeconds {
		return errors.New("visuals.poll_interval_seconds must be less than visuals.job_timeout_seconds")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.WindowWorkers <= 0 {
		return errors.New("workflow.window_workers must be positive")
	}
	return nil
}
