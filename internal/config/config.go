package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
}

// Segmenter contains content windowing settings.
type Segmenter struct {
	MaxChunkSize int `toml:"max_chunk_size"`
	Overlap      int `toml:"overlap"`
	// Locale is a BCP-47 tag used to pick sentence terminators.
	Locale string `toml:"locale"`
}

// LLM contains the chat-completion connection used for script derivation.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains narration synthesis settings.
type TTS struct {
	Enabled        bool   `toml:"enabled"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	VoiceID        string `toml:"voice_id"`
	ModelID        string `toml:"model_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcription contains word-timestamp transcription settings.
type Transcription struct {
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
}

// Captions contains caption regrouping settings.
type Captions struct {
	MaxWordsPerLine int `toml:"max_words_per_line"`
}

// Visuals contains remote visual generation settings.
type Visuals struct {
	// Enabled gates the synthesized talking-head tiers. When false the
	// generator goes straight to the gradient fallback.
	Enabled              bool    `toml:"enabled"`
	APIKey               string  `toml:"api_key"`
	BaseURL              string  `toml:"base_url"`
	JobTimeoutSeconds    int     `toml:"job_timeout_seconds"`
	PollIntervalSeconds  int     `toml:"poll_interval_seconds"`
	DurationToleranceSec float64 `toml:"duration_tolerance_sec"`
}

// Workflow contains orchestration settings.
type Workflow struct {
	// WindowWorkers bounds concurrent window processing; 1 means sequential.
	WindowWorkers int `toml:"window_workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Tools contains external binary names.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Config encapsulates all configuration values for reelsmith.
//
// Configuration sections by subsystem:
//   - Paths: output, scratch, and log directories
//   - Segmenter: content window sizing and overlap
//   - LLM: chat-completion connection for script derivation
//   - TTS: narration synthesis connection and voice
//   - Transcription: word-timestamp transcription connection
//   - Captions: caption line regrouping
//   - Visuals: remote visual generation jobs and fallback gating
//   - Workflow: window worker pool sizing
//   - Logging: log format and level
//   - Tools: ffmpeg/ffprobe binary names
type Config struct {
	Paths         Paths         `toml:"paths"`
	Segmenter     Segmenter     `toml:"segmenter"`
	LLM           LLM           `toml:"llm"`
	TTS           TTS           `toml:"tts"`
	Transcription Transcription `toml:"transcription"`
	Captions      Captions      `toml:"captions"`
	Visuals       Visuals       `toml:"visuals"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Tools         Tools         `toml:"tools"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsmith/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
