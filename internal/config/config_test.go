package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/config"
)

func validConfig(t *testing.T) config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test"
	cfg.TTS.APIKey = "test"
	cfg.TTS.VoiceID = "voice"
	cfg.Transcription.APIKey = "test"
	return cfg
}

func TestValidateDefaultsPass(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateOverlapBounds(t *testing.T) {
	cfg := validConfig(t)
	cfg.Segmenter.Overlap = cfg.Segmenter.MaxChunkSize
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected overlap >= max_chunk_size to fail validation")
	}
	cfg.Segmenter.Overlap = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected negative overlap to fail validation")
	}
}

func TestValidateLocale(t *testing.T) {
	cfg := validConfig(t)
	cfg.Segmenter.Locale = "not a locale!!"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected invalid locale to fail validation")
	}
}

func TestValidateRequiresLLMKey(t *testing.T) {
	cfg := validConfig(t)
	cfg.LLM.APIKey = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected missing llm key to fail validation")
	}
	if !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDisabledTTSSkipsKey(t *testing.T) {
	cfg := validConfig(t)
	cfg.TTS.Enabled = false
	cfg.TTS.APIKey = ""
	cfg.TTS.VoiceID = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled tts should not require a key: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "env-key")
	t.Setenv("ELEVENLABS_API_KEY", "env-tts")
	t.Setenv("ELEVENLABS_VOICE_ID", "env-voice")
	t.Setenv("ASSEMBLYAI_API_KEY", "env-words")

	path := filepath.Join(t.TempDir(), "nope.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("config file should not exist")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Segmenter.MaxChunkSize != 1000 || cfg.Segmenter.Overlap != 100 {
		t.Fatalf("unexpected segmenter defaults: %+v", cfg.Segmenter)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("env fallback not applied: %q", cfg.LLM.APIKey)
	}
}

func TestLoadParsesTOML(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "env-key")
	t.Setenv("ELEVENLABS_API_KEY", "env-tts")
	t.Setenv("ELEVENLABS_VOICE_ID", "env-voice")
	t.Setenv("ASSEMBLYAI_API_KEY", "env-words")

	dir := t.TempDir()
	path := filepath.Join(dir, "reelsmith.toml")
	body := strings.Join([]string{
		"[segmenter]",
		"max_chunk_size = 500",
		"overlap = 50",
		"[workflow]",
		"window_workers = 1",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Segmenter.MaxChunkSize != 500 || cfg.Segmenter.Overlap != 50 {
		t.Fatalf("segmenter not loaded: %+v", cfg.Segmenter)
	}
	if cfg.Workflow.WindowWorkers != 1 {
		t.Fatalf("workflow not loaded: %+v", cfg.Workflow)
	}
	// Untouched sections keep defaults.
	if cfg.Captions.MaxWordsPerLine != 7 {
		t.Fatalf("captions default lost: %+v", cfg.Captions)
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected second CreateSample to fail")
	}
}
