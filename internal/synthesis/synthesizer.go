// Package synthesis produces the narration audio artifact for one window.
//
// The synthesizer writes the speech service's audio to the window workspace
// and measures the real playback duration with ffprobe. The measured value is
// authoritative for every downstream stage; the script's estimated duration
// is never trusted. When speech synthesis is disabled the synthesizer renders
// a silent placeholder track sized from the narration word count so the rest
// of the pipeline can still run.
package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

// Words per second of typical narration, used only to size the silent
// placeholder when speech synthesis is disabled.
const placeholderWordsPerSecond = 2.5

// Artifact is a narration audio file with its measured playback duration.
type Artifact struct {
	Path        string
	DurationSec float64
}

// Speech converts narration text to audio bytes. Satisfied by the
// elevenlabs client.
type Speech interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Prober measures media durations. Satisfied by *ffprobe.Inspector.
type Prober interface {
	DurationSeconds(ctx context.Context, path string) (float64, error)
}

// Runner executes the ffmpeg binary. Tests substitute a fake.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Synthesizer produces narration audio artifacts.
type Synthesizer struct {
	speech  Speech
	probe   Prober
	enabled bool
	ffmpeg  string
	run     Runner
	logger  *slog.Logger
}

// Options configures a Synthesizer.
type Options struct {
	Speech Speech
	Probe  Prober
	// Enabled selects real speech synthesis; when false a silent placeholder
	// track is rendered instead.
	Enabled bool
	FFmpeg  string
	Run     Runner
	Logger  *slog.Logger
}

// New constructs a Synthesizer.
func New(opts Options) (*Synthesizer, error) {
	if opts.Probe == nil {
		return nil, services.Wrap(services.ErrConfiguration, "synthesis", "new", "duration prober required", nil)
	}
	if opts.Enabled && opts.Speech == nil {
		return nil, services.Wrap(services.ErrConfiguration, "synthesis", "new", "speech client required when synthesis is enabled", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	ffmpeg := strings.TrimSpace(opts.FFmpeg)
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	run := opts.Run
	if run == nil {
		run = runCombined
	}
	return &Synthesizer{
		speech:  opts.Speech,
		probe:   opts.Probe,
		enabled: opts.Enabled,
		ffmpeg:  ffmpeg,
		run:     run,
		logger:  logger,
	}, nil
}

// Synthesize renders narration audio to outputPath and returns the artifact
// with its measured duration.
func (s *Synthesizer) Synthesize(ctx context.Context, narration, outputPath string) (Artifact, error) {
	narration = strings.TrimSpace(narration)
	if narration == "" {
		return Artifact{}, services.Wrap(services.ErrSynthesis, "synthesis", "synthesize", "narration text required", nil)
	}
	outputPath = strings.TrimSpace(outputPath)
	if outputPath == "" {
		return Artifact{}, services.Wrap(services.ErrSynthesis, "synthesis", "synthesize", "output path required", nil)
	}

	if s.enabled {
		audio, err := s.speech.Synthesize(ctx, narration)
		if err != nil {
			return Artifact{}, err
		}
		if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
			return Artifact{}, services.Wrap(services.ErrSynthesis, "synthesis", "synthesize", "write audio artifact", err)
		}
	} else {
		if err := s.renderSilence(ctx, narration, outputPath); err != nil {
			return Artifact{}, err
		}
	}

	duration, err := s.probe.DurationSeconds(ctx, outputPath)
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrSynthesis, "synthesis", "synthesize", "measure audio duration", err)
	}
	s.logger.Debug("narration audio ready",
		logging.String("path", outputPath),
		logging.Float64("duration_sec", duration),
		logging.Bool("placeholder", !s.enabled))
	return Artifact{Path: outputPath, DurationSec: duration}, nil
}

func (s *Synthesizer) renderSilence(ctx context.Context, narration, outputPath string) error {
	words := len(strings.Fields(narration))
	seconds := float64(words) / placeholderWordsPerSecond
	if seconds < 1 {
		seconds = 1
	}
	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=mono",
		"-t", fmt.Sprintf("%.2f", seconds),
		"-q:a", "9",
		outputPath,
	}
	if output, err := s.run(ctx, s.ffmpeg, args...); err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesis", "render silence",
			strings.TrimSpace(string(output)), err)
	}
	return nil
}

func runCombined(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).CombinedOutput()
}
