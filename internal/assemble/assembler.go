// Package assemble muxes a window's visual clip, narration audio, and
// optional caption file into the final output video with ffmpeg.
package assemble

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

const subtitleStyle = "Alignment=2,MarginV=75,FontSize=16,FontName=Arial,Bold=1"

// Runner executes the ffmpeg binary. Tests substitute a fake.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Inputs names the artifacts muxed into one output file. SubtitlePath may be
// empty; VideoPath and AudioPath must exist at call time.
type Inputs struct {
	VideoPath    string
	AudioPath    string
	SubtitlePath string
	OutputPath   string
}

// Assembler drives ffmpeg muxing.
type Assembler struct {
	ffmpeg string
	run    Runner
	logger *slog.Logger
}

// New constructs an Assembler. An empty binary falls back to "ffmpeg" on PATH.
func New(ffmpeg string, run Runner, logger *slog.Logger) *Assembler {
	ffmpeg = strings.TrimSpace(ffmpeg)
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if run == nil {
		run = runCombined
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{ffmpeg: ffmpeg, run: run, logger: logger}
}

// Assemble muxes the inputs into OutputPath and returns that path. A missing
// video, audio, or subtitle file fails before ffmpeg is invoked.
func (a *Assembler) Assemble(ctx context.Context, in Inputs) (string, error) {
	if !fileutil.Exists(in.VideoPath) {
		return "", services.Wrap(services.ErrMissingInput, "assemble", "mux", "video file not found: "+in.VideoPath, nil)
	}
	if !fileutil.Exists(in.AudioPath) {
		return "", services.Wrap(services.ErrMissingInput, "assemble", "mux", "audio file not found: "+in.AudioPath, nil)
	}
	if in.SubtitlePath != "" && !fileutil.Exists(in.SubtitlePath) {
		return "", services.Wrap(services.ErrMissingInput, "assemble", "mux", "subtitle file not found: "+in.SubtitlePath, nil)
	}
	if strings.TrimSpace(in.OutputPath) == "" {
		return "", services.Wrap(services.ErrMissingInput, "assemble", "mux", "output path required", nil)
	}

	args := []string{
		"-y",
		"-i", in.VideoPath,
		"-i", in.AudioPath,
	}
	if in.SubtitlePath != "" {
		args = append(args, "-vf", "subtitles="+in.SubtitlePath+":force_style='"+subtitleStyle+"'")
	}
	args = append(args,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-shortest",
		in.OutputPath,
	)

	a.logger.Debug("assembling output", logging.String("output", in.OutputPath))
	if output, err := a.run(ctx, a.ffmpeg, args...); err != nil {
		return "", services.Wrap(services.ErrTransient, "assemble", "mux",
			strings.TrimSpace(string(output)), err)
	}
	return in.OutputPath, nil
}

func runCombined(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).CombinedOutput()
}
