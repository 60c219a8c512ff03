package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"reelsmith/internal/assemble"
	"reelsmith/internal/captions"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/runstore"
	"reelsmith/internal/script"
	"reelsmith/internal/segment"
	"reelsmith/internal/services/assemblyai"
	"reelsmith/internal/services/elevenlabs"
	"reelsmith/internal/services/genvid"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/synthesis"
	"reelsmith/internal/visuals"
)

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [input-file]",
		Short: "Produce one clip per content window from an input text",
		Long: "Reads long-form text from the given file (or stdin when the argument " +
			"is omitted or \"-\"), splits it into content windows, and produces one " +
			"vertical video clip per window in the configured output directory.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			source, err := readSource(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			logger, err := logging.NewWithFile(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Output: cmd.ErrOrStderr(),
			}, cfg.Paths.LogDir, "reelsmith.log")
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			lock := flock.New(filepath.Join(cfg.Paths.LogDir, "reelsmith.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !locked {
				return errors.New("another reelsmith run is already in progress")
			}
			defer func() { _ = lock.Unlock() }()

			orchestrator, journal, err := buildOrchestrator(cfg, logger)
			if err != nil {
				return err
			}
			if journal != nil {
				defer journal.Close()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := orchestrator.Run(ctx, source)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderRunSummary(summary))
			fmt.Fprintf(out, "Completed %d of %d windows\n", summary.Completed, summary.Windows)
			if summary.Completed == 0 {
				return errors.New("all windows failed; see the log for details")
			}
			return nil
		},
	}
	return cmd
}

func buildOrchestrator(cfg *config.Config, logger *slog.Logger) (*pipeline.Orchestrator, *runstore.Store, error) {
	segmenter, err := segment.New(cfg.Segmenter.MaxChunkSize, cfg.Segmenter.Overlap, cfg.Segmenter.Locale)
	if err != nil {
		return nil, nil, err
	}

	deriver := script.NewDeriver(llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}), logger)

	probe := ffprobe.New(cfg.Tools.FFprobe)

	var speech synthesis.Speech
	if cfg.TTS.Enabled {
		speech = elevenlabs.NewClient(elevenlabs.Config{
			APIKey:         cfg.TTS.APIKey,
			BaseURL:        cfg.TTS.BaseURL,
			VoiceID:        cfg.TTS.VoiceID,
			ModelID:        cfg.TTS.ModelID,
			TimeoutSeconds: cfg.TTS.TimeoutSeconds,
		})
	}
	synthesizer, err := synthesis.New(synthesis.Options{
		Speech:  speech,
		Probe:   probe,
		Enabled: cfg.TTS.Enabled,
		FFmpeg:  cfg.Tools.FFmpeg,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, err
	}

	aligner := captions.NewAligner(assemblyai.NewClient(assemblyai.Config{
		APIKey:              cfg.Transcription.APIKey,
		BaseURL:             cfg.Transcription.BaseURL,
		TimeoutSeconds:      cfg.Transcription.TimeoutSeconds,
		PollIntervalSeconds: cfg.Transcription.PollIntervalSeconds,
	}), cfg.Captions.MaxWordsPerLine, logger)

	generator, err := visuals.NewGenerator(genvid.NewClient(genvid.Config{
		APIKey:              cfg.Visuals.APIKey,
		BaseURL:             cfg.Visuals.BaseURL,
		JobTimeoutSeconds:   cfg.Visuals.JobTimeoutSeconds,
		PollIntervalSeconds: cfg.Visuals.PollIntervalSeconds,
	}), cfg.Visuals.Enabled, logger,
		visuals.WithDurationCheck(probe, cfg.Visuals.DurationToleranceSec))
	if err != nil {
		return nil, nil, err
	}

	opts := pipeline.Options{
		Segmenter:   segmenter,
		Deriver:     deriver,
		Synthesizer: synthesizer,
		Aligner:     aligner,
		Visuals:     generator,
		Assembler:   assemble.New(cfg.Tools.FFmpeg, nil, logger),
		OutputDir:   cfg.Paths.OutputDir,
		WorkDir:     cfg.Paths.WorkDir,
		Workers:     cfg.Workflow.WindowWorkers,
		Logger:      logger,
	}

	// A broken journal should never block producing clips.
	journal, err := runstore.Open(cfg.Paths.LogDir)
	if err != nil {
		logger.Warn("run journal unavailable", logging.Error(err))
	} else {
		opts.Journal = journal
	}

	orchestrator, err := pipeline.New(opts)
	if err != nil {
		if journal != nil {
			_ = journal.Close()
		}
		return nil, nil, err
	}
	return orchestrator, journal, nil
}

func readSource(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read input file: %w", err)
	}
	return string(data), nil
}

func renderRunSummary(summary pipeline.Summary) string {
	rows := make([][]string, 0, len(summary.Results))
	for _, result := range summary.Results {
		status := "completed"
		detail := result.OutputPath
		stage := ""
		if result.Failed() {
			status = "failed"
			stage = result.Stage
			detail = truncateDetail(result.Err.Error(), 80)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", result.Window.Index),
			status,
			stage,
			detail,
		})
	}
	return renderTable(
		[]string{"Window", "Status", "Stage", "Output / Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
}

func truncateDetail(detail string, limit int) string {
	detail = strings.ReplaceAll(detail, "\n", " ")
	runes := []rune(detail)
	if len(runes) <= limit {
		return detail
	}
	return string(runes[:limit]) + "..."
}
