// Package pipeline drives the per-window video production flow: derive a
// script, synthesize narration, align captions and generate visuals, then
// assemble the final clip. Windows are isolated units of work; one window's
// failure is recorded and never aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"reelsmith/internal/assemble"
	"reelsmith/internal/captions"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/runstore"
	"reelsmith/internal/script"
	"reelsmith/internal/segment"
	"reelsmith/internal/services"
	"reelsmith/internal/synthesis"
	"reelsmith/internal/visuals"
)

// Stage names used in failure records and journal rows.
const (
	StageWorkspace = "workspace"
	StageScript    = "script"
	StageSynthesis = "synthesis"
	StageCaptions  = "captions"
	StageVisuals   = "visuals"
	StageAssemble  = "assemble"
)

// Deriver produces narration units for a window.
type Deriver interface {
	Derive(ctx context.Context, windowText string) ([]script.Unit, error)
}

// Synthesizer renders narration audio with a measured duration.
type Synthesizer interface {
	Synthesize(ctx context.Context, narration, outputPath string) (synthesis.Artifact, error)
}

// Aligner produces display-timed caption lines for narration audio.
type Aligner interface {
	Align(ctx context.Context, audioPath string) ([]captions.Line, error)
}

// VisualGenerator produces one visual artifact per window.
type VisualGenerator interface {
	Generate(ctx context.Context, req visuals.Request) (visuals.Artifact, error)
}

// Assembler muxes the final output clip.
type Assembler interface {
	Assemble(ctx context.Context, in assemble.Inputs) (string, error)
}

// Journal records run progress. Implementations must tolerate concurrent
// window updates. Satisfied by *runstore.Store. Journal failures degrade to
// log warnings; they never fail a run or a window.
type Journal interface {
	CreateRun(ctx context.Context, sourceChars, windowCount int, outputDir string) (*runstore.Run, error)
	UpdateWindow(ctx context.Context, runID int64, index int, status runstore.WindowStatus, stage, outputPath, errMsg string) error
	FinishRun(ctx context.Context, runID int64, status runstore.RunStatus) error
}

// Result is the outcome for one window. Exactly one of OutputPath or Err is
// set; Stage names the failed stage when Err is set.
type Result struct {
	Window     segment.Window
	OutputPath string
	Stage      string
	Err        error
}

// Failed reports whether the window produced a failure record.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Summary aggregates a finished run.
type Summary struct {
	RunID     int64
	Windows   int
	Completed int
	Failed    int
	Results   []Result
}

// Options wires the orchestrator's collaborators.
type Options struct {
	Segmenter   *segment.Segmenter
	Deriver     Deriver
	Synthesizer Synthesizer
	Aligner     Aligner
	Visuals     VisualGenerator
	Assembler   Assembler

	// OutputDir receives the final per-window artifacts; WorkDir holds each
	// window's scratch namespace for intermediate files.
	OutputDir string
	WorkDir   string
	// Workers bounds concurrent window processing; values below 1 run
	// sequentially.
	Workers int

	// Journal is optional; when set, run and window progress is recorded.
	Journal Journal

	Logger *slog.Logger
}

// Orchestrator supervises the per-window pipeline.
type Orchestrator struct {
	opts   Options
	logger *slog.Logger
}

// New validates the wiring and constructs an Orchestrator. All validation
// failures are configuration errors; nothing after New aborts a run.
func New(opts Options) (*Orchestrator, error) {
	if opts.Segmenter == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "segmenter required", nil)
	}
	if opts.Deriver == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "script deriver required", nil)
	}
	if opts.Synthesizer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "narration synthesizer required", nil)
	}
	if opts.Aligner == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "caption aligner required", nil)
	}
	if opts.Visuals == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "visual generator required", nil)
	}
	if opts.Assembler == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "assembler required", nil)
	}
	if opts.OutputDir == "" || opts.WorkDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "output and work directories required", nil)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Orchestrator{opts: opts, logger: opts.Logger}, nil
}

// Run segments the source text and processes every window, returning a
// summary whose Results slice holds one entry per window in window order,
// regardless of completion order. It returns an error only when no window
// could be derived from the source; per-window failures are reported inside
// the summary.
func (o *Orchestrator) Run(ctx context.Context, sourceText string) (Summary, error) {
	windows := o.opts.Segmenter.Segment(sourceText)
	if len(windows) == 0 {
		return Summary{}, services.Wrap(services.ErrConfiguration, "pipeline", "run", "source text produced no windows", nil)
	}

	correlationID := services.NewRequestID()
	ctx = services.WithRequestID(ctx, correlationID)
	runID := o.beginRun(ctx, len(sourceText), len(windows))
	o.logger.Info("run started",
		logging.Int("windows", len(windows)),
		logging.Int("workers", o.opts.Workers),
		logging.Int64("run_id", runID),
		logging.String(logging.FieldCorrelationID, correlationID))

	results := make([]Result, len(windows))
	workers := o.opts.Workers
	if workers > len(windows) {
		workers = len(windows)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = o.processWindow(ctx, runID, windows[i])
			}
		}()
	}
	for i := range windows {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	summary := Summary{RunID: runID, Windows: len(windows), Results: results}
	for _, r := range results {
		if r.Failed() {
			summary.Failed++
		} else {
			summary.Completed++
		}
	}

	runStatus := runstore.RunCompleted
	if summary.Completed == 0 {
		runStatus = runstore.RunFailed
	}
	o.finishRun(runID, runStatus)
	o.logger.Info("run finished",
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed))
	return summary, nil
}

func (o *Orchestrator) processWindow(ctx context.Context, runID int64, window segment.Window) (result Result) {
	result.Window = window
	ctx = services.WithWindowIndex(ctx, window.Index)
	logger := o.logger.With(logging.Int(logging.FieldWindowIndex, window.Index))

	// A panicking collaborator fails its window, not the run.
	defer func() {
		if recovered := recover(); recovered != nil {
			result.Stage = StageWorkspace
			result.Err = services.Wrap(services.ErrTransient, "pipeline", "process window",
				fmt.Sprintf("panic: %v", recovered), nil)
			o.journalWindow(runID, window.Index, runstore.WindowFailed, result.Stage, "", result.Err)
		}
	}()

	fail := func(stage string, err error) Result {
		logger.Warn("window failed",
			logging.String(logging.FieldStage, stage),
			logging.Error(err))
		o.journalWindow(runID, window.Index, runstore.WindowFailed, stage, "", err)
		result.Stage = stage
		result.Err = err
		return result
	}

	workspace := filepath.Join(o.opts.WorkDir, windowName(window.Index))
	if err := fileutil.EnsureDir(workspace); err != nil {
		return fail(StageWorkspace, services.Wrap(services.ErrTransient, "pipeline", "workspace", workspace, err))
	}
	defer fileutil.RemoveAllQuiet(workspace)

	o.journalWindow(runID, window.Index, runstore.WindowDeriving, StageScript, "", nil)
	units, err := o.opts.Deriver.Derive(ctx, window.Text)
	if err != nil {
		return fail(StageScript, err)
	}
	if len(units) == 0 {
		return fail(StageScript, services.Wrap(services.ErrSchema, "pipeline", "derive", "deriver returned no units", nil))
	}
	unit := units[0]

	o.journalWindow(runID, window.Index, runstore.WindowSynthesizing, StageSynthesis, "", nil)
	audio, err := o.opts.Synthesizer.Synthesize(ctx, unit.Narration, filepath.Join(workspace, "narration.mp3"))
	if err != nil {
		return fail(StageSynthesis, err)
	}

	// Captions and visuals both depend on the measured audio but not on each
	// other, so they run concurrently.
	o.journalWindow(runID, window.Index, runstore.WindowRendering, StageVisuals, "", nil)
	var (
		inner      sync.WaitGroup
		srtPath    string
		captionErr error
		visual     visuals.Artifact
		visualErr  error
	)
	inner.Add(2)
	go func() {
		defer inner.Done()
		lines, err := o.opts.Aligner.Align(ctx, audio.Path)
		if err != nil {
			captionErr = err
			return
		}
		path := filepath.Join(workspace, "captions.srt")
		if err := captions.WriteSRT(lines, path); err != nil {
			captionErr = err
			return
		}
		srtPath = path
	}()
	go func() {
		defer inner.Done()
		visual, visualErr = o.opts.Visuals.Generate(ctx, visuals.Request{
			Subject:     unit.Title,
			AudioPath:   audio.Path,
			DurationSec: audio.DurationSec,
			OutputPath:  filepath.Join(workspace, "visual.mp4"),
		})
	}()
	inner.Wait()
	if captionErr != nil {
		return fail(StageCaptions, captionErr)
	}
	if visualErr != nil {
		return fail(StageVisuals, visualErr)
	}

	// Assemble inside the workspace and publish only the finished clip, so
	// the output directory never holds partial artifacts.
	o.journalWindow(runID, window.Index, runstore.WindowAssembling, StageAssemble, "", nil)
	staged := filepath.Join(workspace, windowName(window.Index)+".mp4")
	if _, err := o.opts.Assembler.Assemble(ctx, assemble.Inputs{
		VideoPath:    visual.Path,
		AudioPath:    audio.Path,
		SubtitlePath: srtPath,
		OutputPath:   staged,
	}); err != nil {
		return fail(StageAssemble, err)
	}
	outputPath := filepath.Join(o.opts.OutputDir, windowName(window.Index)+".mp4")
	if err := fileutil.CopyFile(staged, outputPath); err != nil {
		return fail(StageAssemble, services.Wrap(services.ErrTransient, "pipeline", "publish", outputPath, err))
	}

	logger.Info("window completed",
		logging.String("output", outputPath),
		logging.Float64("duration_sec", audio.DurationSec),
		logging.String("visual_kind", string(visual.Kind)))
	o.journalWindow(runID, window.Index, runstore.WindowCompleted, StageAssemble, outputPath, nil)
	result.OutputPath = outputPath
	return result
}

func (o *Orchestrator) beginRun(ctx context.Context, sourceChars, windowCount int) int64 {
	if o.opts.Journal == nil {
		return 0
	}
	run, err := o.opts.Journal.CreateRun(ctx, sourceChars, windowCount, o.opts.OutputDir)
	if err != nil {
		o.logger.Warn("journal create failed", logging.Error(err))
		return 0
	}
	return run.ID
}

func (o *Orchestrator) finishRun(runID int64, status runstore.RunStatus) {
	if o.opts.Journal == nil {
		return
	}
	if err := o.opts.Journal.FinishRun(context.Background(), runID, status); err != nil {
		o.logger.Warn("journal finish failed", logging.Error(err))
	}
}

func (o *Orchestrator) journalWindow(runID int64, index int, status runstore.WindowStatus, stage, outputPath string, failure error) {
	if o.opts.Journal == nil {
		return
	}
	errMsg := ""
	if failure != nil {
		errMsg = failure.Error()
	}
	if err := o.opts.Journal.UpdateWindow(context.Background(), runID, index, status, stage, outputPath, errMsg); err != nil {
		o.logger.Warn("journal update failed", logging.Error(err))
	}
}

// windowName derives the stable per-window artifact namespace from the
// window's index, never from wall-clock time.
func windowName(index int) string {
	return fmt.Sprintf("window_%03d", index)
}
