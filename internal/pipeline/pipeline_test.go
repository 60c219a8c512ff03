package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"reelsmith/internal/assemble"
	"reelsmith/internal/captions"
	"reelsmith/internal/logging"
	"reelsmith/internal/runstore"
	"reelsmith/internal/script"
	"reelsmith/internal/segment"
	"reelsmith/internal/services"
	"reelsmith/internal/synthesis"
	"reelsmith/internal/visuals"
)

// testSource builds distinct numbered sentences so every window carries
// unique text.
func testSource(sentences int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		fmt.Fprintf(&b, "Sentence number %02d follows the fox along the quiet river bank at first light. ", i)
	}
	return b.String()
}

type stubDeriver struct {
	mu       sync.Mutex
	calls    []string
	failWith map[string]error
}

func (d *stubDeriver) Derive(_ context.Context, text string) ([]script.Unit, error) {
	d.mu.Lock()
	d.calls = append(d.calls, text)
	d.mu.Unlock()
	if err, ok := d.failWith[text]; ok {
		return nil, err
	}
	return []script.Unit{{Title: "Fox at Dawn", Narration: "Narrated: " + text[:20]}}, nil
}

type stubSynthesizer struct {
	duration float64
	err      error
}

func (s *stubSynthesizer) Synthesize(_ context.Context, _ string, outputPath string) (synthesis.Artifact, error) {
	if s.err != nil {
		return synthesis.Artifact{}, s.err
	}
	if err := os.WriteFile(outputPath, []byte("audio"), 0o644); err != nil {
		return synthesis.Artifact{}, err
	}
	return synthesis.Artifact{Path: outputPath, DurationSec: s.duration}, nil
}

type stubAligner struct {
	err error
}

func (a *stubAligner) Align(_ context.Context, _ string) ([]captions.Line, error) {
	if a.err != nil {
		return nil, a.err
	}
	return []captions.Line{{StartMs: 0, EndMs: 1200, Text: "the quick brown fox"}}, nil
}

type stubVisuals struct {
	mu       sync.Mutex
	requests []visuals.Request
	err      error
}

func (v *stubVisuals) Generate(_ context.Context, req visuals.Request) (visuals.Artifact, error) {
	v.mu.Lock()
	v.requests = append(v.requests, req)
	v.mu.Unlock()
	if v.err != nil {
		return visuals.Artifact{}, v.err
	}
	if err := os.WriteFile(req.OutputPath, []byte("video"), 0o644); err != nil {
		return visuals.Artifact{}, err
	}
	return visuals.Artifact{Path: req.OutputPath, DurationSec: req.DurationSec, Kind: visuals.KindSynthesized}, nil
}

type stubAssembler struct {
	mu     sync.Mutex
	inputs []assemble.Inputs
	err    error
}

func (a *stubAssembler) Assemble(_ context.Context, in assemble.Inputs) (string, error) {
	a.mu.Lock()
	a.inputs = append(a.inputs, in)
	a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	if err := os.WriteFile(in.OutputPath, []byte("clip"), 0o644); err != nil {
		return "", err
	}
	return in.OutputPath, nil
}

type fakeJournal struct {
	mu       sync.Mutex
	created  []int
	statuses map[int][]runstore.WindowStatus
	finished []runstore.RunStatus
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{statuses: make(map[int][]runstore.WindowStatus)}
}

func (j *fakeJournal) CreateRun(_ context.Context, _, windowCount int, _ string) (*runstore.Run, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.created = append(j.created, windowCount)
	return &runstore.Run{ID: 42, WindowCount: windowCount}, nil
}

func (j *fakeJournal) UpdateWindow(_ context.Context, _ int64, index int, status runstore.WindowStatus, _, _, _ string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.statuses[index] = append(j.statuses[index], status)
	return nil
}

func (j *fakeJournal) FinishRun(_ context.Context, _ int64, status runstore.RunStatus) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finished = append(j.finished, status)
	return nil
}

func (j *fakeJournal) lastStatus(index int) runstore.WindowStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	seq := j.statuses[index]
	if len(seq) == 0 {
		return ""
	}
	return seq[len(seq)-1]
}

type fixture struct {
	orchestrator *Orchestrator
	deriver      *stubDeriver
	synth        *stubSynthesizer
	aligner      *stubAligner
	visuals      *stubVisuals
	assembler    *stubAssembler
	journal      *fakeJournal
	outputDir    string
	workDir      string
	windows      []segment.Window
	source       string
}

func newFixture(t *testing.T, workers int) *fixture {
	t.Helper()
	seg, err := segment.New(1000, 100, "en")
	if err != nil {
		t.Fatalf("segment.New: %v", err)
	}
	source := testSource(30)
	windows := seg.Segment(source)
	if len(windows) < 3 {
		t.Fatalf("expected at least 3 windows, got %d", len(windows))
	}

	f := &fixture{
		deriver:   &stubDeriver{failWith: map[string]error{}},
		synth:     &stubSynthesizer{duration: 9.5},
		aligner:   &stubAligner{},
		visuals:   &stubVisuals{},
		assembler: &stubAssembler{},
		journal:   newFakeJournal(),
		outputDir: t.TempDir(),
		workDir:   t.TempDir(),
		windows:   windows,
		source:    source,
	}
	f.orchestrator, err = New(Options{
		Segmenter:   seg,
		Deriver:     f.deriver,
		Synthesizer: f.synth,
		Aligner:     f.aligner,
		Visuals:     f.visuals,
		Assembler:   f.assembler,
		OutputDir:   f.outputDir,
		WorkDir:     f.workDir,
		Workers:     workers,
		Journal:     f.journal,
		Logger:      logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestRunProcessesEveryWindowInOrder(t *testing.T) {
	f := newFixture(t, 2)

	summary, err := f.orchestrator.Run(context.Background(), f.source)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Windows != len(f.windows) || summary.Completed != len(f.windows) || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Results) != len(f.windows) {
		t.Fatalf("expected %d results, got %d", len(f.windows), len(summary.Results))
	}
	for i, result := range summary.Results {
		if result.Window.Index != i {
			t.Errorf("result %d holds window %d", i, result.Window.Index)
		}
		want := filepath.Join(f.outputDir, windowName(i)+".mp4")
		if result.OutputPath != want {
			t.Errorf("result %d output = %q, want %q", i, result.OutputPath, want)
		}
		if _, err := os.Stat(want); err != nil {
			t.Errorf("published clip missing: %v", err)
		}
	}
}

func TestRunPassesMeasuredDurationToVisuals(t *testing.T) {
	f := newFixture(t, 1)

	if _, err := f.orchestrator.Run(context.Background(), f.source); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.visuals.requests) != len(f.windows) {
		t.Fatalf("expected %d visual requests, got %d", len(f.windows), len(f.visuals.requests))
	}
	for _, req := range f.visuals.requests {
		if req.DurationSec != 9.5 {
			t.Errorf("visual request duration = %v, want 9.5", req.DurationSec)
		}
		if req.Subject != "Fox at Dawn" {
			t.Errorf("visual request subject = %q", req.Subject)
		}
		if req.AudioPath == "" {
			t.Error("visual request missing audio path")
		}
	}
}

func TestRunIsolatesWindowFailure(t *testing.T) {
	f := newFixture(t, 2)
	failedIndex := 1
	f.deriver.failWith[f.windows[failedIndex].Text] = services.Wrap(
		services.ErrSchema, "script", "parse", "no unit with narration text", nil)

	summary, err := f.orchestrator.Run(context.Background(), f.source)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 || summary.Completed != len(f.windows)-1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	failed := summary.Results[failedIndex]
	if !failed.Failed() {
		t.Fatalf("expected window %d to fail", failedIndex)
	}
	if failed.Stage != StageScript {
		t.Errorf("failed stage = %q, want %q", failed.Stage, StageScript)
	}
	if !errors.Is(failed.Err, services.ErrSchema) {
		t.Errorf("failure should carry the schema error, got %v", failed.Err)
	}
	for i, result := range summary.Results {
		if i == failedIndex {
			continue
		}
		if result.Failed() {
			t.Errorf("window %d failed unexpectedly: %v", i, result.Err)
		}
	}
	if got := f.journal.lastStatus(failedIndex); got != runstore.WindowFailed {
		t.Errorf("journal status for failed window = %q, want %q", got, runstore.WindowFailed)
	}
}

func TestRunReportsStagePerFailure(t *testing.T) {
	cases := []struct {
		name      string
		configure func(f *fixture)
		wantStage string
		wantErr   error
	}{
		{
			name:      "synthesis",
			configure: func(f *fixture) { f.synth.err = services.Wrap(services.ErrSynthesis, "synthesis", "speech", "http 500", nil) },
			wantStage: StageSynthesis,
			wantErr:   services.ErrSynthesis,
		},
		{
			name:      "captions",
			configure: func(f *fixture) { f.aligner.err = services.Wrap(services.ErrTranscriptionEmpty, "captions", "align", "no words", nil) },
			wantStage: StageCaptions,
			wantErr:   services.ErrTranscriptionEmpty,
		},
		{
			name:      "visuals",
			configure: func(f *fixture) { f.visuals.err = services.Wrap(services.ErrVisualGeneration, "visuals", "gradient", "fallback tier exhausted", nil) },
			wantStage: StageVisuals,
			wantErr:   services.ErrVisualGeneration,
		},
		{
			name:      "assemble",
			configure: func(f *fixture) { f.assembler.err = services.Wrap(services.ErrMissingInput, "assemble", "mux", "no video", nil) },
			wantStage: StageAssemble,
			wantErr:   services.ErrMissingInput,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 1)
			tc.configure(f)

			summary, err := f.orchestrator.Run(context.Background(), f.source)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if summary.Completed != 0 || summary.Failed != len(f.windows) {
				t.Fatalf("unexpected summary: %+v", summary)
			}
			for _, result := range summary.Results {
				if result.Stage != tc.wantStage {
					t.Errorf("stage = %q, want %q", result.Stage, tc.wantStage)
				}
				if !errors.Is(result.Err, tc.wantErr) {
					t.Errorf("err = %v, want %v", result.Err, tc.wantErr)
				}
			}
		})
	}
}

func TestRunJournalLifecycle(t *testing.T) {
	f := newFixture(t, 2)

	if _, err := f.orchestrator.Run(context.Background(), f.source); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.journal.created) != 1 || f.journal.created[0] != len(f.windows) {
		t.Fatalf("journal created = %v, want one run of %d windows", f.journal.created, len(f.windows))
	}
	for i := range f.windows {
		if got := f.journal.lastStatus(i); got != runstore.WindowCompleted {
			t.Errorf("window %d final status = %q, want %q", i, got, runstore.WindowCompleted)
		}
	}
	if len(f.journal.finished) != 1 || f.journal.finished[0] != runstore.RunCompleted {
		t.Fatalf("journal finished = %v, want [%q]", f.journal.finished, runstore.RunCompleted)
	}
}

func TestRunMarksRunFailedWhenNoWindowCompletes(t *testing.T) {
	f := newFixture(t, 2)
	f.synth.err = services.Wrap(services.ErrSynthesis, "synthesis", "speech", "http 500", nil)

	summary, err := f.orchestrator.Run(context.Background(), f.source)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Completed != 0 {
		t.Fatalf("expected zero completions, got %d", summary.Completed)
	}
	if len(f.journal.finished) != 1 || f.journal.finished[0] != runstore.RunFailed {
		t.Fatalf("journal finished = %v, want [%q]", f.journal.finished, runstore.RunFailed)
	}
}

func TestRunCleansWindowWorkspaces(t *testing.T) {
	f := newFixture(t, 1)
	f.deriver.failWith[f.windows[0].Text] = services.Wrap(
		services.ErrSchema, "script", "parse", "no unit with narration text", nil)

	if _, err := f.orchestrator.Run(context.Background(), f.source); err != nil {
		t.Fatalf("Run: %v", err)
	}
	entries, err := os.ReadDir(f.workDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty work dir, found %d entries", len(entries))
	}
}

func TestRunRejectsEmptySource(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.orchestrator.Run(context.Background(), "   \n\t  ")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for empty source, got %v", err)
	}
}

func TestRunAssemblesWithCaptions(t *testing.T) {
	f := newFixture(t, 1)

	if _, err := f.orchestrator.Run(context.Background(), f.source); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.assembler.inputs) != len(f.windows) {
		t.Fatalf("expected %d assembly calls, got %d", len(f.windows), len(f.assembler.inputs))
	}
	for _, in := range f.assembler.inputs {
		if in.SubtitlePath == "" {
			t.Error("assembly input missing subtitle path")
		}
		if in.VideoPath == "" || in.AudioPath == "" {
			t.Errorf("assembly input incomplete: %+v", in)
		}
	}
}

func TestNewValidatesWiring(t *testing.T) {
	seg, err := segment.New(1000, 100, "en")
	if err != nil {
		t.Fatalf("segment.New: %v", err)
	}
	valid := Options{
		Segmenter:   seg,
		Deriver:     &stubDeriver{},
		Synthesizer: &stubSynthesizer{duration: 1},
		Aligner:     &stubAligner{},
		Visuals:     &stubVisuals{},
		Assembler:   &stubAssembler{},
		OutputDir:   "/tmp/out",
		WorkDir:     "/tmp/work",
	}

	cases := []struct {
		name   string
		mutate func(o *Options)
	}{
		{"missing segmenter", func(o *Options) { o.Segmenter = nil }},
		{"missing deriver", func(o *Options) { o.Deriver = nil }},
		{"missing synthesizer", func(o *Options) { o.Synthesizer = nil }},
		{"missing aligner", func(o *Options) { o.Aligner = nil }},
		{"missing visuals", func(o *Options) { o.Visuals = nil }},
		{"missing assembler", func(o *Options) { o.Assembler = nil }},
		{"missing output dir", func(o *Options) { o.OutputDir = "" }},
		{"missing work dir", func(o *Options) { o.WorkDir = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := valid
			tc.mutate(&opts)
			if _, err := New(opts); !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}

	if _, err := New(valid); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
}
