package main

import (
	"context"
	"testing"

	"reelsmith/internal/runstore"
)

func TestRunsEmptyJournal(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "No runs recorded yet")
}

func TestRunsListsAndShowsRecordedRuns(t *testing.T) {
	env := setupCLITestEnv(t)

	store, err := runstore.Open(env.logDir)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	ctx := context.Background()
	run, err := store.CreateRun(ctx, 2500, 3, env.outputDir)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := store.UpdateWindow(ctx, run.ID, 0, runstore.WindowCompleted, "assemble", "/tmp/window_000.mp4", ""); err != nil {
		t.Fatalf("update window: %v", err)
	}
	if err := store.UpdateWindow(ctx, run.ID, 1, runstore.WindowFailed, "script", "", "schema error: no unit"); err != nil {
		t.Fatalf("update window: %v", err)
	}
	if err := store.FinishRun(ctx, run.ID, runstore.RunCompleted); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	out, _, err := runCLI(t, env, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "completed")
	requireContains(t, out, env.outputDir)

	out, _, err = runCLI(t, env, "runs", "show", "1")
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	requireContains(t, out, "window_000.mp4")
	requireContains(t, out, "schema error: no unit")
	requireContains(t, out, "pending")
}
