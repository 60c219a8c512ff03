package runstore

import "time"

// RunStatus represents the lifecycle of a pipeline run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// WindowStatus represents the lifecycle of one window within a run.
type WindowStatus string

const (
	WindowPending      WindowStatus = "pending"
	WindowDeriving     WindowStatus = "deriving"
	WindowSynthesizing WindowStatus = "synthesizing"
	WindowRendering    WindowStatus = "rendering"
	WindowAssembling   WindowStatus = "assembling"
	WindowCompleted    WindowStatus = "completed"
	WindowFailed       WindowStatus = "failed"
)

// Run is one pipeline invocation persisted in the journal.
type Run struct {
	ID          int64
	Status      RunStatus
	SourceChars int
	WindowCount int
	OutputDir   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Window is one window's journal row.
type Window struct {
	RunID      int64
	Index      int
	Status     WindowStatus
	Stage      string
	OutputPath string
	Error      string
	UpdatedAt  time.Time
}
