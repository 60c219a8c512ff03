// Package services defines cross-cutting conventions for the external
// collaborators the pipeline depends on: the error taxonomy used to classify
// stage failures, and context annotation helpers that carry window and
// correlation identifiers into structured logs.
//
// Every remote-call error that crosses a stage boundary is tagged with one of
// the exported sentinel errors so the orchestrator can record which stage
// failed and whether the run as a whole must abort (configuration errors
// only).
package services
