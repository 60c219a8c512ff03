// Package logging configures slog for the pipeline.
//
// Two handler formats are supported: a human-oriented console format (colored
// when the destination is a terminal) and line-delimited JSON for log files.
// Helpers mirror the slog attribute constructors so call sites stay terse, and
// WithContext lifts window/stage/correlation annotations from a context into
// the logger's attribute set.
package logging
