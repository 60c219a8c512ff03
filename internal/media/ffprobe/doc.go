// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no pipeline-specific dependencies and could be extracted
// as a standalone library.
//
// Key types:
//   - Inspector: runs ffprobe with an injectable command runner
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, format name)
//
// Primary entry points:
//   - Inspector.Inspect: executes ffprobe and returns a parsed Result
//   - Inspector.DurationSeconds: measures playback length of a file
package ffprobe
