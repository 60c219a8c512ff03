package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks invalid configuration detected before any window
	// is processed. This is the only error class that aborts a run.
	ErrConfiguration = errors.New("configuration error")
	// ErrSchema marks a script response that could not be decoded into
	// script units after both decode strategies.
	ErrSchema = errors.New("schema error")
	// ErrSynthesis marks a narration synthesis failure, carrying the upstream
	// HTTP status when one was observed.
	ErrSynthesis = errors.New("synthesis error")
	// ErrTranscriptionEmpty marks a transcription that returned no words.
	ErrTranscriptionEmpty = errors.New("transcription empty")
	// ErrVisualGeneration marks exhaustion of the visual fallback chain.
	ErrVisualGeneration = errors.New("visual generation failed")
	// ErrJobFailed marks a remote job that reached the Failed terminal state.
	ErrJobFailed = errors.New("job failed")
	// ErrJobTimeout marks a remote job still running when its deadline passed.
	ErrJobTimeout = errors.New("job timeout")
	// ErrMissingInput marks an assembler invocation whose audio or visual
	// input path does not exist.
	ErrMissingInput = errors.New("missing input")
	// ErrTransient marks failures with no more specific classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether err must abort the entire run rather than fail a
// single window.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
