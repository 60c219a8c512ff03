// Package captions regroups word-level transcription timestamps into
// display-timed caption lines and renders them as SRT.
package captions

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

// DefaultMaxWordsPerLine caps caption line length when no override is set.
const DefaultMaxWordsPerLine = 7

// Word is one transcribed word with millisecond timestamps.
type Word struct {
	Text    string
	StartMs int
	EndMs   int
}

// Line is a display-timed caption line. Start is always strictly before end
// and lines never overlap.
type Line struct {
	StartMs int
	EndMs   int
	Text    string
}

// Transcriber produces word-level timestamps for an audio file. Satisfied by
// the assemblyai client.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]Word, error)
}

// Aligner converts narration audio into ordered caption lines.
type Aligner struct {
	transcriber     Transcriber
	maxWordsPerLine int
	logger          *slog.Logger
}

// NewAligner constructs an Aligner. maxWordsPerLine values below 1 fall back
// to the default.
func NewAligner(transcriber Transcriber, maxWordsPerLine int, logger *slog.Logger) *Aligner {
	if maxWordsPerLine < 1 {
		maxWordsPerLine = DefaultMaxWordsPerLine
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Aligner{transcriber: transcriber, maxWordsPerLine: maxWordsPerLine, logger: logger}
}

// Align transcribes the audio and regroups the words into caption lines.
// A transcript with no words fails with a transcription-empty error.
func (a *Aligner) Align(ctx context.Context, audioPath string) ([]Line, error) {
	words, err := a.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, services.Wrap(services.ErrTranscriptionEmpty, "captions", "align",
			"transcript contains no words for "+audioPath, nil)
	}
	lines := Regroup(words, a.maxWordsPerLine)
	if len(lines) == 0 {
		return nil, services.Wrap(services.ErrTranscriptionEmpty, "captions", "align",
			"no caption line with resolvable timestamps for "+audioPath, nil)
	}
	a.logger.Debug("captions aligned",
		logging.Int("words", len(words)),
		logging.Int("lines", len(lines)))
	return lines, nil
}

// Regroup accumulates words into lines, closing a line once it holds
// maxWordsPerLine words or the current word ends with sentence-terminal
// punctuation, whichever comes first. Lines whose timestamps do not resolve
// to a positive span are dropped, and overlapping starts are clamped so the
// output is strictly ordered.
func Regroup(words []Word, maxWordsPerLine int) []Line {
	if maxWordsPerLine < 1 {
		maxWordsPerLine = DefaultMaxWordsPerLine
	}

	var lines []Line
	var current []Word
	flush := func() {
		if line, ok := buildLine(current); ok {
			lines = append(lines, line)
		}
		current = current[:0]
	}

	for _, word := range words {
		if strings.TrimSpace(word.Text) == "" {
			continue
		}
		current = append(current, word)
		if len(current) >= maxWordsPerLine || endsSentence(word.Text) {
			flush()
		}
	}
	flush()

	return clampOrdering(lines)
}

func buildLine(words []Word) (Line, bool) {
	if len(words) == 0 {
		return Line{}, false
	}
	start := words[0].StartMs
	end := words[len(words)-1].EndMs
	if end <= start {
		return Line{}, false
	}
	texts := make([]string, 0, len(words))
	for _, word := range words {
		texts = append(texts, strings.TrimSpace(word.Text))
	}
	return Line{StartMs: start, EndMs: end, Text: strings.Join(texts, " ")}, true
}

func endsSentence(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasSuffix(trimmed, ".") ||
		strings.HasSuffix(trimmed, "!") ||
		strings.HasSuffix(trimmed, "?")
}

func clampOrdering(lines []Line) []Line {
	out := lines[:0]
	prevEnd := -1
	for _, line := range lines {
		if line.StartMs < prevEnd {
			line.StartMs = prevEnd
		}
		if line.EndMs <= line.StartMs {
			continue
		}
		out = append(out, line)
		prevEnd = line.EndMs
	}
	return out
}

// WriteSRT renders the caption lines to path in SubRip format.
func WriteSRT(lines []Line, path string) error {
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, formatTimestamp(line.StartMs), formatTimestamp(line.EndMs), line.Text)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "captions", "write srt", path, err)
	}
	return nil
}

func formatTimestamp(ms int) string {
	seconds, millis := ms/1000, ms%1000
	minutes, seconds := seconds/60, seconds%60
	hours, minutes := minutes/60, minutes%60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
