package captions

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/services"
)

func word(text string, start, end int) Word {
	return Word{Text: text, StartMs: start, EndMs: end}
}

func TestRegroupClosesLineAtWordLimit(t *testing.T) {
	words := make([]Word, 0, 10)
	for i := 0; i < 10; i++ {
		words = append(words, word("w", i*100, i*100+80))
	}

	lines := Regroup(words, 7)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if got := strings.Count(lines[0].Text, "w"); got != 7 {
		t.Fatalf("expected 7 words in first line, got %d", got)
	}
	if got := strings.Count(lines[1].Text, "w"); got != 3 {
		t.Fatalf("expected 3 words in second line, got %d", got)
	}
	if lines[0].StartMs != 0 || lines[0].EndMs != 680 {
		t.Fatalf("unexpected first line span %d-%d", lines[0].StartMs, lines[0].EndMs)
	}
}

func TestRegroupClosesLineAtSentencePunctuation(t *testing.T) {
	words := []Word{
		word("Hello", 0, 200),
		word("world.", 250, 500),
		word("Next", 600, 800),
		word("line!", 850, 1100),
		word("And", 1200, 1300),
		word("more?", 1350, 1500),
	}

	lines := Regroup(words, 7)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0].Text != "Hello world." {
		t.Fatalf("unexpected first line %q", lines[0].Text)
	}
	if lines[1].Text != "Next line!" {
		t.Fatalf("unexpected second line %q", lines[1].Text)
	}
	if lines[2].Text != "And more?" {
		t.Fatalf("unexpected third line %q", lines[2].Text)
	}
}

func TestRegroupDropsLinesWithoutTimestamps(t *testing.T) {
	words := []Word{
		word("good.", 0, 400),
		// No resolvable span: end does not advance past start.
		word("bad.", 0, 0),
		word("again.", 500, 900),
	}

	lines := Regroup(words, 7)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Text != "good." || lines[1].Text != "again." {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestRegroupOutputIsStrictlyOrdered(t *testing.T) {
	words := []Word{
		word("one.", 0, 600),
		// Overlaps the previous line's end.
		word("two.", 400, 900),
		word("three.", 900, 1400),
	}

	lines := Regroup(words, 7)
	prevEnd := -1
	prevStart := -1
	for _, line := range lines {
		if line.StartMs >= line.EndMs {
			t.Fatalf("line %q violates start < end", line.Text)
		}
		if line.StartMs < prevEnd {
			t.Fatalf("line %q overlaps previous line", line.Text)
		}
		if line.StartMs < prevStart {
			t.Fatalf("line %q starts before previous line", line.Text)
		}
		prevEnd = line.EndMs
		prevStart = line.StartMs
	}
}

func TestRegroupSkipsBlankWords(t *testing.T) {
	words := []Word{
		word("  ", 0, 100),
		word("real.", 100, 400),
	}
	lines := Regroup(words, 7)
	if len(lines) != 1 || lines[0].Text != "real." {
		t.Fatalf("unexpected lines %v", lines)
	}
}

type stubTranscriber struct {
	words []Word
	err   error
}

func (s *stubTranscriber) Transcribe(context.Context, string) ([]Word, error) {
	return s.words, s.err
}

func TestAlignEmptyTranscript(t *testing.T) {
	aligner := NewAligner(&stubTranscriber{}, 7, nil)
	_, err := aligner.Align(context.Background(), "/tmp/a.mp3")
	if !errors.Is(err, services.ErrTranscriptionEmpty) {
		t.Fatalf("expected transcription-empty error, got %v", err)
	}
}

func TestAlignPropagatesTranscriberError(t *testing.T) {
	wrapped := services.Wrap(services.ErrJobTimeout, "transcription", "await", "deadline", nil)
	aligner := NewAligner(&stubTranscriber{err: wrapped}, 7, nil)
	_, err := aligner.Align(context.Background(), "/tmp/a.mp3")
	if !errors.Is(err, services.ErrJobTimeout) {
		t.Fatalf("expected job timeout, got %v", err)
	}
}

func TestAlignRegroups(t *testing.T) {
	aligner := NewAligner(&stubTranscriber{words: []Word{
		word("Hello", 0, 300),
		word("there.", 350, 700),
	}}, 7, nil)
	lines, err := aligner.Align(context.Background(), "/tmp/a.mp3")
	if err != nil {
		t.Fatalf("Align returned error: %v", err)
	}
	if len(lines) != 1 || lines[0].Text != "Hello there." {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestWriteSRT(t *testing.T) {
	lines := []Line{
		{StartMs: 0, EndMs: 1500, Text: "Hello there."},
		{StartMs: 61_250, EndMs: 3_599_999, Text: "Goodbye."},
	}
	path := filepath.Join(t.TempDir(), "captions.srt")
	if err := WriteSRT(lines, path); err != nil {
		t.Fatalf("WriteSRT returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	content := string(data)
	want := []string{
		"1\n00:00:00,000 --> 00:00:01,500\nHello there.\n",
		"2\n00:01:01,250 --> 00:59:59,999\nGoodbye.\n",
	}
	for _, fragment := range want {
		if !strings.Contains(content, fragment) {
			t.Fatalf("srt missing fragment %q in:\n%s", fragment, content)
		}
	}
}
