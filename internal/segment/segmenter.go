package segment

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"reelsmith/internal/services"
	"reelsmith/internal/textutil"
)

// Window is a bounded slice of source text processed as one pipeline unit.
type Window struct {
	// Index is the zero-based position in narrative order.
	Index int
	Text  string
	// OverlapChars counts the leading characters carried over from the
	// previous window's tail. Zero for the first window and for windows
	// seeded without overlap.
	OverlapChars int
}

// Segmenter splits text into windows using locale-aware sentence boundaries.
type Segmenter struct {
	maxChunkSize int
	overlap      int
	// spaceless locales (CJK and Thai) end sentences at the terminator
	// itself; everywhere else a terminator must be followed by whitespace.
	spaceless bool
}

// New validates the windowing parameters and constructs a Segmenter.
// locale must be a BCP-47 tag; maxChunkSize and overlap are measured in
// bytes of the cleaned text.
func New(maxChunkSize, overlap int, locale string) (*Segmenter, error) {
	if maxChunkSize <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "segmenter", "validate",
			fmt.Sprintf("max chunk size must be positive, got %d", maxChunkSize), nil)
	}
	if overlap < 0 || overlap >= maxChunkSize {
		return nil, services.Wrap(services.ErrConfiguration, "segmenter", "validate",
			fmt.Sprintf("overlap %d must satisfy 0 <= overlap < %d", overlap, maxChunkSize), nil)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "segmenter", "validate",
			fmt.Sprintf("invalid locale %q", locale), err)
	}
	base, _ := tag.Base()
	spaceless := false
	switch base.String() {
	case "zh", "ja", "th":
		spaceless = true
	}
	return &Segmenter{maxChunkSize: maxChunkSize, overlap: overlap, spaceless: spaceless}, nil
}

// Segment cleans text and splits it into ordered windows. Whitespace-only
// input yields an empty slice. A single sentence longer than the chunk size
// is emitted whole rather than truncated; such a window is the only case
// allowed to exceed maxChunkSize.
func (s *Segmenter) Segment(text string) []Window {
	cleaned := textutil.CollapseWhitespace(text)
	if cleaned == "" {
		return nil
	}

	var (
		windows  []Window
		cur      string
		curSeed  int
		appended bool // content added since the last reseed
	)

	emit := func(text string, overlap int) string {
		windows = append(windows, Window{Index: len(windows), Text: text, OverlapChars: overlap})
		return text
	}

	reseed := func(closed, next string) {
		cur, curSeed = "", 0
		appended = false
		if s.overlap == 0 || len(closed) <= s.overlap {
			return
		}
		tail := closed[len(closed)-s.overlap:]
		// A seed that cannot coexist with the next sentence inside the
		// limit is dropped; only single oversized sentences may exceed it.
		if len(next) <= s.maxChunkSize && len(tail)+1+len(next) > s.maxChunkSize {
			return
		}
		cur, curSeed = tail, len(tail)
	}

	for _, sentence := range s.splitSentences(cleaned) {
		if len(sentence) > s.maxChunkSize {
			if appended {
				emit(cur, curSeed)
			}
			closed := emit(sentence, 0)
			reseed(closed, "")
			continue
		}

		if cur != "" && len(cur)+1+len(sentence) > s.maxChunkSize {
			if appended {
				closed := emit(cur, curSeed)
				reseed(closed, sentence)
			} else {
				// Bare seed too large for this sentence; drop it.
				cur, curSeed = "", 0
			}
		}

		if cur == "" {
			cur = sentence
		} else {
			cur += " " + sentence
		}
		appended = true
	}

	if appended && cur != "" {
		emit(cur, curSeed)
	}
	return windows
}

// terminators that end a sentence. Full-width forms cover CJK text.
var sentenceTerminators = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, // 。
	'！': true, // ！
	'？': true, // ？
}

// closers may trail a terminator and still belong to the sentence.
var sentenceClosers = map[rune]bool{
	'"': true, '\'': true, ')': true, ']': true,
	'”': true, '’': true, '」': true, '）': true,
}

func (s *Segmenter) splitSentences(text string) []string {
	runes := []rune(text)
	sentences := make([]string, 0, 16)
	start := 0

	for i := 0; i < len(runes); i++ {
		if !sentenceTerminators[runes[i]] {
			continue
		}
		end := i + 1
		for end < len(runes) && sentenceClosers[runes[end]] {
			end++
		}
		boundary := end >= len(runes) || s.spaceless || runes[end] == ' '
		if !boundary {
			continue
		}
		sentence := strings.TrimSpace(string(runes[start:end]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		i = end
		start = end
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
