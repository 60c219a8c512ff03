package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

type consoleHandler struct {
	mu     sync.Mutex
	writer io.Writer
	level  *slog.LevelVar
	attrs  []slog.Attr
	color  bool
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar) slog.Handler {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &consoleHandler{writer: w, level: lvl, color: color}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var buf bytes.Buffer
	buf.Grow(160)

	if h.color {
		buf.WriteString(ansiDim)
	}
	buf.WriteString(timestamp.Format("15:04:05"))
	if h.color {
		buf.WriteString(ansiReset)
	}
	buf.WriteByte(' ')
	buf.WriteString(h.levelTag(record.Level))
	buf.WriteByte(' ')

	component, prefixed := h.partitionAttrs(record)
	if component != "" {
		if h.color {
			buf.WriteString(ansiCyan)
		}
		buf.WriteByte('[')
		buf.WriteString(component)
		buf.WriteByte(']')
		if h.color {
			buf.WriteString(ansiReset)
		}
		buf.WriteByte(' ')
	}

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}
	buf.WriteString(message)

	for _, attr := range prefixed {
		buf.WriteByte(' ')
		if h.color {
			buf.WriteString(ansiDim)
		}
		buf.WriteString(attr.Key)
		buf.WriteByte('=')
		buf.WriteString(attr.Value.String())
		if h.color {
			buf.WriteString(ansiReset)
		}
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) partitionAttrs(record slog.Record) (string, []slog.Attr) {
	component := ""
	out := make([]slog.Attr, 0, record.NumAttrs()+len(h.attrs))
	consume := func(attr slog.Attr) {
		if attr.Key == FieldComponent {
			if component == "" {
				component = attr.Value.String()
			}
			return
		}
		out = append(out, attr)
	}
	for _, attr := range h.attrs {
		consume(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		consume(attr)
		return true
	})
	return component, out
}

func (h *consoleHandler) levelTag(level slog.Level) string {
	tag := strings.ToUpper(level.String())
	if len(tag) > 4 {
		tag = tag[:4]
	}
	if !h.color {
		return tag
	}
	switch {
	case level >= slog.LevelError:
		return ansiRed + tag + ansiReset
	case level >= slog.LevelWarn:
		return ansiYellow + tag + ansiReset
	case level < slog.LevelInfo:
		return ansiDim + tag + ansiReset
	default:
		return tag
	}
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := &consoleHandler{
		writer: h.writer,
		level:  h.level,
		color:  h.color,
		attrs:  append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
	return clone
}

func (h *consoleHandler) WithGroup(string) slog.Handler { return h }

// fanoutHandler duplicates records to every wrapped handler.
type fanoutHandler []slog.Handler

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
