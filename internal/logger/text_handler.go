package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	moduleKey  = "module"
	traceIDKey = "trace_id"

	// level column width; TRACE and ERROR are the longest
	maxLevelWidth = 5
)

// textHandler renders records as
//
//	INFO  [classifier] classification finished modality=photo elapsed=1.2s
//
// Timestamps are left to the process supervisor.
type textHandler struct {
	mu       *sync.Mutex
	w        io.Writer
	level    slog.Leveler
	timezone *time.Location
	attrs    []slog.Attr
	group    string
}

func newTextHandler(w io.Writer, level slog.Level, tz *time.Location) slog.Handler {
	if w == nil {
		w = os.Stdout
	}
	if tz == nil {
		tz = time.Local
	}
	return &textHandler{
		mu:       &sync.Mutex{},
		w:        w,
		level:    level,
		timezone: tz,
	}
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

//nolint:gocritic // slog.Handler interface requires record by value
func (h *textHandler) Handle(_ context.Context, record slog.Record) error {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%-*s", maxLevelWidth, levelName(record.Level)))

	var module string
	var rest []slog.Attr
	collect := func(a slog.Attr) bool {
		if a.Key == moduleKey && h.group == "" {
			module = a.Value.String()
			return true
		}
		rest = append(rest, a)
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	record.Attrs(collect)

	if module != "" {
		buf.WriteString(" [")
		buf.WriteString(module)
		buf.WriteByte(']')
	}
	buf.WriteByte(' ')
	buf.WriteString(record.Message)

	for _, a := range rest {
		h.appendAttr(&buf, a)
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *textHandler) appendAttr(buf *bytes.Buffer, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	buf.WriteByte(' ')
	buf.WriteString(key)
	buf.WriteByte('=')

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindTime:
		buf.WriteString(v.Time().In(h.timezone).Format(time.RFC3339))
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\"=") {
			buf.WriteString(strconv.Quote(s))
		} else {
			buf.WriteString(s)
		}
	default:
		buf.WriteString(v.String())
	}
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = slices.Concat(h.attrs, attrs)
	return &clone
}

func (h *textHandler) WithGroup(name string) slog.Handler {
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func levelName(level slog.Level) string {
	if level <= traceLevelValue {
		return "TRACE"
	}
	return level.String()
}

// parseSlogLevel converts a LogLevel to its slog.Level
func parseSlogLevel(level LogLevel) slog.Level {
	return parseLogLevel(string(level))
}

// NewSlogLogger creates a standalone Logger writing text to w.
// A nil writer means stdout and a nil timezone means local time.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	slogLevel := parseSlogLevel(level)
	return &moduleLogger{
		logger: slog.New(newTextHandler(w, slogLevel, tz)),
		level:  slogLevel,
	}
}

// NewJSONLogger creates a standalone Logger writing JSON records to w.
func NewJSONLogger(w io.Writer, level LogLevel) Logger {
	if w == nil {
		w = os.Stdout
	}
	slogLevel := parseSlogLevel(level)
	return &moduleLogger{
		logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel})),
		level:  slogLevel,
	}
}
