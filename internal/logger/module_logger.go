package logger

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"time"
)

// moduleLogger is the Logger handed out by CentralLogger.Module and the
// standalone constructors. Fields added with With are converted once and
// carried as slog attributes.
type moduleLogger struct {
	module string
	logger *slog.Logger
	level  slog.Level
	attrs  []slog.Attr
}

func (m *moduleLogger) derive(module string, extra []slog.Attr) *moduleLogger {
	return &moduleLogger{
		module: module,
		logger: m.logger,
		level:  m.level,
		attrs:  slices.Concat(m.attrs, extra),
	}
}

// Module returns a child logger named parent.name.
func (m *moduleLogger) Module(name string) Logger {
	if m == nil {
		return nil
	}
	if m.module != "" {
		name = m.module + "." + name
	}
	return m.derive(name, nil)
}

func (m *moduleLogger) Trace(msg string, fields ...Field) { m.emit(traceLevelValue, msg, fields) }
func (m *moduleLogger) Debug(msg string, fields ...Field) { m.emit(slog.LevelDebug, msg, fields) }
func (m *moduleLogger) Info(msg string, fields ...Field)  { m.emit(slog.LevelInfo, msg, fields) }
func (m *moduleLogger) Warn(msg string, fields ...Field)  { m.emit(slog.LevelWarn, msg, fields) }
func (m *moduleLogger) Error(msg string, fields ...Field) { m.emit(slog.LevelError, msg, fields) }

func (m *moduleLogger) Log(level LogLevel, msg string, fields ...Field) {
	m.emit(parseSlogLevel(level), msg, fields)
}

func (m *moduleLogger) With(fields ...Field) Logger {
	if m == nil {
		return nil
	}
	return m.derive(m.module, toAttrs(fields))
}

// WithContext adds the trace ID stored by WithTraceID, if any.
func (m *moduleLogger) WithContext(ctx context.Context) Logger {
	if m == nil {
		return nil
	}
	id := traceIDFrom(ctx)
	if id == "" {
		return m
	}
	return m.derive(m.module, []slog.Attr{slog.String(traceIDKey, id)})
}

// Flush is a no-op; files belong to the CentralLogger.
func (m *moduleLogger) Flush() error { return nil }

func (m *moduleLogger) emit(level slog.Level, msg string, fields []Field) {
	if m == nil || level < m.level {
		return
	}
	attrs := make([]slog.Attr, 0, 1+len(m.attrs)+len(fields))
	if m.module != "" {
		attrs = append(attrs, slog.String(moduleKey, m.module))
	}
	attrs = append(attrs, m.attrs...)
	for _, f := range fields {
		attrs = append(attrs, fieldToAttr(f))
	}
	m.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func toAttrs(fields []Field) []slog.Attr {
	attrs := make([]slog.Attr, len(fields))
	for i, f := range fields {
		attrs[i] = fieldToAttr(f)
	}
	return attrs
}

func fieldToAttr(f Field) slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case uint64:
		return slog.Uint64(f.Key, v)
	case bool:
		return slog.Bool(f.Key, v)
	case float64:
		return slog.Float64(f.Key, math.Round(v*1000)/1000)
	case time.Duration:
		return slog.String(f.Key, v.String())
	case time.Time:
		return slog.Time(f.Key, v)
	default:
		return slog.Any(f.Key, v)
	}
}
