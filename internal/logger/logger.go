// Package logger is the structured logging layer over log/slog.
//
// Components log through a module logger with typed fields:
//
//	log := logger.Global().Module("wikipedia")
//	log.Debug("summary fetched", logger.String("title", title), logger.Int("status", code))
//
// Module names nest with a dot: Module("api").Module("identify") logs as
// module=api.identify. The console gets text without timestamps and files
// get JSON with RFC 3339 timestamps. LoggingConfig routes modules to their
// own files and levels.
//
// Tests use NewSlogLogger with a bytes.Buffer or io.Discard.
package logger

import (
	"context"
	"time"
)

// LogLevel is a level name as written in the configuration.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Logger is what components depend on.
type Logger interface {
	Module(name string) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Log(level LogLevel, msg string, fields ...Field)

	With(fields ...Field) Logger
	// WithContext picks up the trace ID set by WithTraceID
	WithContext(ctx context.Context) Logger

	Flush() error
}

// Field is a key and a value. Build fields with the constructors below.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field         { return Field{key, value} }
func Int(key string, value int) Field        { return Field{key, value} }
func Int64(key string, value int64) Field    { return Field{key, value} }
func Uint64(key string, value uint64) Field  { return Field{key, value} }
func Bool(key string, value bool) Field      { return Field{key, value} }
func Time(key string, value time.Time) Field { return Field{key, value} }
func Any(key string, value any) Field        { return Field{key, value} }

// Float64 values are rounded to three decimals when written.
func Float64(key string, value float64) Field { return Field{key, value} }

// Duration values are written as strings such as "1.5s".
func Duration(key string, value time.Duration) Field { return Field{key, value} }

// Error always uses the key "error". A nil err logs a null value.
func Error(err error) Field {
	if err == nil {
		return Field{"error", nil}
	}
	return Field{"error", err.Error()}
}
