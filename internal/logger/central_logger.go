package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	// Embedded timezone database so LoadLocation works in minimal containers
	_ "time/tzdata"
)

// traceLevelValue sits below slog.LevelDebug (-4)
const traceLevelValue = slog.Level(-8)

var (
	globalMu     sync.Mutex
	globalLogger *CentralLogger
)

// SetGlobal installs cl as the process logger. The root command calls it
// once the configuration is loaded.
func SetGlobal(cl *CentralLogger) {
	globalMu.Lock()
	globalLogger = cl
	globalMu.Unlock()
}

// Global returns the process logger. Before SetGlobal it is an info-level
// console logger, so packages can log during startup and in tests.
func Global() *CentralLogger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalLogger == nil {
		globalLogger = &CentralLogger{
			config:       &LoggingConfig{DefaultLevel: DefaultLogLevel},
			timezone:     time.Local,
			base:         newTextHandler(os.Stdout, slog.LevelInfo, time.Local),
			routes:       map[string]route{},
			writers:      map[string]*fileWriter{},
			moduleLevels: map[string]slog.Level{},
		}
	}
	return globalLogger
}

type contextKey string

// TraceIDKey is the context key WithTraceID stores the request ID under.
const TraceIDKey contextKey = "trace_id"

// WithTraceID returns ctx carrying traceID. Loggers derived with
// WithContext add it as the trace_id field.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func traceIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(TraceIDKey).(string)
	return id
}

// route is a module with a dedicated output.
type route struct {
	handler slog.Handler
	level   slog.Level
}

// CentralLogger hands out module loggers. Modules without a dedicated output
// share the base handler (console text, and the main JSON file when enabled).
type CentralLogger struct {
	config       *LoggingConfig
	timezone     *time.Location
	base         slog.Handler
	routes       map[string]route
	writers      map[string]*fileWriter // keyed by path; modules may share a file
	moduleLevels map[string]slog.Level
	mu           sync.RWMutex
}

// NewCentralLogger opens every configured log file and builds the handlers.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	tz := time.Local
	if cfg.Timezone != "" && cfg.Timezone != "Local" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", cfg.Timezone, err)
		}
		tz = loc
	}

	cl := &CentralLogger{
		config:       cfg,
		timezone:     tz,
		routes:       map[string]route{},
		writers:      map[string]*fileWriter{},
		moduleLevels: map[string]slog.Level{},
	}
	for module, level := range cfg.ModuleLevels {
		cl.moduleLevels[module] = parseLogLevel(level)
	}

	if err := cl.build(); err != nil {
		_ = cl.closeWriters()
		return nil, err
	}
	return cl, nil
}

func (cl *CentralLogger) build() error {
	var base []slog.Handler
	if cl.config.Console.Enabled {
		base = append(base, newTextHandler(os.Stdout, parseLogLevel(cl.config.Console.Level), cl.timezone))
	}
	if out := cl.config.FileOutput; out.Enabled {
		w, err := cl.writerFor(out.Path)
		if err != nil {
			return fmt.Errorf("failed to create base handler: %w", err)
		}
		base = append(base, cl.jsonHandler(w, parseLogLevel(out.Level)))
	}
	if len(base) == 0 {
		base = append(base, newTextHandler(os.Stdout, parseLogLevel(cl.config.DefaultLevel), cl.timezone))
	}
	cl.base = combine(base)

	for module, out := range cl.config.ModuleOutputs {
		if !out.Enabled || out.FilePath == "" {
			continue
		}
		level := cl.levelFor(module)
		if out.Level != "" {
			level = parseLogLevel(out.Level)
		}
		w, err := cl.writerFor(out.FilePath)
		if err != nil {
			return fmt.Errorf("failed to create log writer for module %s: %w", module, err)
		}
		handlers := []slog.Handler{cl.jsonHandler(w, level)}
		if out.ConsoleAlso && cl.config.Console.Enabled {
			handlers = append(handlers, newTextHandler(os.Stdout, level, cl.timezone))
		}
		cl.routes[module] = route{handler: combine(handlers), level: level}
	}
	return nil
}

func combine(handlers []slog.Handler) slog.Handler {
	if len(handlers) == 1 {
		return handlers[0]
	}
	return newMultiWriterHandler(handlers...)
}

func (cl *CentralLogger) writerFor(path string) (*fileWriter, error) {
	if w, ok := cl.writers[path]; ok {
		return w, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	w, err := newFileWriter(path)
	if err != nil {
		return nil, err
	}
	cl.writers[path] = w
	return w, nil
}

func (cl *CentralLogger) levelFor(module string) slog.Level {
	if level, ok := cl.moduleLevels[module]; ok {
		return level
	}
	return parseLogLevel(cl.config.DefaultLevel)
}

// Module returns a logger tagged with module=name.
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	if r, ok := cl.routes[name]; ok {
		return &moduleLogger{module: name, logger: slog.New(r.handler), level: r.level}
	}
	return &moduleLogger{module: name, logger: slog.New(cl.base), level: cl.levelFor(name)}
}

// Flush writes out buffered file output.
func (cl *CentralLogger) Flush() error {
	return cl.eachWriter("flush", (*fileWriter).Flush)
}

// ReopenLogFiles reopens every log file after an external rotation.
func (cl *CentralLogger) ReopenLogFiles() error {
	return cl.eachWriter("reopen", (*fileWriter).Reopen)
}

// Close flushes and closes every log file.
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.closeWriters()
}

func (cl *CentralLogger) eachWriter(op string, fn func(*fileWriter) error) error {
	if cl == nil {
		return nil
	}
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	var errs []error
	for path, w := range cl.writers {
		if err := fn(w); err != nil {
			errs = append(errs, fmt.Errorf("failed to %s log file %s: %w", op, path, err))
		}
	}
	return errors.Join(errs...)
}

func (cl *CentralLogger) closeWriters() error {
	var errs []error
	for path, w := range cl.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log file %s: %w", path, err))
		}
	}
	cl.writers = map[string]*fileWriter{}
	return errors.Join(errs...)
}

// jsonHandler writes RFC 3339 timestamps in the configured timezone and
// names the trace level.
func (cl *CentralLogger) jsonHandler(w *fileWriter, level slog.Level) slog.Handler {
	tz := cl.timezone
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String(slog.TimeKey, a.Value.Time().In(tz).Format(time.RFC3339))
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= traceLevelValue {
					return slog.String(slog.LevelKey, "TRACE")
				}
			}
			return a
		},
	})
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "trace":
		return traceLevelValue
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
