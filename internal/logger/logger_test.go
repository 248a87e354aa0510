package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlogLogger_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelDebug, time.UTC).Module("classifier")

	log.Info("classification finished",
		String("modality", "photo"),
		String("label", "Red Fox"),
		Int("attempt", 1),
		Duration("elapsed", 1500*time.Millisecond))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "INFO  [classifier] classification finished"), out)
	assert.Contains(t, out, "modality=photo")
	assert.Contains(t, out, `label="Red Fox"`)
	assert.Contains(t, out, "attempt=1")
	assert.Contains(t, out, "elapsed=1.5s")
}

func TestModuleLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelWarn, time.UTC)

	log.Debug("hidden debug")
	log.Info("hidden info")
	log.Warn("visible warn")
	log.Error("visible error", Error(errors.New("boom")))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "visible error error=boom")
}

func TestModuleLogger_TraceLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelTrace, time.UTC)
	log.Trace("sql query", String("sql", "SELECT 1"))

	assert.True(t, strings.HasPrefix(buf.String(), "TRACE sql query"), buf.String())
}

func TestModuleLogger_SubModulesAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := NewSlogLogger(&buf, LogLevelInfo, time.UTC).Module("api")
	child := base.Module("identify").With(String("request_id", "abc123"))

	child.Info("request handled")
	base.Info("parent untouched")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[api.identify]")
	assert.Contains(t, lines[0], "request_id=abc123")
	assert.Contains(t, lines[1], "[api]")
	assert.NotContains(t, lines[1], "request_id")
}

func TestModuleLogger_WithContextTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, time.UTC)

	ctx := WithTraceID(context.Background(), "trace-42")
	log.WithContext(ctx).Info("with trace")
	log.WithContext(context.Background()).Info("without trace")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=trace-42")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestNewJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewJSONLogger(&buf, LogLevelInfo).Module("wikipedia")
	log.Info("summary fetched", String("title", "Red_fox"), Float64("score", 0.123456))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "summary fetched", record["msg"])
	assert.Equal(t, "wikipedia", record["module"])
	assert.Equal(t, "Red_fox", record["title"])
	assert.InDelta(t, 0.123, record["score"], 0.0001)
}

func TestNewCentralLogger_RequiresConfig(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(nil)
	require.Error(t, err)
}

func TestNewCentralLogger_InvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus_Mons"})
	require.Error(t, err)
}

func TestCentralLogger_ModuleFilesAreShared(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	upstream := filepath.Join(dir, "upstream.log")
	cfg := &LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput: &FileOutput{
			Enabled: true,
			Path:    filepath.Join(dir, "main.log"),
			Level:   "debug",
		},
		ModuleOutputs: map[string]ModuleOutput{
			"classifier": {Enabled: true, FilePath: upstream, Level: "debug"},
			"wikipedia":  {Enabled: true, FilePath: upstream, Level: "debug"},
			"api":        {Enabled: false},
		},
	}

	cl, err := NewCentralLogger(cfg)
	require.NoError(t, err)

	cl.Module("classifier").Info("classifier line")
	cl.Module("wikipedia").Info("wikipedia line")
	cl.Module("identify").Info("main line")
	require.NoError(t, cl.Close())

	upstreamData, err := os.ReadFile(upstream)
	require.NoError(t, err)
	assert.Contains(t, string(upstreamData), "classifier line")
	assert.Contains(t, string(upstreamData), "wikipedia line")
	assert.NotContains(t, string(upstreamData), "main line")

	mainData, err := os.ReadFile(filepath.Join(dir, "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(mainData), "main line")
	assert.Contains(t, string(mainData), `"time":"`)
}

func TestCentralLogger_ReopenLogFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "wildlife.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		Console:    &ConsoleOutput{Enabled: false},
		FileOutput: &FileOutput{Enabled: true, Path: path, Level: "info"},
		ModuleOutputs: map[string]ModuleOutput{
			"api":        {Enabled: false},
			"classifier": {Enabled: false},
			"wikipedia":  {Enabled: false},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cl.Close() })

	log := cl.Module("identify")
	log.Info("before rotation")

	require.NoError(t, os.Rename(path, path+".1"))
	require.NoError(t, cl.ReopenLogFiles())
	log.Info("after rotation")
	require.NoError(t, cl.Flush())

	rotated, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Contains(t, string(rotated), "before rotation")

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(current), "after rotation")
	assert.NotContains(t, string(current), "before rotation")
}

func TestApplyConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := &LoggingConfig{}
	applyConfigDefaults(cfg)

	assert.Equal(t, DefaultLogLevel, cfg.DefaultLevel)
	require.NotNil(t, cfg.Console)
	assert.True(t, cfg.Console.Enabled)
	require.NotNil(t, cfg.FileOutput)
	assert.False(t, cfg.FileOutput.Enabled)
	assert.Empty(t, cfg.ModuleOutputs)

	withFiles := &LoggingConfig{FileOutput: &FileOutput{Enabled: true, Path: "x.log"}}
	applyConfigDefaults(withFiles)
	assert.Equal(t, DefaultAccessLogPath, withFiles.ModuleOutputs["api"].FilePath)
	assert.Equal(t, DefaultUpstreamLogPath, withFiles.ModuleOutputs["classifier"].FilePath)
}

func TestGlobal_FallbackLogger(t *testing.T) {
	log := Global().Module("test")
	require.NotNil(t, log)
	log.Debug("not printed at info level")
}
