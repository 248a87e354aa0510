package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/app"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/buildinfo"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
)

func TestVersionCommand(t *testing.T) {
	appCtx := &app.Context{BuildInfo: buildinfo.NewContext("1.4.0", "2026-10-01", "0123456789abcdef")}
	root := RootCommand(appCtx)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())

	assert.Equal(t, "wildlife 1.4.0 (built 2026-10-01, commit 0123456789ab)\n", out.String())
	assert.Nil(t, appCtx.Settings, "version must not load configuration")
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	root := RootCommand(&app.Context{})

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "init", "--path", path})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "classifier:")
	assert.Contains(t, out.String(), path)
}

func TestSubcommandsRegistered(t *testing.T) {
	root := RootCommand(&app.Context{})

	for _, args := range [][]string{{"serve"}, {"identify"}, {"resolve"}, {"export"}, {"config", "init"}, {"config", "save"}, {"version"}} {
		name := args[len(args)-1]
		found, _, err := root.Find(args)
		require.NoError(t, err, name)
		assert.Equal(t, name, found.Name())
	}
}

func TestConfigSaveCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("WILDLIFE_DATABASE_PATH", filepath.Join(t.TempDir(), "from-env.db"))

	source := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(source, []byte("main:\n  name: FieldKit\n"), 0o600))
	target := filepath.Join(t.TempDir(), "saved.yaml")
	t.Cleanup(func() {
		conf.SetConfigFile("")
		viper.Reset()
	})

	appCtx := &app.Context{}
	root := RootCommand(appCtx)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", source, "config", "save", "--path", target})
	require.NoError(t, root.Execute())

	require.NotNil(t, appCtx.Settings)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "FieldKit")
	assert.Contains(t, string(data), "from-env.db")
	assert.Contains(t, out.String(), target)
}
