package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/datastore"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wildlife.db")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	return &conf.Settings{
		Database: conf.DatabaseSettings{
			Type:   datastore.DialectSQLite,
			SQLite: conf.SQLiteSettings{Path: path},
			MySQL: conf.MySQLSettings{
				Host:     "db.internal",
				Port:     "3306",
				Username: "wildlife",
				Password: "secret",
				Database: "wildlife",
			},
		},
	}
}

func TestResolveTargets_FallsBackToSettings(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	source, target, err := resolveTargets(settings, &options{batchSize: 100})
	require.NoError(t, err)

	assert.Equal(t, datastore.DialectSQLite, source.Type)
	assert.Equal(t, settings.Database.SQLite.Path, source.SQLite.Path)
	assert.Equal(t, datastore.DialectMySQL, target.Type)
	assert.Equal(t, settings.Database.MySQL, target.MySQL)
}

func TestResolveTargets_FlagsOverride(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	opts := &options{
		batchSize: 100,
		mysql:     conf.MySQLSettings{Host: "127.0.0.1", Port: "13306", Database: "copy"},
	}
	_, target, err := resolveTargets(settings, opts)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", target.MySQL.Host)
	assert.Equal(t, "13306", target.MySQL.Port)
	assert.Equal(t, "copy", target.MySQL.Database)
	assert.Equal(t, "wildlife", target.MySQL.Username)
}

func TestResolveTargets_Errors(t *testing.T) {
	t.Parallel()

	_, _, err := resolveTargets(nil, &options{batchSize: 100})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	tests := []struct {
		name   string
		mutate func(*conf.Settings, *options)
	}{
		{"batch too small", func(_ *conf.Settings, o *options) { o.batchSize = 0 }},
		{"batch too large", func(_ *conf.Settings, o *options) { o.batchSize = maxBatchSize + 1 }},
		{"missing sqlite file", func(_ *conf.Settings, o *options) { o.sqlitePath = "/nonexistent/wildlife.db" }},
		{"no sqlite path", func(s *conf.Settings, _ *options) { s.Database.SQLite.Path = "" }},
		{"no mysql host", func(s *conf.Settings, _ *options) { s.Database.MySQL.Host = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			settings := testSettings(t)
			opts := &options{batchSize: 100}
			tt.mutate(settings, opts)

			_, _, err := resolveTargets(settings, opts)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}
}
