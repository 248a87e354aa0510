package app

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/buildinfo"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/classifier"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
)

const llmURL = "https://llm.test/v1"

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	return &conf.Settings{
		Main: conf.MainSettings{Name: "WildlifeExplorer", Contact: "contact: ios-app"},
		Classifier: conf.ClassifierSettings{
			APIKey:     "sk-test-0123456789abcdef",
			BaseURL:    llmURL,
			PhotoModel: "photo-model",
			AudioModel: "audio-model",
			Timeout:    2 * time.Second,
		},
		Wikipedia: conf.WikipediaSettings{
			BaseURL:   "https://wiki.test",
			Timeout:   time.Second,
			RateLimit: 100,
		},
		Animals: conf.AnimalsSettings{TextModel: "text-model", CacheTTL: time.Minute},
		Database: conf.DatabaseSettings{
			Type:   "sqlite",
			SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "app.db")},
		},
	}
}

func TestNewServices_RequiresSettings(t *testing.T) {
	t.Parallel()

	_, err := NewServices(nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	_, err = NewServices(&Context{})
	require.Error(t, err)
}

func TestNewServices_InvalidDatabase(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	settings.Database.Type = "postgres"

	_, err := NewServices(&Context{Settings: settings})
	require.Error(t, err)
}

func TestNewServices_WiresPipeline(t *testing.T) {
	t.Parallel()

	services, err := NewServices(&Context{
		Settings:  testSettings(t),
		BuildInfo: buildinfo.NewContext("1.4.0", "2026-10-01", "deadbeef"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, services.Close()) })

	assert.Contains(t, services.Resolver.UserAgent(), "WildlifeExplorer/1.4.0 (contact: ios-app)")
	assert.Equal(t, len(conf.DefaultAnimalNames), services.Suggester.Len())

	deps := services.APIDependencies()
	assert.NotNil(t, deps.Identifier)
	assert.NotNil(t, deps.Species)
	assert.NotNil(t, deps.Sightings)
	assert.NotNil(t, deps.Database)

	// The sentinel short-circuits before the encyclopedia and the registry
	transport := httpmock.NewMockTransport()
	services.HTTPClient.StandardClient().Transport = transport
	transport.RegisterResponder(http.MethodPost, llmURL+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "WildlifeExplorer/1.4.0 (contact: ios-app)", req.Header.Get("User-Agent"))
			return httpmock.NewStringResponse(http.StatusOK,
				`{"choices":[{"message":{"role":"assistant","content":"IDENTIFICATION FAILED"}}]}`), nil
		})

	out, err := services.Identify.Identify(t.Context(), classifier.Request{
		Modality: classifier.ModalityPhoto,
		Image:    []byte{0xFF, 0xD8, 0xFF, 0xE0},
	})
	require.NoError(t, err)
	assert.True(t, out.Failed())
	assert.Nil(t, out.SpeciesID)
	assert.Equal(t, 1, transport.GetTotalCallCount())

	count, err := services.Store.Species().Count(t.Context())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestServicesClose_Nil(t *testing.T) {
	t.Parallel()

	var s *Services
	assert.NoError(t, s.Close())
}
