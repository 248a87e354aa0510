package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/animals"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/classifier"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/datastore"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/identify"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/wikipedia"
)

type mockIdentifier struct{ mock.Mock }

func (m *mockIdentifier) Identify(ctx context.Context, req classifier.Request) (*identify.Outcome, error) {
	args := m.Called(ctx, req)
	outcome, _ := args.Get(0).(*identify.Outcome)
	return outcome, args.Error(1)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) Resolve(ctx context.Context, name string) (wikipedia.Enrichment, error) {
	args := m.Called(ctx, name)
	e, _ := args.Get(0).(wikipedia.Enrichment)
	return e, args.Error(1)
}

type mockValidator struct{ mock.Mock }

func (m *mockValidator) Validate(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

// testEnv is a controller over mocked pipeline services and a real SQLite store.
type testEnv struct {
	echo       *echo.Echo
	controller *Controller
	store      *datastore.Store
	identifier *mockIdentifier
	resolver   *mockResolver
	validator  *mockValidator
}

func getTestSettings() *conf.Settings {
	return &conf.Settings{
		WebServer: conf.WebServerSettings{
			Listen:    ":0",
			BodyLimit: "2M",
		},
	}
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	store, err := datastore.Open(&conf.DatabaseSettings{
		Type:   datastore.DialectSQLite,
		SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "api.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	env := &testEnv{
		echo:       echo.New(),
		store:      store,
		identifier: &mockIdentifier{},
		resolver:   &mockResolver{},
		validator:  &mockValidator{},
	}

	env.controller, err = New(env.echo, getTestSettings(), Dependencies{
		Identifier: env.identifier,
		Resolver:   env.resolver,
		Species:    store.Species(),
		Sightings:  store.Sightings(),
		Validator:  env.validator,
		Suggester:  animals.NewSuggester(conf.DefaultAnimalNames),
		Database:   store,
	}, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		env.identifier.AssertExpectations(t)
		env.resolver.AssertExpectations(t)
		env.validator.AssertExpectations(t)
	})
	return env
}

// do serves req through the full middleware stack.
func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) get(path string) *httptest.ResponseRecorder {
	return env.do(httptest.NewRequest(http.MethodGet, path, http.NoBody))
}

func (env *testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return env.do(req)
}

func (env *testEnv) seedSpecies(t *testing.T, name, scientific string) *datastore.Species {
	t.Helper()
	species, _, err := env.store.Species().GetOrCreate(context.Background(), &datastore.Species{
		CommonName:     name,
		ScientificName: scientific,
	})
	require.NoError(t, err)
	return species
}

type filePart struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, path string, parts ...filePart) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
		h.Set("Content-Type", p.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(p.data))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), target), rec.Body.String())
}

// assertErrorResponse checks the status and the ErrorResponse shape.
func assertErrorResponse(t *testing.T, rec *httptest.ResponseRecorder, expectedCode int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedCode, rec.Code, rec.Body.String())

	var resp ErrorResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, expectedCode, resp.Code)
	if expectedMessage != "" {
		assert.Equal(t, expectedMessage, resp.Message)
	}
	assert.NotEmpty(t, resp.Error)
	assert.Len(t, resp.CorrelationID, 8)
}

func strPtr(s string) *string { return &s }
