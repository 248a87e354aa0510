package animals

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/httpclient"
)

const testBaseURL = "https://llm.test/v1"

func newTestValidator(t *testing.T, mutate func(*ValidatorConfig)) (*Validator, *httpmock.MockTransport) {
	t.Helper()

	hc := httpclient.New(&httpclient.Config{UserAgent: "WildlifeExplorer/test"})
	mock := httpmock.NewMockTransport()
	hc.StandardClient().Transport = mock
	t.Cleanup(hc.Close)

	cfg := ValidatorConfig{
		APIKey:     "sk-test-0123456789abcdef",
		BaseURL:    testBaseURL + "/",
		Model:      "text-model",
		Timeout:    time.Second,
		HTTPClient: hc,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewValidator(cfg), mock
}

func answer(content string) string {
	return fmt.Sprintf(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, content)
}

func TestValidate_Answers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		answer string
		want   bool
	}{
		{"YES", true},
		{"yes", true},
		{" Yes.\n", true},
		{"'YES'", true},
		{"NO", false},
		{"Yes, it is", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.answer), func(t *testing.T) {
			t.Parallel()
			v, mock := newTestValidator(t, nil)
			mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
				httpmock.NewStringResponder(http.StatusOK, answer(tt.answer)))

			got, err := v.Validate(t.Context(), "Red Fox")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_RequestShape(t *testing.T) {
	t.Parallel()

	v, mock := newTestValidator(t, nil)
	var body map[string]any
	var header http.Header
	mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			header = req.Header.Clone()
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			return httpmock.NewStringResponse(http.StatusOK, answer("YES")), nil
		})

	_, err := v.Validate(t.Context(), "  Bald   Eagle ")
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test-0123456789abcdef", header.Get("Authorization"))
	assert.Equal(t, "WildlifeExplorer/test", header.Get("User-Agent"))
	assert.Equal(t, "text-model", body["model"])
	temp, ok := body["temperature"].(float64)
	require.True(t, ok, "temperature must be sent")
	assert.InDelta(t, 0, temp, 1e-6)

	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"].(string)
	assert.Contains(t, content, "Name: Bald Eagle\n")
	assert.Contains(t, content, "Only respond with 'YES' or 'NO'.")
}

func TestValidate_CachesVerdictCaseInsensitively(t *testing.T) {
	t.Parallel()

	v, mock := newTestValidator(t, nil)
	mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
		httpmock.NewStringResponder(http.StatusOK, answer("YES")))

	for _, name := range []string{"Gray Wolf", "gray wolf", "GRAY  WOLF"} {
		ok, err := v.Validate(t.Context(), name)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, mock.GetTotalCallCount())
}

func TestValidate_CacheDisabled(t *testing.T) {
	t.Parallel()

	v, mock := newTestValidator(t, func(c *ValidatorConfig) { c.CacheTTL = -1 })
	mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
		httpmock.NewStringResponder(http.StatusOK, answer("NO")))

	for range 2 {
		_, err := v.Validate(t.Context(), "Teapot")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, mock.GetTotalCallCount())
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing api key", func(t *testing.T) {
		t.Parallel()
		v, mock := newTestValidator(t, func(c *ValidatorConfig) { c.APIKey = "" })
		_, err := v.Validate(t.Context(), "Red Fox")
		require.Error(t, err)
		assert.True(t, errors.IsConfiguration(err))
		assert.Zero(t, mock.GetTotalCallCount())
	})

	t.Run("blank name", func(t *testing.T) {
		t.Parallel()
		v, mock := newTestValidator(t, nil)
		_, err := v.Validate(t.Context(), "   ")
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
		assert.Zero(t, mock.GetTotalCallCount())
	})

	t.Run("provider error", func(t *testing.T) {
		t.Parallel()
		v, mock := newTestValidator(t, nil)
		mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
			httpmock.NewStringResponder(http.StatusUnauthorized,
				`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))

		_, err := v.Validate(t.Context(), "Red Fox")
		require.Error(t, err)
		assert.True(t, errors.IsUpstream(err))
	})

	t.Run("non JSON error body", func(t *testing.T) {
		t.Parallel()
		v, mock := newTestValidator(t, nil)
		mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
			httpmock.NewStringResponder(http.StatusBadGateway, "<html>bad gateway</html>"))

		_, err := v.Validate(t.Context(), "Red Fox")
		require.Error(t, err)
		assert.True(t, errors.IsUpstream(err))
	})

	t.Run("no choices", func(t *testing.T) {
		t.Parallel()
		v, mock := newTestValidator(t, nil)
		mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
			httpmock.NewStringResponder(http.StatusOK, `{"choices":[]}`))

		_, err := v.Validate(t.Context(), "Red Fox")
		require.Error(t, err)
		assert.True(t, errors.IsUpstream(err))
	})
}
