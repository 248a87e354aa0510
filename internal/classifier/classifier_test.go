package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
)

const (
	testBaseURL  = "https://llm.test/v1"
	testEndpoint = "POST https://llm.test/v1/chat/completions"
	testAPIKey   = "sk-test-0123456789abcdef"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

func newTestClient(t *testing.T, mutate func(*Config)) (*Client, *httpmock.MockTransport) {
	t.Helper()

	cfg := Config{
		APIKey:     testAPIKey,
		BaseURL:    testBaseURL + "/",
		PhotoModel: "photo-model",
		AudioModel: "audio-model",
		Timeout:    2 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	client := New(cfg)
	mock := httpmock.NewMockTransport()
	client.http.StandardClient().Transport = mock
	t.Cleanup(client.http.Close)
	return client, mock
}

func completionBody(content string) string {
	return fmt.Sprintf(`{"id":"cmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":%q}}]}`, content)
}

// capturingResponder decodes each request into got and answers with content
func capturingResponder(t *testing.T, got *chatRequest, header *http.Header, content string) httpmock.Responder {
	t.Helper()
	return func(req *http.Request) (*http.Response, error) {
		*header = req.Header.Clone()
		if err := json.NewDecoder(req.Body).Decode(got); err != nil {
			return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, completionBody(content)), nil
	}
}

func TestClassify_Photo(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t, nil)
	var got chatRequest
	var header http.Header
	mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
		capturingResponder(t, &got, &header, "  \"Red Fox.\"\n"))

	label, err := client.Classify(t.Context(), Request{Modality: ModalityPhoto, Image: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "Red Fox", label)

	assert.Equal(t, "Bearer "+testAPIKey, header.Get("Authorization"))
	assert.Equal(t, "application/json", header.Get("Content-Type"))

	assert.Equal(t, "photo-model", got.Model)
	assert.Zero(t, got.Temperature)
	assert.Empty(t, got.Modalities)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)

	parts := got.Messages[0].Content
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Contains(t, parts[0].Text, Sentinel)
	assert.Equal(t, "image_url", parts[1].Type)
	require.NotNil(t, parts[1].ImageURL)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,"), parts[1].ImageURL.URL[:30])
	assert.Equal(t, 1, mock.GetTotalCallCount())
}

func TestClassify_AudioUsesAudioModel(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t, nil)
	var got chatRequest
	var header http.Header
	mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
		capturingResponder(t, &got, &header, "Barred Owl"))

	label, err := client.Classify(t.Context(), Request{
		Modality:    ModalityAudio,
		Audio:       []byte("ID3 fake mp3 payload"),
		AudioFormat: "mp3",
	})
	require.NoError(t, err)
	assert.Equal(t, "Barred Owl", label)

	assert.Equal(t, "audio-model", got.Model)
	assert.Equal(t, []string{"text"}, got.Modalities)
	parts := got.Messages[0].Content
	require.Len(t, parts, 2)
	assert.Equal(t, "input_audio", parts[1].Type)
	require.NotNil(t, parts[1].InputAudio)
	assert.Equal(t, "mp3", parts[1].InputAudio.Format)
	assert.NotEmpty(t, parts[1].InputAudio.Data)
}

func TestClassify_CombinedSendsBothMedia(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t, nil)
	var got chatRequest
	var header http.Header
	mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
		capturingResponder(t, &got, &header, "American Robin"))

	label, err := client.Classify(t.Context(), Request{
		Modality:  ModalityPhotoAndAudio,
		Image:     []byte("jpeg bytes"),
		ImageType: "image/jpeg",
		Audio:     []byte("RIFF....WAVE"),
	})
	require.NoError(t, err)
	assert.Equal(t, "American Robin", label)

	assert.Equal(t, "audio-model", got.Model)
	parts := got.Messages[0].Content
	require.Len(t, parts, 3)
	assert.Contains(t, parts[0].Text, "jointly")
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,"))
	assert.Equal(t, DefaultAudioFormat, parts[2].InputAudio.Format)
}

func TestClassify_SentinelNormalized(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t, nil)
	mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
		httpmock.NewStringResponder(http.StatusOK, completionBody("Identification failed.")))

	label, err := client.Classify(t.Context(), Request{Modality: ModalityPhoto, Image: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, Sentinel, label)
}

func TestClassify_MissingAPIKeyFailsBeforeNetwork(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t, func(c *Config) { c.APIKey = "" })

	_, err := client.Classify(t.Context(), Request{Modality: ModalityPhoto, Image: pngBytes})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Zero(t, mock.GetTotalCallCount())
}

func TestClassify_InvalidRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  Request
	}{
		{"photo without image", Request{Modality: ModalityPhoto}},
		{"audio without audio", Request{Modality: ModalityAudio, Image: pngBytes}},
		{"combined without audio", Request{Modality: ModalityPhotoAndAudio, Image: pngBytes}},
		{"unknown modality", Request{Modality: "video", Image: pngBytes}},
	}

	client, mock := newTestClient(t, nil)
	for _, tt := range tests {
		_, err := client.Classify(t.Context(), tt.req)
		require.Error(t, err, tt.name)
		assert.True(t, errors.IsValidation(err), tt.name)
	}
	assert.Zero(t, mock.GetTotalCallCount())
}

func TestClassify_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t, nil)
	mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
		httpmock.NewStringResponder(http.StatusBadRequest,
			`{"error":{"message":"Incorrect API key provided: sk-live-abcdefghijklmnop"}}`))

	_, err := client.Classify(t.Context(), Request{Modality: ModalityPhoto, Image: pngBytes})
	require.Error(t, err)
	assert.True(t, errors.IsUpstream(err))
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "Incorrect API key provided")
	assert.NotContains(t, err.Error(), "sk-live-abcdefghijklmnop")
	assert.Equal(t, 1, mock.GetTotalCallCount())

	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, http.StatusBadRequest, ee.GetContext()["status_code"])
}

func TestClassify_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t, nil)
	var calls atomic.Int32
	mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
		func(*http.Request) (*http.Response, error) {
			if calls.Add(1) == 1 {
				return httpmock.NewStringResponse(http.StatusServiceUnavailable, "overloaded"), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, completionBody("Coyote")), nil
		})

	label, err := client.Classify(t.Context(), Request{Modality: ModalityPhoto, Image: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "Coyote", label)
	assert.Equal(t, 2, mock.GetTotalCallCount())
}

func TestClassify_RetriesExhausted(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t, func(c *Config) { c.MaxRetries = 2 })
	mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
		httpmock.NewStringResponder(http.StatusTooManyRequests, "slow down"))

	_, err := client.Classify(t.Context(), Request{Modality: ModalityPhoto, Image: pngBytes})
	require.Error(t, err)
	assert.True(t, errors.IsUpstream(err))
	assert.Contains(t, err.Error(), "status 429")
	assert.Equal(t, 3, mock.GetTotalCallCount())
}

func TestClassify_TransportErrorRetried(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t, func(c *Config) { c.MaxRetries = 1 })
	mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
		httpmock.NewErrorResponder(fmt.Errorf("connection reset by peer")))

	_, err := client.Classify(t.Context(), Request{Modality: ModalityPhoto, Image: pngBytes})
	require.Error(t, err)
	assert.True(t, errors.IsUpstream(err))
	assert.Equal(t, 2, mock.GetTotalCallCount())
}

func TestClassify_EmptyCompletionIsUpstreamError(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t, nil)
	mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
		httpmock.NewStringResponder(http.StatusOK, completionBody(" \n\t ")))

	label, err := client.Classify(t.Context(), Request{Modality: ModalityPhoto, Image: pngBytes})
	require.Error(t, err)
	assert.Empty(t, label)
	assert.True(t, errors.IsUpstream(err))
}

func TestClassify_MalformedCompletionIsUpstreamError(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t, nil)
	mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
		httpmock.NewStringResponder(http.StatusOK, `{"choices":[]}`))

	_, err := client.Classify(t.Context(), Request{Modality: ModalityPhoto, Image: pngBytes})
	require.Error(t, err)
	assert.True(t, errors.IsUpstream(err))
	assert.Equal(t, 1, mock.GetTotalCallCount())
}

func TestClassify_TimeoutIsUpstreamError(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t, func(c *Config) { c.Timeout = 50 * time.Millisecond })
	mock.RegisterResponder("POST", testBaseURL+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		})

	start := time.Now()
	_, err := client.Classify(t.Context(), Request{Modality: ModalityPhoto, Image: pngBytes})
	require.Error(t, err)
	assert.True(t, errors.IsUpstream(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
