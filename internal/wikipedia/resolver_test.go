package wikipedia

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
)

const testBaseURL = "https://wiki.test"

const robinSummary = `{
  "type": "standard",
  "title": "American robin",
  "extract": "The American robin is a migratory songbird of the true thrush genus.",
  "wikibase_item": "Q28614",
  "content_urls": {"desktop": {"page": "https://en.wikipedia.org/wiki/American_robin"}},
  "originalimage": {"source": "https://upload.wikimedia.org/robin.jpg", "width": 800, "height": 600}
}`

func newTestResolver(t *testing.T, mutate func(*Config)) (*Resolver, *httpmock.MockTransport) {
	t.Helper()

	cfg := Config{
		BaseURL:    testBaseURL + "/",
		Timeout:    time.Second,
		RateLimit:  1000,
		Burst:      10,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		AppVersion: "1.2.3",
		Contact:    "contact: test",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	r := New(cfg)
	mock := httpmock.NewMockTransport()
	r.http.StandardClient().Transport = mock
	return r, mock
}

func summaryURL(title string) string {
	return testBaseURL + "/api/rest_v1/page/summary/" + title
}

func searchResponder(t *testing.T, hits map[string]string) httpmock.Responder {
	t.Helper()
	return func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		assert.Equal(t, "query", q.Get("action"))
		assert.Equal(t, "search", q.Get("list"))
		assert.Equal(t, "1", q.Get("srlimit"))
		assert.Equal(t, "json", q.Get("format"))

		title, ok := hits[q.Get("srsearch")]
		if !ok {
			return httpmock.NewStringResponse(http.StatusOK, `{"batchcomplete":"","query":{"searchinfo":{"totalhits":0},"search":[]}}`), nil
		}
		return httpmock.NewStringResponse(http.StatusOK,
			fmt.Sprintf(`{"query":{"search":[{"ns":0,"title":%q,"pageid":1}]}}`, title)), nil
	}
}

func TestResolve_DirectLookup(t *testing.T) {
	t.Parallel()

	r, mock := newTestResolver(t, nil)
	mock.RegisterResponder("GET", summaryURL("American_Robin"),
		httpmock.NewStringResponder(http.StatusOK, robinSummary))

	e, err := r.Resolve(t.Context(), "American Robin")
	require.NoError(t, err)
	require.True(t, e.Found())

	assert.Equal(t, "American robin", *e.EnglishName)
	assert.Contains(t, *e.Description, "migratory songbird")
	assert.Equal(t, []string{
		"https://en.wikipedia.org/wiki/American_robin",
		"https://www.wikidata.org/wiki/Q28614",
	}, e.OtherSources)
	require.NotNil(t, e.MainImage)
	assert.Equal(t, "https://upload.wikimedia.org/robin.jpg", *e.MainImage)
	assert.Equal(t, 1, mock.GetTotalCallCount())
}

func TestResolve_SearchFallback(t *testing.T) {
	t.Parallel()

	r, mock := newTestResolver(t, nil)
	mock.RegisterResponder("GET", summaryURL("robin_redbreast_bird"),
		httpmock.NewStringResponder(http.StatusNotFound, `{"type":"https://mediawiki.org/wiki/HyperSwitch/errors/not_found"}`))
	mock.RegisterResponder("GET", testBaseURL+"/w/api.php",
		searchResponder(t, map[string]string{"robin redbreast bird": "American robin"}))
	mock.RegisterResponder("GET", summaryURL("American_robin"),
		httpmock.NewStringResponder(http.StatusOK, robinSummary))

	e, err := r.Resolve(t.Context(), "robin redbreast bird")
	require.NoError(t, err)
	require.True(t, e.Found())
	assert.Equal(t, "American robin", *e.EnglishName)
	assert.Len(t, e.OtherSources, 2)
	assert.Equal(t, 3, mock.GetTotalCallCount())
}

func TestResolve_DisambiguationFallsBackToSearch(t *testing.T) {
	t.Parallel()

	r, mock := newTestResolver(t, nil)
	mock.RegisterResponder("GET", summaryURL("Robin"),
		httpmock.NewStringResponder(http.StatusOK, `{"type":"disambiguation","title":"Robin","extract":"Robin may refer to:"}`))
	mock.RegisterResponder("GET", testBaseURL+"/w/api.php",
		searchResponder(t, map[string]string{"Robin": "American robin"}))
	mock.RegisterResponder("GET", summaryURL("American_robin"),
		httpmock.NewStringResponder(http.StatusOK, robinSummary))

	e, err := r.Resolve(t.Context(), "Robin")
	require.NoError(t, err)
	require.True(t, e.Found())
	assert.Equal(t, "American robin", *e.EnglishName)
}

func TestResolve_TotalMiss(t *testing.T) {
	t.Parallel()

	r, mock := newTestResolver(t, nil)
	mock.RegisterResponder("GET", summaryURL("Snallygaster"),
		httpmock.NewStringResponder(http.StatusNotFound, `{}`))
	mock.RegisterResponder("GET", testBaseURL+"/w/api.php", searchResponder(t, nil))

	e, err := r.Resolve(t.Context(), "Snallygaster")
	require.NoError(t, err)
	assert.False(t, e.Found())
	assert.Nil(t, e.Description)
	assert.Nil(t, e.MainImage)
	assert.NotNil(t, e.OtherSources)
	assert.Empty(t, e.OtherSources)
	assert.Equal(t, 2, mock.GetTotalCallCount())
}

func TestResolve_SearchHitWithoutSummary(t *testing.T) {
	t.Parallel()

	r, mock := newTestResolver(t, nil)
	mock.RegisterResponder("GET", summaryURL("jackalope"),
		httpmock.NewStringResponder(http.StatusNotFound, `{}`))
	mock.RegisterResponder("GET", testBaseURL+"/w/api.php",
		searchResponder(t, map[string]string{"jackalope": "Jackalope"}))
	mock.RegisterResponder("GET", summaryURL("Jackalope"),
		httpmock.NewStringResponder(http.StatusOK, `{"type":"standard","extract":"no title here"}`))

	e, err := r.Resolve(t.Context(), "jackalope")
	require.NoError(t, err)
	assert.False(t, e.Found())
	assert.Equal(t, 3, mock.GetTotalCallCount())
}

func TestResolve_MinimalSummary(t *testing.T) {
	t.Parallel()

	r, mock := newTestResolver(t, nil)
	mock.RegisterResponder("GET", summaryURL("Moose"),
		httpmock.NewStringResponder(http.StatusOK, `{"type":"standard","title":"Moose","extract":""}`))

	e, err := r.Resolve(t.Context(), "Moose")
	require.NoError(t, err)
	require.True(t, e.Found())
	assert.Equal(t, "Moose", *e.EnglishName)
	assert.Nil(t, e.Description)
	assert.Nil(t, e.MainImage)
	assert.Empty(t, e.OtherSources)
}

func TestResolve_SendsPolicyUserAgent(t *testing.T) {
	t.Parallel()

	r, mock := newTestResolver(t, nil)
	var gotUA string
	mock.RegisterResponder("GET", summaryURL("Coyote"),
		func(req *http.Request) (*http.Response, error) {
			gotUA = req.Header.Get("User-Agent")
			return httpmock.NewStringResponse(http.StatusOK, `{"title":"Coyote"}`), nil
		})

	_, err := r.Resolve(t.Context(), "Coyote")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gotUA, "WildlifeExplorer/1.2.3 (contact: test) Go-HTTP-Client/go"), gotUA)
	assert.Equal(t, r.UserAgent(), gotUA)
}

func TestResolve_UserAgentPolicyViolationIsPermanent(t *testing.T) {
	t.Parallel()

	r, mock := newTestResolver(t, func(c *Config) { c.MaxRetries = 3 })
	mock.RegisterResponder("GET", summaryURL("Bobcat"),
		httpmock.NewStringResponder(http.StatusForbidden,
			"Please set a user-agent and respect our robot policy https://w.wiki/4wJS. See also T400119. User-Agent required"))

	_, err := r.Resolve(t.Context(), "Bobcat")
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Equal(t, 1, mock.GetTotalCallCount())
}

func TestResolve_ServerErrorRetriedThenUpstream(t *testing.T) {
	t.Parallel()

	r, mock := newTestResolver(t, func(c *Config) { c.MaxRetries = 1 })
	mock.RegisterResponder("GET", summaryURL("Wolf"),
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "upstream connect error"))

	e, err := r.Resolve(t.Context(), "Wolf")
	require.Error(t, err)
	assert.True(t, errors.IsUpstream(err))
	assert.False(t, e.Found())
	assert.NotNil(t, e.OtherSources)
	assert.Equal(t, 2, mock.GetTotalCallCount())
}

func TestResolve_TransportErrorIsUpstream(t *testing.T) {
	t.Parallel()

	r, mock := newTestResolver(t, func(c *Config) { c.MaxRetries = 0 })
	mock.RegisterResponder("GET", summaryURL("Mallard"),
		httpmock.NewErrorResponder(fmt.Errorf("dial tcp: connection refused")))

	_, err := r.Resolve(t.Context(), "Mallard")
	require.Error(t, err)
	assert.True(t, errors.IsUpstream(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestResolve_TimeoutTreatedAsNoEntry(t *testing.T) {
	t.Parallel()

	r, mock := newTestResolver(t, func(c *Config) { c.Timeout = 30 * time.Millisecond })
	mock.RegisterResponder("GET", summaryURL("Raccoon"),
		func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		})
	mock.RegisterResponder("GET", testBaseURL+"/w/api.php", searchResponder(t, nil))

	e, err := r.Resolve(t.Context(), "Raccoon")
	require.NoError(t, err)
	assert.False(t, e.Found())
	assert.Equal(t, 2, mock.GetTotalCallCount())
}

func TestResolve_SearchAPIErrorIsUpstream(t *testing.T) {
	t.Parallel()

	r, mock := newTestResolver(t, nil)
	mock.RegisterResponder("GET", summaryURL("Skunk"),
		httpmock.NewStringResponder(http.StatusNotFound, `{}`))
	mock.RegisterResponder("GET", testBaseURL+"/w/api.php",
		httpmock.NewStringResponder(http.StatusOK, `{"error":{"code":"maxlag","info":"Waiting for a database server"}}`))

	_, err := r.Resolve(t.Context(), "Skunk")
	require.Error(t, err)
	assert.True(t, errors.IsUpstream(err))
	assert.Contains(t, err.Error(), "maxlag")
}

func TestResolve_BlankNameMakesNoRequest(t *testing.T) {
	t.Parallel()

	r, mock := newTestResolver(t, nil)
	e, err := r.Resolve(t.Context(), "   ")
	require.NoError(t, err)
	assert.False(t, e.Found())
	assert.Zero(t, mock.GetTotalCallCount())
}

func TestBuildUserAgent(t *testing.T) {
	t.Parallel()

	ua := buildUserAgent("", "", "")
	assert.True(t, strings.HasPrefix(ua, "WildlifeExplorer/unknown (contact: ios-app) Go-HTTP-Client/go"), ua)

	ua = buildUserAgent("Field", "2.0.1", "ops@example.org")
	assert.True(t, strings.HasPrefix(ua, "Field/2.0.1 (ops@example.org) Go-HTTP-Client/"), ua)
}

func TestCheckUserAgentPolicyViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"ok status", http.StatusOK, "User-Agent", false},
		{"plain forbidden", http.StatusForbidden, "Forbidden", false},
		{"user agent", http.StatusForbidden, "Missing User-Agent header", true},
		{"robot policy", http.StatusForbidden, "respect our robot policy", true},
	}

	for _, tt := range tests {
		err := checkUserAgentPolicyViolation(tt.status, []byte(tt.body), "ua")
		if !tt.want {
			assert.NoError(t, err, tt.name)
			continue
		}
		require.Error(t, err, tt.name)
		assert.True(t, errors.IsConfiguration(err), tt.name)
	}
}
