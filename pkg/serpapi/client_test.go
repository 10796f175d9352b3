package serpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/auth"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/server"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(t *testing.T, handler http.HandlerFunc, key string, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewClient(ts.URL+"/search", auth.NewSecureAuthProvider(key), opts...), ts
}

func flightParams() url.Values {
	return url.Values{
		"engine":       {"google_flights"},
		"departure_id": {"JFK"},
		"arrival_id":   {"LHR"},
	}
}

func TestSearchSendsKeyAndParams(t *testing.T) {
	var got url.Values
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"search_metadata":{"id":"1"},"best_flights":[{"price":420}],"airports":[]}`)
	}, "secret")

	params := flightParams()
	resp, err := client.Search(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, "secret", got.Get("api_key"))
	assert.Equal(t, "google_flights", got.Get("engine"))
	assert.Equal(t, "JFK", got.Get("departure_id"))
	assert.Empty(t, params.Get("api_key"), "caller params must not be mutated")

	assert.Equal(t, []string{"search_metadata", "best_flights", "airports"}, resp.Keys())
	assert.False(t, resp.Cached)
}

func TestSearchMissingKey(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, "")

	_, err := client.Search(context.Background(), flightParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, MissingKeyMessage, server.Message(err))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSearchUsesKeyFromContext(t *testing.T) {
	var got string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("api_key")
		io.WriteString(w, `{}`)
	}, "")

	ctx := auth.WithAuthContext(context.Background(), &auth.AuthContext{Token: "caller", Source: auth.SourceHeader})
	_, err := client.Search(ctx, flightParams())
	require.NoError(t, err)
	assert.Equal(t, "caller", got)
}

func TestSearchJSONErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"Invalid API key. Your API key should be here: https://serpapi.com/manage-api-key"}`)
	}, "bad")

	_, err := client.Search(context.Background(), flightParams())
	require.Error(t, err)
	assert.Equal(t, "SerpAPI error: Invalid API key. Your API key should be here: https://serpapi.com/manage-api-key", server.Message(err))
	assert.True(t, server.IsType(err, server.ErrorTypeAuth))
}

func TestSearchJSONStatusWithoutErrorMember(t *testing.T) {
	client, ts := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"message":"slow down"}`)
	}, "key")

	_, err := client.Search(context.Background(), url.Values{"engine": {"google_hotels"}})
	require.Error(t, err)
	assert.Equal(t,
		"SerpAPI error: Client error '429 Too Many Requests' for url '"+ts.URL+"/search?engine=google_hotels'",
		server.Message(err))
}

func TestSearchNonJSONErrorStatus(t *testing.T) {
	client, ts := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	}, "secret")

	_, err := client.Search(context.Background(), url.Values{"engine": {"google_flights"}})
	require.Error(t, err)

	msg := server.Message(err)
	assert.Equal(t, "HTTP error occurred: Server error '502 Bad Gateway' for url '"+ts.URL+"/search?engine=google_flights'", msg)
	assert.NotContains(t, msg, "secret")
	assert.True(t, server.IsType(err, server.ErrorTypeUpstream))
}

func TestSearchTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := ts.URL
	ts.Close()

	client := NewClient(baseURL, auth.NewSecureAuthProvider("secret"), WithLogger(quietLogger()))
	_, err := client.Search(context.Background(), flightParams())
	require.Error(t, err)

	msg := server.Message(err)
	assert.True(t, strings.HasPrefix(msg, "Request failed: "), msg)
	assert.NotContains(t, msg, "secret")
	assert.True(t, server.IsType(err, server.ErrorTypeNetwork))
}

func TestSearchTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, "key", WithTimeout(50*time.Millisecond))

	_, err := client.Search(context.Background(), flightParams())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(server.Message(err), "Request failed: "))
}

func TestSearchOversizeBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"padding":"`+strings.Repeat("x", 2<<20)+`"}`)
	}, "key", WithMaxResponseBytes(1<<20))

	_, err := client.Search(context.Background(), flightParams())
	require.Error(t, err)
	assert.Equal(t, "Request failed: response exceeds 1 MB", server.Message(err))
}

func TestSearchInvalidJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}, "key")

	_, err := client.Search(context.Background(), flightParams())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(server.Message(err), "Request failed: invalid JSON response"))
}

func TestSearchOKWithErrorMember(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"search_metadata":{"status":"Error"},"error":"Google hasn't returned any results for this query."}`)
	}, "key", WithCache(time.Minute, 4))

	resp, err := client.Search(context.Background(), flightParams())
	require.NoError(t, err)
	assert.Equal(t, "Google hasn't returned any results for this query.", resp.ErrorMessage())
	assert.Zero(t, client.cache.Size(), "error payloads are not cached")
}

func TestSearchCache(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		io.WriteString(w, `{"properties":[{"name":"Hotel"}]}`)
	}, "key", WithCache(time.Minute, 8))

	params := url.Values{"engine": {"google_hotels"}, "q": {"Paris"}}
	first, err := client.Search(context.Background(), params)
	require.NoError(t, err)
	second, err := client.Search(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Keys(), second.Keys())

	_, err = client.Search(context.Background(), url.Values{"engine": {"google_hotels"}, "q": {"Rome"}})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSearchCacheIsScopedToAPIKey(t *testing.T) {
	var keys []string
	var mu sync.Mutex
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.URL.Query().Get("api_key"))
		mu.Unlock()
		io.WriteString(w, `{"properties":[{"name":"Hotel"}]}`)
	}, "configured", WithCache(time.Minute, 8))

	params := url.Values{"engine": {"google_hotels"}, "q": {"Paris"}}
	alice := auth.WithAuthContext(context.Background(), &auth.AuthContext{Token: "alice-key", Source: auth.SourceHeader})
	bob := auth.WithAuthContext(context.Background(), &auth.AuthContext{Token: "bob-key", Source: auth.SourceHeader})

	first, err := client.Search(alice, params)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := client.Search(bob, params)
	require.NoError(t, err)
	assert.False(t, second.Cached, "a different key must not reuse another caller's response")

	third, err := client.Search(alice, params)
	require.NoError(t, err)
	assert.True(t, third.Cached)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"alice-key", "bob-key"}, keys)
}

func TestSearchRateLimitHonoursContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	}, "key", WithRateLimit(1))

	_, err := client.Search(context.Background(), flightParams())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Search(ctx, flightParams())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(server.Message(err), "Request failed: "))
}

func TestNewClientFromConfig(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.APIKey = "k"
	cfg.RequestsPerMinute = 60
	cfg.CacheTTL = time.Minute

	client := NewClientFromConfig(cfg, quietLogger())
	assert.NotNil(t, client.limiter)
	assert.NotNil(t, client.cache)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	assert.Equal(t, int64(16<<20), client.maxBytes)
}
