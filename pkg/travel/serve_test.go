package travel

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/server"
)

func TestServeStdioWritesOnlyFrames(t *testing.T) {
	env := newTestEnv(t, `{"best_flights":[{"price":99}]}`)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"search_flights","arguments":{"departure_airport":"JFK","arrival_airport":"LHR","outbound_date":"2025-12-15"}}}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	err := env.server.ServeStdio(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)

	text := out.String()
	var ids []float64
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		var frame map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &frame), "non JSON output line: %q", scanner.Text())
		assert.Equal(t, "2.0", frame["jsonrpc"])
		ids = append(ids, frame["id"].(float64))
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []float64{1, 2, 3}, ids)
	assert.Contains(t, text, `\"price\": 99`)
}

func TestServeStdioReleasesErrorLogWriter(t *testing.T) {
	env := newTestEnv(t, `{}`)
	require.NoError(t, env.server.ServeStdio(context.Background(), strings.NewReader(""), io.Discard))

	before := runtime.NumGoroutine()
	for i := 0; i < 50; i++ {
		require.NoError(t, env.server.ServeStdio(context.Background(), strings.NewReader(""), io.Discard))
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() < before+10
	}, 2*time.Second, 10*time.Millisecond, "each stdio session must close its log writer")
}

func TestServeStdioStopsOnCancel(t *testing.T) {
	env := newTestEnv(t, `{}`)
	reader, writer := io.Pipe()
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- env.server.ServeStdio(ctx, reader, io.Discard)
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ServeStdio did not return after cancel")
	}
}

func TestHTTPHandlerRoutes(t *testing.T) {
	env := newTestEnv(t, `{"properties":[{"name":"A"}]}`)
	env.call(t, ToolSearchHotels, hotelArgs())

	handler, err := env.server.HTTPHandler()
	require.NoError(t, err)
	ts := httptest.NewServer(handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy","service":"serpapi-travel"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get(server.RequestIDHeader))

	resp, err = http.Get(ts.URL + "/swagger")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	resp.Body.Close()
	assert.Equal(t, "3.0.3", doc["openapi"])
	assert.Contains(t, doc["paths"], "/searches/{id}")

	resp, err = http.Get(ts.URL + "/searches?limit=5")
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	resp.Body.Close()
	require.Len(t, records, 1)
	assert.Equal(t, ToolSearchHotels, records[0]["tool"])

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/searches/1", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/searches/1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPHandlerServesMCP(t *testing.T) {
	searcher := &fakeSearcher{body: `{"best_flights":[{"price":1}]}`}
	srv := NewServer(searcher, Options{Logger: quietLogger()})
	handler, err := srv.HTTPHandler()
	require.NoError(t, err)
	ts := httptest.NewServer(handler)
	defer ts.Close()

	post := func(body string) *http.Response {
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/mcp", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := post(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var reply struct {
		Result struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, ServerName, reply.Result.ServerInfo.Name)

	resp, err = http.Get(ts.URL + "/searches")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "history routes are absent without a store")
}
