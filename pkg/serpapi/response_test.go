package serpapi

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseKeepsOrder(t *testing.T) {
	resp, err := ParseResponse([]byte(`{"zeta":1,"alpha":{"b":2,"a":1},"mid":[1,2],"zeta":3}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, resp.Keys())
	v, ok := resp.Get("zeta")
	require.True(t, ok)
	assert.JSONEq(t, `3`, string(v))

	out, err := resp.Indented()
	require.NoError(t, err)
	assert.Contains(t, out, "\"alpha\": {\n    \"b\": 2,\n    \"a\": 1\n  }")
}

func TestParseResponseRejectsNonObjects(t *testing.T) {
	for _, body := range []string{``, `[]`, `"text"`, `{"a":1} {"b":2}`, `{"a":`} {
		_, err := ParseResponse([]byte(body))
		assert.Error(t, err, body)
	}
}

func TestResponseAccessors(t *testing.T) {
	resp, err := ParseResponse([]byte(`{"best_flights":[],"other_flights":[{"id":1},{"id":2}],"error":"quota","flag":false}`))
	require.NoError(t, err)

	assert.True(t, resp.Has("best_flights"))
	assert.False(t, resp.Truthy("best_flights"))
	assert.True(t, resp.Truthy("other_flights"))
	assert.False(t, resp.Truthy("flag"))
	assert.False(t, resp.Truthy("missing"))

	items, ok := resp.Array("other_flights")
	require.True(t, ok)
	assert.Len(t, items, 2)

	_, ok = resp.Array("error")
	assert.False(t, ok)

	assert.Equal(t, "quota", resp.ErrorMessage())
}

func TestIsTruthy(t *testing.T) {
	cases := map[string]bool{
		`null`: false, `false`: false, `true`: true, `0`: false, `0.0`: false,
		`3`: true, `""`: false, `"x"`: true, `[]`: false, `[0]`: true,
		`{}`: false, `{"a":1}`: true, ` [ ] `: false,
	}
	for raw, want := range cases {
		assert.Equal(t, want, IsTruthy(json.RawMessage(raw)), raw)
	}
}

func TestEncodeHelpers(t *testing.T) {
	arr := EncodeArray([]json.RawMessage{json.RawMessage(`{"b":1,"a":2}`), json.RawMessage(`3`)})
	assert.Equal(t, `[{"b":1,"a":2},3]`, string(arr))
	assert.Equal(t, `[]`, string(EncodeArray(nil)))

	obj, err := EncodeObject(
		ObjectField{Key: "message", Value: "No flights found"},
		ObjectField{Key: "flights", Value: arr},
		ObjectField{Key: "available_keys", Value: []string{"z", "a"}},
	)
	require.NoError(t, err)
	assert.Equal(t, `{"message":"No flights found","flights":[{"b":1,"a":2},3],"available_keys":["z","a"]}`, string(obj))

	out, err := Indent(obj)
	require.NoError(t, err)
	assert.Contains(t, out, "{\n  \"message\": \"No flights found\",\n  \"flights\": [\n")
}

func TestCacheKeyIgnoresAPIKey(t *testing.T) {
	a := url.Values{"q": {"Paris"}, "engine": {"google_hotels"}, "api_key": {"one"}}
	b := url.Values{"engine": {"google_hotels"}, "q": {"Paris"}, "api_key": {"two"}}
	assert.Equal(t, CacheKey(a), CacheKey(b))
	assert.Equal(t, "engine=google_hotels&q=Paris", CacheKey(a))
}

func TestScopedCacheKeySeparatesAPIKeys(t *testing.T) {
	params := url.Values{"engine": {"google_hotels"}, "q": {"Paris"}}
	assert.Equal(t, ScopedCacheKey(params, "one"), ScopedCacheKey(params, "one"))
	assert.NotEqual(t, ScopedCacheKey(params, "one"), ScopedCacheKey(params, "two"))
	assert.True(t, strings.HasSuffix(ScopedCacheKey(params, "one"), "|engine=google_hotels&q=Paris"))
	assert.NotContains(t, ScopedCacheKey(params, "secret-key"), "secret-key")
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewCache(2, time.Minute)

	cache.Set("a", []byte("A"))
	cache.Set("b", []byte("B"))

	// touching "a" makes "b" the least recently used
	_, ok := cache.Get("a")
	require.True(t, ok)
	cache.Set("c", []byte("C"))

	_, ok = cache.Get("b")
	assert.False(t, ok)
	raw, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("A"), raw)
	assert.Equal(t, 2, cache.Size())
}

func TestCacheExpiry(t *testing.T) {
	cache := NewCache(4, 20*time.Millisecond)
	cache.Set("a", []byte("A"))

	_, ok := cache.Get("a")
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := cache.Get("a")
		return !ok
	}, time.Second, 5*time.Millisecond)
}
