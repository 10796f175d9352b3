// Package serpapi is a small client for the SerpAPI search endpoint.
//
// Every failure is returned as a *server.ServerError whose Message is the
// text shown to MCP clients, for example "SerpAPI error: Invalid API key."
// or "Request failed: context deadline exceeded".
package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/auth"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/memory"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/server"
)

// MissingKeyMessage is returned to clients when no API key is configured.
const MissingKeyMessage = "SERPAPI_API_KEY environment variable is not set. Please add it to your .env file or configuration."

// ErrMissingAPIKey is returned by Search when no key is available.
var ErrMissingAPIKey = &server.ServerError{Type: server.ErrorTypeAuth, Message: MissingKeyMessage}

// Searcher runs one SerpAPI query.
type Searcher interface {
	Search(ctx context.Context, params url.Values) (*Response, error)
}

// Client talks to SerpAPI over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	provider   auth.SecureAuthProvider
	limiter    *rate.Limiter
	cache      *Cache
	maxBytes   int64
	logger     *logrus.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its transport is wrapped
// with the authenticating round tripper.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		clone := *hc
		c.httpClient = &clone
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit limits outbound requests to rpm per minute. rpm <= 0 means
// unlimited.
func WithRateLimit(rpm int) Option {
	return func(c *Client) {
		if rpm <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}
}

// WithCache enables the response cache. ttl <= 0 disables it.
func WithCache(ttl time.Duration, size int) Option {
	return func(c *Client) {
		if ttl <= 0 || size <= 0 {
			c.cache = nil
			return
		}
		c.cache = NewCache(size, ttl)
	}
}

// WithMaxResponseBytes bounds the size of a response body
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		c.maxBytes = n
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for baseURL. The API key comes from provider.
func NewClient(baseURL string, provider auth.SecureAuthProvider, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: server.DefaultTimeout},
		provider:   provider,
		maxBytes:   server.DefaultMaxResponseMB << 20,
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Transport = auth.NewSecureRoundTripper(c.httpClient.Transport, provider)
	return c
}

// NewClientFromConfig builds a client from the server configuration
func NewClientFromConfig(cfg *server.Config, logger *logrus.Logger) *Client {
	return NewClient(cfg.BaseURL, auth.NewSecureAuthProvider(cfg.APIKey),
		WithTimeout(cfg.RequestTimeout),
		WithRateLimit(cfg.RequestsPerMinute),
		WithCache(cfg.CacheTTL, cfg.CacheSize),
		WithMaxResponseBytes(cfg.MaxResponseBytes()),
		WithLogger(logger),
	)
}

// Search sends params to SerpAPI and returns the decoded answer. A 2xx
// answer carrying an "error" member is returned as a Response; callers
// check ErrorMessage.
func (c *Client) Search(ctx context.Context, params url.Values) (*Response, error) {
	token := c.provider.Token(ctx)
	if token == "" {
		c.logger.Error(MissingKeyMessage)
		return nil, ErrMissingAPIKey
	}

	engine := params.Get("engine")
	if engine == "" {
		engine = "unknown"
	}

	cacheKey := ScopedCacheKey(params, token)
	if c.cache != nil {
		if raw, ok := c.cache.Get(cacheKey); ok {
			if resp, err := ParseResponse(raw); err == nil {
				c.logger.WithField("engine", engine).Debug("SerpAPI response served from cache")
				resp.Cached = true
				return resp, nil
			}
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, requestFailed(ctx, err)
		}
	}

	requestURL, err := c.buildURL(params)
	if err != nil {
		return nil, requestFailed(ctx, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, requestFailed(ctx, err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Infof("Making SerpAPI request with engine: %s", engine)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		c.logger.Errorf("Request failed: %v", err)
		return nil, requestFailed(ctx, err)
	}
	defer httpResp.Body.Close()

	body, err := memory.ReadLimited(httpResp.Body, c.maxBytes)
	if err != nil {
		if errors.Is(err, memory.ErrTooLarge) {
			err = fmt.Errorf("response exceeds %d MB", c.maxBytes>>20)
		}
		c.logger.Errorf("Request failed: %v", err)
		return nil, requestFailed(ctx, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		statusErr := statusError(httpResp.StatusCode, requestURL)
		c.logger.Errorf("HTTP error from SerpAPI: %s", statusErr)
		return nil, upstreamError(ctx, httpResp.StatusCode, body, statusErr)
	}

	resp, err := ParseResponse(body)
	if err != nil {
		c.logger.Errorf("Request failed: %v", err)
		return nil, requestFailed(ctx, err)
	}

	c.logger.Info("SerpAPI request successful")

	if c.cache != nil && !resp.Has("error") {
		c.cache.Set(cacheKey, body)
	}

	return resp, nil
}

func (c *Client) buildURL(params url.Values) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range params {
		if k == auth.QueryParamName {
			continue
		}
		q[k] = append([]string(nil), vs...)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// statusError renders a status failure the way HTTP client libraries
// usually do: "Client error '404 Not Found' for url '...'".
func statusError(code int, requestURL string) string {
	kind := "Server error"
	if code >= 400 && code < 500 {
		kind = "Client error"
	} else if code < 400 {
		kind = "Unexpected status"
	}
	return fmt.Sprintf("%s '%d %s' for url '%s'", kind, code, http.StatusText(code), requestURL)
}

// upstreamError builds the client-facing message for a non-2xx answer. A
// JSON object body yields "SerpAPI error: <error member>"; anything else
// yields "HTTP error occurred: <status>".
func upstreamError(ctx context.Context, code int, body []byte, statusErr string) *server.ServerError {
	details := fmt.Sprintf("status %d", code)

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return server.NewErrorWithContext(ctx, server.ErrorTypeUpstream, "HTTP error occurred: "+statusErr, details)
	}

	msg := statusErr
	if raw, ok := payload["error"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			msg = s
		} else {
			msg = string(raw)
		}
	}

	errType := server.ErrorTypeUpstream
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		errType = server.ErrorTypeAuth
	}
	return server.NewErrorWithContext(ctx, errType, "SerpAPI error: "+msg, details)
}

func requestFailed(ctx context.Context, err error) *server.ServerError {
	return server.NewErrorWithContext(ctx, server.ErrorTypeNetwork, "Request failed: "+err.Error(), "")
}
