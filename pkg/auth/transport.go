package auth

import (
	"net/http"
)

// SecureRoundTripper adds authentication query parameters to outgoing
// requests. The caller's request is never modified.
type SecureRoundTripper struct {
	base     http.RoundTripper
	provider SecureAuthProvider
}

// NewSecureRoundTripper creates a new secure round tripper
func NewSecureRoundTripper(base http.RoundTripper, provider SecureAuthProvider) *SecureRoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	return &SecureRoundTripper{
		base:     base,
		provider: provider,
	}
}

// RoundTrip executes a single HTTP transaction with secure authentication
func (t *SecureRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	params := t.provider.GetAuthQueryParams(req.Context())
	if len(params) == 0 {
		return t.base.RoundTrip(req)
	}

	clonedReq := req.Clone(req.Context())
	q := clonedReq.URL.Query()
	for key, value := range params {
		q.Set(key, value)
	}
	clonedReq.URL.RawQuery = q.Encode()

	return t.base.RoundTrip(clonedReq)
}
