package auth

import (
	"context"
)

// QueryParamName is the query parameter SerpAPI reads the key from.
const QueryParamName = "api_key"

// SecureAuthProvider provides authentication without global state mutation
type SecureAuthProvider interface {
	// Token returns the key to use for the given context, or "".
	Token(ctx context.Context) string

	// GetAuthQueryParams returns authentication query parameters for the given context
	GetAuthQueryParams(ctx context.Context) map[string]string
}

// contextAuthProvider prefers a token found in the request context and
// falls back to the configured key.
type contextAuthProvider struct {
	fallback string
}

// NewSecureAuthProvider creates a new secure authentication provider
func NewSecureAuthProvider(fallback string) SecureAuthProvider {
	return &contextAuthProvider{fallback: fallback}
}

func (p *contextAuthProvider) Token(ctx context.Context) string {
	if authCtx, ok := FromContext(ctx); ok && authCtx.Token != "" {
		return authCtx.Token
	}
	return p.fallback
}

// GetAuthQueryParams extracts authentication query parameters from context
func (p *contextAuthProvider) GetAuthQueryParams(ctx context.Context) map[string]string {
	token := p.Token(ctx)
	if token == "" {
		return nil
	}
	return map[string]string{QueryParamName: token}
}
