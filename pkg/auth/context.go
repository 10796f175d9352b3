package auth

import (
	"context"
	"net/http"
	"strings"
)

// HeaderAPIKey lets HTTP callers supply their own SerpAPI key.
const HeaderAPIKey = "X-SerpAPI-Key"

// Token sources
const (
	SourceHeader = "header"
	SourceConfig = "config"
)

type AuthContext struct {
	Token  string
	Source string
}

type contextKey string

const authContextKey contextKey = "auth"

// CreateAuthContext builds the auth context for one HTTP request. A key sent
// in the X-SerpAPI-Key header takes precedence over the configured fallback.
func CreateAuthContext(r *http.Request, fallback string) *AuthContext {
	if token := strings.TrimSpace(r.Header.Get(HeaderAPIKey)); token != "" {
		return &AuthContext{Token: token, Source: SourceHeader}
	}
	return &AuthContext{Token: fallback, Source: SourceConfig}
}

func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

func FromContext(ctx context.Context) (*AuthContext, bool) {
	authCtx, ok := ctx.Value(authContextKey).(*AuthContext)
	return authCtx, ok
}
