package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/auth"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/models"
)

// ServiceName is reported by the health endpoint
const ServiceName = "serpapi-travel"

// SearchStore is the part of the history service the HTTP endpoints need
type SearchStore interface {
	Recent(ctx context.Context, limit int) ([]*models.SearchRecord, error)
	Get(ctx context.Context, id int64) (*models.SearchRecord, error)
	Delete(ctx context.Context, id int64) error
}

// ErrorResponse is the JSON body of a failed HTTP request
type ErrorResponse struct {
	Error     string    `json:"error"`
	Type      ErrorType `json:"type,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// HTTPContextFunc adapts an HTTP request into the context passed to MCP
// handlers.
type HTTPContextFunc func(context.Context, *http.Request) context.Context

// SecureAuthContextFunc creates a request-scoped auth context. A caller can
// supply its own SerpAPI key in the X-SerpAPI-Key header; otherwise the
// configured key is used.
func SecureAuthContextFunc(fallbackKey string) HTTPContextFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		ctx = auth.WithAuthContext(ctx, auth.CreateAuthContext(r, fallbackKey))
		if requestID := r.Header.Get(RequestIDHeader); requestID != "" {
			ctx = WithRequestID(ctx, requestID)
		}
		return ctx
	}
}

// RequestIDMiddleware makes sure every request carries an X-Request-ID and
// echoes it in the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if requestID := r.Header.Get(RequestIDHeader); requestID != "" {
			ctx = WithRequestID(ctx, requestID)
		}
		ctx, requestID := EnsureRequestID(ctx)

		r = r.WithContext(ctx)
		r.Header.Set(RequestIDHeader, requestID)
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware allows browser based inspectors to reach the server
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Mcp-Session-Id, "+RequestIDHeader+", "+auth.HeaderAPIKey)
		w.Header().Set("Access-Control-Expose-Headers", "Mcp-Session-Id, "+RequestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleHealth handles the /health endpoint for health checks
func HandleHealth(logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"service": ServiceName,
		})
	}
}

// HandleListSearches handles GET /searches?limit=N
func HandleListSearches(store SearchStore, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, r, logger, NewErrorWithContext(r.Context(), ErrorTypeValidation, "limit must be a non-negative integer", raw))
				return
			}
			limit = n
		}

		records, err := store.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, records)
	}
}

// HandleGetSearch handles GET /searches/{id}
func HandleGetSearch(store SearchStore, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := searchID(w, r, logger)
		if !ok {
			return
		}
		record, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, record)
	}
}

// HandleDeleteSearch handles DELETE /searches/{id}
func HandleDeleteSearch(store SearchStore, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := searchID(w, r, logger)
		if !ok {
			return
		}
		if err := store.Delete(r.Context(), id); err != nil {
			writeError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func searchID(w http.ResponseWriter, r *http.Request, logger *logrus.Logger) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, logger, NewErrorWithContext(r.Context(), ErrorTypeValidation, "invalid search id", raw))
		return 0, false
	}
	return id, true
}

// StatusCode maps an error to the HTTP status returned for it
func StatusCode(err error) int {
	switch GetType(err) {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeAuth:
		return http.StatusUnauthorized
	case ErrorTypeNetwork, ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, err error) {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithField("path", r.URL.Path).Error("HTTP request failed")
	}
	writeJSON(w, logger, status, ErrorResponse{
		Error:     Message(err),
		Type:      GetType(err),
		RequestID: RequestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, logger *logrus.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("Failed to encode response")
	}
}
