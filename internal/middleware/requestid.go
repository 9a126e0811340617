package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request id end to end. The gateway sets it
	// on forwarded traffic; direct calls get a generated one.
	RequestIDHeader = "X-Request-ID"

	requestIDContextKey contextKey = "request_id"
)

// RequestID attaches a request id to the context and echoes it in the
// response headers so invoice and batch log lines can be correlated across
// services.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request id from the context, or "" when the
// middleware did not run.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}
