package middleware

import (
	"net/http"
)

// Common size limits
const (
	KB = 1024
	MB = 1024 * KB

	// DefaultMaxBodySize is the default maximum request body size (1MB).
	// Invoice imports carry product snapshots but stay well under this.
	DefaultMaxBodySize = 1 * MB
)

// MaxBodySize limits the size of request bodies.
// If no size is provided, DefaultMaxBodySize is used.
// If the request body exceeds the limit, it returns 413 Request Entity Too Large.
func MaxBodySize(maxBytes ...int64) func(http.Handler) http.Handler {
	var limit int64
	if len(maxBytes) > 0 {
		limit = maxBytes[0]
	} else {
		limit = DefaultMaxBodySize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.ContentLength > limit {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
