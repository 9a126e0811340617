// Package middleware provides HTTP middleware shared by the API routes:
// request identification, role checks, body limits, and Prometheus metrics.
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/lucratix100/cmga-invoice/internal/domain"
)

type contextKey string

// respondError writes a structured JSON error response. It mirrors the
// handler package's error mapping but is self-contained to avoid a
// circular import (handler depends on middleware for context accessors).
func respondError(w http.ResponseWriter, err error) {
	code := domain.ErrorCode(err)
	status := errorCodeToHTTPStatus(code)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": domain.ErrorMessage(err),
		},
	})
}

func errorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
