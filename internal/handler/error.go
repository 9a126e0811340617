// Package handler exposes the JSON API: invoice lifecycle, delivery notes,
// payments, and recovery settings.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lucratix100/cmga-invoice/internal/domain"
	"github.com/lucratix100/cmga-invoice/internal/middleware"
)

// ErrorCodeToHTTPStatus maps application error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse writes a structured JSON error response and logs the error.
// Internal errors are logged at error level with the underlying cause; client
// errors at info level.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)
	status := ErrorCodeToHTTPStatus(code)

	logger := slog.Default()
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
	}
	if reqID := middleware.GetRequestID(r.Context()); reqID != "" {
		attrs = append(attrs, "request_id", reqID)
	}

	if status >= 500 {
		logger.Error("request failed", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	RespondJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// RespondJSON writes v as a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// decodeAndValidate decodes the request body into dst and runs struct
// validation. Returns a domain validation error suitable for ErrorResponse.
func decodeAndValidate(r *http.Request, validate *validator.Validate, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Invalid("handler.decode", "Request body is not valid JSON")
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return domain.Invalid("handler.validate",
				"Invalid or missing fields: "+strings.Join(fields, ", "))
		}
		return domain.Invalid("handler.validate", "Request validation failed")
	}

	return nil
}

// pathID parses the {id} path segment as a positive int64.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("handler.path", "Invalid "+name+" in URL path")
	}
	return id, nil
}
