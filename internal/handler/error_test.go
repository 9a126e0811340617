package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lucratix100/cmga-invoice/internal/domain"
)

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ErrorCodeToHTTPStatus(tt.code); got != tt.expected {
				t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.expected)
			}
		})
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "not found error",
			err:            domain.ErrInvoiceNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   domain.ENOTFOUND,
		},
		{
			name:           "validation error",
			err:            domain.Invalid("invoice.payment", "amount must be positive"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.EINVALID,
		},
		{
			name:           "conflict error",
			err:            domain.ErrInvoiceAlreadyPaid,
			expectedStatus: http.StatusConflict,
			expectedCode:   domain.ECONFLICT,
		},
		{
			name:           "forbidden error",
			err:            domain.Forbidden("invoice.regularize", "not authorized"),
			expectedStatus: http.StatusForbidden,
			expectedCode:   domain.EFORBIDDEN,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			rec := httptest.NewRecorder()

			ErrorResponse(rec, req, tt.err)

			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.expectedStatus)
			}

			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want %q", ct, "application/json")
			}

			var response struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}

			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if response.Error.Code != tt.expectedCode {
				t.Errorf("error.code = %q, want %q", response.Error.Code, tt.expectedCode)
			}
			if response.Error.Message == "" {
				t.Error("error.message is empty")
			}
		})
	}
}
