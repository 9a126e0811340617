package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/lucratix100/cmga-invoice/internal/domain"
	"github.com/lucratix100/cmga-invoice/internal/service"
)

// RecoveryHandler serves the recovery-delay settings endpoints.
type RecoveryHandler struct {
	service  service.RecoveryService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewRecoveryHandler creates a new recovery settings handler.
func NewRecoveryHandler(svc service.RecoveryService, logger *slog.Logger) *RecoveryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryHandler{
		service:  svc,
		validate: validator.New(),
		logger:   logger,
	}
}

// ListSettings handles GET /api/v1/recovery/settings
func (h *RecoveryHandler) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.ListSettings(r.Context())
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	items := make([]map[string]any, 0, len(settings))
	for i := range settings {
		items = append(items, settingResponse(&settings[i]))
	}
	RespondJSON(w, http.StatusOK, map[string]any{"settings": items})
}

type upsertSettingRequest struct {
	RootID      *int64 `json:"root_id"`
	Name        string `json:"name"`
	DefaultDays int    `json:"default_days" validate:"required,gt=0"`
	IsActive    *bool  `json:"is_active" validate:"required"`
}

// UpsertSetting handles PUT /api/v1/recovery/settings
func (h *RecoveryHandler) UpsertSetting(w http.ResponseWriter, r *http.Request) {
	var req upsertSettingRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	setting, err := h.service.UpsertSetting(r.Context(), domain.UpsertRecoverySettingParams{
		RootID:      req.RootID,
		Name:        req.Name,
		DefaultDays: req.DefaultDays,
		IsActive:    *req.IsActive,
	})
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, settingResponse(setting))
}

type customDelayRequest struct {
	Days int `json:"days" validate:"required,gt=0"`
}

// SetCustomDelay handles PUT /api/v1/invoices/{id}/recovery-delay
func (h *RecoveryHandler) SetCustomDelay(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := pathID(r, "id")
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	var req customDelayRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	custom, err := h.service.SetCustomDelay(r.Context(), invoiceID, req.Days)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"invoice_id":  custom.InvoiceID,
		"custom_days": custom.CustomDays,
		"created_at":  custom.CreatedAt,
	})
}

// ClearCustomDelay handles DELETE /api/v1/invoices/{id}/recovery-delay
func (h *RecoveryHandler) ClearCustomDelay(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := pathID(r, "id")
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	if err := h.service.ClearCustomDelay(r.Context(), invoiceID); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func settingResponse(s *domain.RecoverySetting) map[string]any {
	return map[string]any{
		"id":           s.ID,
		"root_id":      s.RootID,
		"name":         s.Name,
		"default_days": s.DefaultDays,
		"is_active":    s.IsActive,
		"created_at":   s.CreatedAt,
		"updated_at":   s.UpdatedAt,
	}
}
