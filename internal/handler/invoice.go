package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lucratix100/cmga-invoice/internal/domain"
	"github.com/lucratix100/cmga-invoice/internal/service"
)

// InvoiceHandler serves the invoice lifecycle endpoints.
type InvoiceHandler struct {
	service  service.InvoiceService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(svc service.InvoiceService, logger *slog.Logger) *InvoiceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceHandler{
		service:  svc,
		validate: validator.New(),
		logger:   logger,
	}
}

type importInvoiceRequest struct {
	InvoiceNumber string    `json:"invoice_number" validate:"required"`
	AccountNumber string    `json:"account_number" validate:"required"`
	DepotID       int64     `json:"depot_id" validate:"required,gt=0"`
	CustomerID    int64     `json:"customer_id" validate:"required,gt=0"`
	TotalTTC      int64     `json:"total_ttc" validate:"required"`
	Date          time.Time `json:"date" validate:"required"`
}

// Import handles POST /api/v1/invoices
func (h *InvoiceHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importInvoiceRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	invoice, err := h.service.ImportInvoice(r.Context(), domain.ImportInvoiceParams{
		InvoiceNumber: req.InvoiceNumber,
		AccountNumber: req.AccountNumber,
		DepotID:       req.DepotID,
		CustomerID:    req.CustomerID,
		TotalTTC:      req.TotalTTC,
		Date:          req.Date,
	})
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	RespondJSON(w, http.StatusCreated, invoiceResponse(invoice))
}

// Get handles GET /api/v1/invoices/{id}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	invoice, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, invoiceResponse(invoice))
}

// List handles GET /api/v1/invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseInvoiceFilter(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	invoices, err := h.service.ListInvoices(r.Context(), filter)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	items := make([]map[string]any, 0, len(invoices))
	for i := range invoices {
		items = append(items, invoiceResponse(&invoices[i]))
	}
	RespondJSON(w, http.StatusOK, map[string]any{"invoices": items})
}

type recordPaymentRequest struct {
	Amount      int64     `json:"amount" validate:"required,gt=0"`
	Method      string    `json:"method" validate:"required"`
	Reference   string    `json:"reference"`
	PaymentDate time.Time `json:"payment_date" validate:"required"`
}

// RecordPayment handles POST /api/v1/invoices/{id}/payments
func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	var req recordPaymentRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	status, err := h.service.RecordPayment(r.Context(), domain.RecordPaymentParams{
		InvoiceID:   id,
		Amount:      req.Amount,
		Method:      req.Method,
		Reference:   req.Reference,
		PaymentDate: req.PaymentDate,
	})
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	RespondJSON(w, http.StatusCreated, map[string]any{
		"invoice_id":     id,
		"payment_status": status,
	})
}

// DeletePayment handles DELETE /api/v1/invoices/{id}/payments/{paymentID}
func (h *InvoiceHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	paymentID, err := pathID(r, "paymentID")
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	status, err := h.service.DeletePayment(r.Context(), id, paymentID)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"invoice_id":     id,
		"payment_status": status,
	})
}

// Regularize handles POST /api/v1/invoices/{id}/regularize
func (h *InvoiceHandler) Regularize(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	invoice, err := h.service.Regularize(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, invoiceResponse(invoice))
}

// ApplyReturnCorrection handles POST /api/v1/invoices/{id}/return-correction
func (h *InvoiceHandler) ApplyReturnCorrection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	correction, err := h.service.ApplyReturnCorrection(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, correction)
}

// RunUrgencyRecomputation handles POST /api/v1/batches/recompute-urgency.
// The batch runs synchronously and returns its report; the scheduler enqueues
// the same batch nightly through the job queue.
func (h *InvoiceHandler) RunUrgencyRecomputation(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RunUrgencyRecomputation(r.Context())
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, report)
}

// RunReturnCorrection handles POST /api/v1/batches/return-correction
func (h *InvoiceHandler) RunReturnCorrection(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RunReturnCorrection(r.Context())
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, report)
}

func invoiceResponse(inv *domain.Invoice) map[string]any {
	return map[string]any{
		"id":                   inv.ID,
		"invoice_number":       inv.InvoiceNumber,
		"account_number":       inv.AccountNumber,
		"depot_id":             inv.DepotID,
		"customer_id":          inv.CustomerID,
		"status":               inv.Status,
		"payment_status":       inv.StatusPayment,
		"total_ttc":            inv.TotalTTC,
		"is_completed":         inv.IsCompleted,
		"is_complete_delivery": inv.IsCompleteDelivery,
		"is_urgent":            inv.IsUrgent,
		"date":                 inv.Date,
		"delivered_at":         inv.DeliveredAt,
		"last_payment_date":    inv.LastPaymentDate,
		"created_at":           inv.CreatedAt,
		"updated_at":           inv.UpdatedAt,
	}
}

func parseInvoiceFilter(r *http.Request) (domain.InvoiceFilter, error) {
	q := r.URL.Query()
	filter := domain.InvoiceFilter{Limit: 50}

	if s := q.Get("status"); s != "" {
		status := domain.DeliveryStatus(s)
		switch status {
		case domain.StatusNotReceived, domain.StatusAwaitingDelivery,
			domain.StatusInDelivery, domain.StatusDelivered,
			domain.StatusReturned, domain.StatusRegularized:
			filter.Status = &status
		default:
			return filter, domain.Invalid("handler.filter", "Unknown status filter")
		}
	}

	if s := q.Get("payment_status"); s != "" {
		payment := domain.PaymentStatus(s)
		switch payment {
		case domain.PaymentUnpaid, domain.PaymentPartiallyPaid, domain.PaymentPaid:
			filter.Payment = &payment
		default:
			return filter, domain.Invalid("handler.filter", "Unknown payment status filter")
		}
	}

	if q.Get("urgent") == "true" {
		filter.UrgentOnly = true
	}

	if s := q.Get("depot_id"); s != "" {
		depotID, err := strconv.ParseInt(s, 10, 64)
		if err != nil || depotID <= 0 {
			return filter, domain.Invalid("handler.filter", "Invalid depot_id filter")
		}
		filter.DepotID = &depotID
	}

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.ParseInt(s, 10, 32)
		if err != nil || limit <= 0 || limit > 500 {
			return filter, domain.Invalid("handler.filter", "Limit must be between 1 and 500")
		}
		filter.Limit = int32(limit)
	}

	if s := q.Get("offset"); s != "" {
		offset, err := strconv.ParseInt(s, 10, 32)
		if err != nil || offset < 0 {
			return filter, domain.Invalid("handler.filter", "Offset must not be negative")
		}
		filter.Offset = int32(offset)
	}

	return filter, nil
}
