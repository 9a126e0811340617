package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/lucratix100/cmga-invoice/internal/domain"
	"github.com/lucratix100/cmga-invoice/internal/service"
)

// DeliveryHandler serves the delivery note (BL) endpoints.
type DeliveryHandler struct {
	service  service.DeliveryService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewDeliveryHandler creates a new delivery handler.
func NewDeliveryHandler(svc service.DeliveryService, logger *slog.Logger) *DeliveryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeliveryHandler{
		service:  svc,
		validate: validator.New(),
		logger:   logger,
	}
}

type productLineRequest struct {
	Reference   string `json:"reference" validate:"required"`
	Designation string `json:"designation" validate:"required"`
	Quantity    int32  `json:"quantity" validate:"required,gt=0"`
	UnitAmount  int64  `json:"unit_amount" validate:"gte=0"`
}

type createDeliveryNoteRequest struct {
	InvoiceID   int64                `json:"invoice_id" validate:"required,gt=0"`
	DriverID    int64                `json:"driver_id" validate:"required,gt=0"`
	CreatedByID int64                `json:"created_by_id" validate:"required,gt=0"`
	Products    []productLineRequest `json:"products" validate:"required,min=1,dive"`
}

// Create handles POST /api/v1/delivery-notes
func (h *DeliveryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDeliveryNoteRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	products := make([]domain.ProductLine, 0, len(req.Products))
	for _, p := range req.Products {
		products = append(products, domain.ProductLine{
			Reference:   p.Reference,
			Designation: p.Designation,
			Quantity:    p.Quantity,
			UnitAmount:  p.UnitAmount,
		})
	}

	note, err := h.service.CreateDeliveryNote(r.Context(), domain.CreateDeliveryNoteParams{
		InvoiceID:   req.InvoiceID,
		DriverID:    req.DriverID,
		CreatedByID: req.CreatedByID,
		Products:    products,
	})
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	RespondJSON(w, http.StatusCreated, noteResponse(note))
}

// Get handles GET /api/v1/delivery-notes/{id}
func (h *DeliveryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	note, err := h.service.GetDeliveryNote(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, noteResponse(note))
}

// ListForInvoice handles GET /api/v1/invoices/{id}/delivery-notes
func (h *DeliveryHandler) ListForInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := pathID(r, "id")
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	notes, err := h.service.ListDeliveryNotes(r.Context(), invoiceID)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	items := make([]map[string]any, 0, len(notes))
	for i := range notes {
		items = append(items, noteResponse(&notes[i]))
	}
	RespondJSON(w, http.StatusOK, map[string]any{"delivery_notes": items})
}

type confirmDeliveryRequest struct {
	ConfirmedByID      int64 `json:"confirmed_by_id" validate:"required,gt=0"`
	IsCompleteDelivery *bool `json:"is_complete_delivery" validate:"required"`
}

// Confirm handles POST /api/v1/delivery-notes/{id}/confirm
func (h *DeliveryHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	var req confirmDeliveryRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	result, err := h.service.ConfirmDelivery(r.Context(), domain.ConfirmDeliveryParams{
		DeliveryNoteID:     id,
		ConfirmedByID:      req.ConfirmedByID,
		IsCompleteDelivery: *req.IsCompleteDelivery,
	})
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"delivery_note":  noteResponse(result.Note),
		"invoice_status": result.InvoiceStatus,
	})
}

func noteResponse(note *domain.DeliveryNote) map[string]any {
	return map[string]any{
		"id":            note.ID,
		"invoice_id":    note.InvoiceID,
		"driver_id":     note.DriverID,
		"created_by_id": note.CreatedByID,
		"status":        note.Status,
		"is_delivered":  note.IsDelivered,
		"products":      note.Products,
		"created_at":    note.CreatedAt,
		"updated_at":    note.UpdatedAt,
	}
}
