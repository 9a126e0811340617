package domain

import (
	"context"
	"time"
)

// DeliveryNoteStatus tracks confirmation of a delivery note (BL).
type DeliveryNoteStatus string

const (
	NoteAwaitingConfirmation DeliveryNoteStatus = "awaiting-confirmation"
	NoteValidated            DeliveryNoteStatus = "validated"
)

// Delivery note errors.
var (
	ErrDeliveryNoteNotFound  = &Error{Code: ENOTFOUND, Message: "Delivery note not found"}
	ErrDeliveryNoteValidated = &Error{Code: ECONFLICT, Message: "Delivery note already validated"}
	ErrNoProductsLoaded      = &Error{Code: EINVALID, Message: "Delivery note must carry at least one product line"}
)

// ProductLine is one line of the product snapshot carried by a delivery note.
// The snapshot records what was loaded for delivery, independent of later
// catalog changes.
type ProductLine struct {
	Reference   string `json:"reference"`
	Designation string `json:"designation"`
	Quantity    int32  `json:"quantity"`
	UnitAmount  int64  `json:"unit_amount"`
}

// DeliveryNote (BL) represents goods dispatched with a driver for an invoice.
// Notes are never hard-deleted in normal operation.
type DeliveryNote struct {
	ID          int64
	InvoiceID   int64
	DriverID    int64
	CreatedByID int64

	Status      DeliveryNoteStatus
	IsDelivered bool
	Products    []ProductLine

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Confirmation records one delivery-completion event for a note.
type Confirmation struct {
	ID                 int64
	DeliveryNoteID     int64
	ConfirmedByID      int64
	IsCompleteDelivery bool
	CreatedAt          time.Time
}

// CreateDeliveryNoteParams dispatches a driver with goods for an invoice.
type CreateDeliveryNoteParams struct {
	InvoiceID   int64
	DriverID    int64
	CreatedByID int64
	Products    []ProductLine
}

// ConfirmDeliveryParams records a delivery-completion event.
type ConfirmDeliveryParams struct {
	DeliveryNoteID     int64
	ConfirmedByID      int64
	IsCompleteDelivery bool
}

// DeliveryResult reports the outcome of a confirmation: the validated note and
// the invoice status after the lifecycle engine has been notified.
type DeliveryResult struct {
	Note          *DeliveryNote
	InvoiceStatus DeliveryStatus
}

// DeliveryService manages delivery notes and their confirmations.
type DeliveryService interface {
	// CreateDeliveryNote creates a BL against an invoice and moves the
	// invoice to in-delivery.
	CreateDeliveryNote(ctx context.Context, params CreateDeliveryNoteParams) (*DeliveryNote, error)

	// GetDeliveryNote retrieves a note with its product snapshot.
	GetDeliveryNote(ctx context.Context, noteID int64) (*DeliveryNote, error)

	// ListDeliveryNotes lists the notes of an invoice, oldest first.
	ListDeliveryNotes(ctx context.Context, invoiceID int64) ([]DeliveryNote, error)

	// ConfirmDelivery validates a note, records the confirmation, and
	// notifies the invoice lifecycle engine atomically.
	ConfirmDelivery(ctx context.Context, params ConfirmDeliveryParams) (*DeliveryResult, error)
}
