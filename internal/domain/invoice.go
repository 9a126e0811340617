package domain

import (
	"context"
	"time"
)

// DeliveryStatus tracks how far an invoice has progressed through delivery.
type DeliveryStatus string

const (
	StatusNotReceived      DeliveryStatus = "not-received"
	StatusAwaitingDelivery DeliveryStatus = "awaiting-delivery"
	StatusInDelivery       DeliveryStatus = "in-delivery"
	StatusDelivered        DeliveryStatus = "delivered"
	StatusReturned         DeliveryStatus = "returned"
	StatusRegularized      DeliveryStatus = "regularized"
)

// PaymentStatus is derived from the sum of recorded payments against the
// invoice total. It is never written directly by callers.
type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "unpaid"
	PaymentPartiallyPaid PaymentStatus = "partially-paid"
	PaymentPaid          PaymentStatus = "paid"
)

// Invoice-related domain errors.
var (
	ErrInvoiceNotFound       = &Error{Code: ENOTFOUND, Message: "Invoice not found"}
	ErrInvoiceAlreadyPaid    = &Error{Code: ECONFLICT, Message: "Invoice already paid in full"}
	ErrInvoiceNotDeliverable = &Error{Code: EINVALID, Message: "Invoice is not awaiting delivery"}
	ErrInvoiceTerminal       = &Error{Code: ECONFLICT, Message: "Invoice is in a terminal status"}
	ErrInvoiceNotImportable  = &Error{Code: ECONFLICT, Message: "Invoice number already registered"}
	ErrPaymentNotPositive    = &Error{Code: EINVALID, Message: "Payment amount must be positive"}
	ErrPaymentNotFound       = &Error{Code: ENOTFOUND, Message: "Payment not found"}
	ErrRegularizeNotReceived = &Error{Code: EINVALID, Message: "Cannot regularize an invoice that was never received"}
)

// Invoice is the central entity: an ERP-imported invoice assigned to a depot,
// delivered via delivery notes and tracked for payment and recovery.
type Invoice struct {
	ID            int64
	InvoiceNumber string
	AccountNumber string
	DepotID       int64
	CustomerID    int64

	Status        DeliveryStatus
	StatusPayment PaymentStatus

	// TotalTTC is a signed amount in minor currency units. Returns carry a
	// non-positive total.
	TotalTTC int64

	IsCompleted        bool
	IsCompleteDelivery bool
	IsUrgent           bool

	Date            time.Time
	DeliveredAt     *time.Time
	LastPaymentDate *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Payment is one recorded payment against an invoice.
type Payment struct {
	ID          int64
	InvoiceID   int64
	Amount      int64
	Method      string
	Reference   string
	PaymentDate time.Time
	CreatedAt   time.Time
}

// ImportInvoiceParams registers an invoice received from the external ERP.
// Registration moves the invoice out of the not-received initial state.
type ImportInvoiceParams struct {
	InvoiceNumber string
	AccountNumber string
	DepotID       int64
	CustomerID    int64
	TotalTTC      int64
	Date          time.Time
}

// RecordPaymentParams contains parameters for recording a payment.
type RecordPaymentParams struct {
	InvoiceID   int64
	Amount      int64
	Method      string
	Reference   string
	PaymentDate time.Time
}

// ReturnCorrection reports the effect of applying a return correction.
type ReturnCorrection struct {
	InvoiceID int64          `json:"invoice_id"`
	OldStatus DeliveryStatus `json:"old_status"`
	NewStatus DeliveryStatus `json:"new_status"`
	OldTotal  int64          `json:"old_total"`
	NewTotal  int64          `json:"new_total"`
}

// RecomputationError records a single invoice that could not be processed
// during a batch run.
type RecomputationError struct {
	InvoiceID int64  `json:"invoice_id"`
	Reason    string `json:"reason"`
}

// RecomputationReport summarizes one urgency recomputation run. Skipped counts
// invoices with missing reference dates (data-quality, not failures).
type RecomputationReport struct {
	Scanned int                  `json:"scanned"`
	Updated int                  `json:"updated"`
	Skipped int                  `json:"skipped"`
	Errors  []RecomputationError `json:"errors,omitempty"`
}

// ReturnCorrectionReport summarizes one return-correction batch run.
type ReturnCorrectionReport struct {
	Scanned   int                  `json:"scanned"`
	Corrected []ReturnCorrection   `json:"corrected,omitempty"`
	Errors    []RecomputationError `json:"errors,omitempty"`
}

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	Status     *DeliveryStatus
	Payment    *PaymentStatus
	UrgentOnly bool
	DepotID    *int64
	Limit      int32
	Offset     int32
}

// InvoiceService owns the invoice delivery/recovery lifecycle: delivery status
// transitions, derived payment status, and the urgency recomputation batch.
type InvoiceService interface {
	// ImportInvoice registers an invoice from the external ERP.
	// The invoice enters the awaiting-delivery state.
	ImportInvoice(ctx context.Context, params ImportInvoiceParams) (*Invoice, error)

	// GetInvoice retrieves an invoice by ID.
	GetInvoice(ctx context.Context, invoiceID int64) (*Invoice, error)

	// ListInvoices lists invoices matching the filter, newest first.
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)

	// RecordPayment records a payment and rederives the payment status
	// atomically with the insert. Returns the new payment status.
	RecordPayment(ctx context.Context, params RecordPaymentParams) (PaymentStatus, error)

	// DeletePayment removes a recorded payment and rederives the payment
	// status atomically with the delete. Returns the new payment status.
	DeletePayment(ctx context.Context, invoiceID, paymentID int64) (PaymentStatus, error)

	// OnDeliveryConfirmed advances delivery status after a confirmation.
	// The invoice reaches delivered only once every outstanding delivery
	// note has been confirmed complete. Returns the new status.
	OnDeliveryConfirmed(ctx context.Context, invoiceID int64, isCompleteDelivery bool) (DeliveryStatus, error)

	// ApplyReturnCorrection moves an invoice to returned and forces its
	// total to the negative absolute value. Idempotent.
	ApplyReturnCorrection(ctx context.Context, invoiceID int64) (*ReturnCorrection, error)

	// Regularize is the administrative-only correction outside the normal
	// delivery/payment flow. Never triggered automatically.
	Regularize(ctx context.Context, invoiceID int64) (*Invoice, error)

	// RunUrgencyRecomputation recomputes the urgency flag for every unpaid
	// invoice. Idempotent; a failing invoice never aborts the batch.
	RunUrgencyRecomputation(ctx context.Context) (*RecomputationReport, error)

	// RunReturnCorrection applies the return correction to every invoice
	// whose number carries the return marker. Idempotent.
	RunReturnCorrection(ctx context.Context) (*ReturnCorrectionReport, error)
}
