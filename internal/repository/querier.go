package repository

import (
	"context"

	"github.com/lucratix100/cmga-invoice/internal/domain"
)

// Querier is the data-access port consumed by the services. Methods return
// fully-materialized domain values; relation loading is always explicit.
type Querier interface {
	// Begin starts a transaction; the returned Querier runs inside it.
	Begin(ctx context.Context) (Tx, Querier, error)

	// Invoices
	ImportInvoice(ctx context.Context, params ImportInvoiceParams) (domain.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (domain.Invoice, error)
	GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (domain.Invoice, error)
	ListInvoices(ctx context.Context, params ListInvoicesParams) ([]domain.Invoice, error)
	ListUnpaidInvoices(ctx context.Context) ([]domain.Invoice, error)
	ListReturnMarkedInvoices(ctx context.Context) ([]domain.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, params UpdateInvoiceStatusParams) error
	UpdateInvoiceDelivery(ctx context.Context, params UpdateInvoiceDeliveryParams) (domain.Invoice, error)
	UpdateInvoiceUrgency(ctx context.Context, params UpdateInvoiceUrgencyParams) (bool, error)
	ApplyInvoiceReturn(ctx context.Context, id int64) (domain.Invoice, error)

	// Payments
	CreatePayment(ctx context.Context, params CreatePaymentParams) (domain.Payment, error)
	DeletePayment(ctx context.Context, id int64) (domain.Payment, error)
	ListPaymentsForInvoice(ctx context.Context, invoiceID int64) ([]domain.Payment, error)
	GetPaymentsTotal(ctx context.Context, invoiceID int64) (int64, error)
	UpdateInvoicePaymentStatus(ctx context.Context, params UpdateInvoicePaymentStatusParams) error

	// Delivery notes
	CreateDeliveryNote(ctx context.Context, params CreateDeliveryNoteParams) (domain.DeliveryNote, error)
	GetDeliveryNote(ctx context.Context, id int64) (domain.DeliveryNote, error)
	ListDeliveryNotesForInvoice(ctx context.Context, invoiceID int64) ([]domain.DeliveryNote, error)
	ValidateDeliveryNote(ctx context.Context, id int64) (domain.DeliveryNote, error)
	CreateConfirmation(ctx context.Context, params CreateConfirmationParams) (domain.Confirmation, error)
	CountNotesAwaitingCompleteConfirmation(ctx context.Context, invoiceID int64) (int64, error)

	// Recovery settings
	ListActiveRecoverySettings(ctx context.Context) ([]domain.RecoverySetting, error)
	UpsertRecoverySetting(ctx context.Context, params UpsertRecoverySettingParams) (domain.RecoverySetting, error)
	GetCustomSettingForInvoice(ctx context.Context, invoiceID int64) (*domain.RecoveryCustomSetting, error)
	SetCustomSetting(ctx context.Context, params SetCustomSettingParams) (domain.RecoveryCustomSetting, error)
	DeleteCustomSetting(ctx context.Context, invoiceID int64) error

	// Job queue
	EnqueueJob(ctx context.Context, params EnqueueJobParams) (Job, error)
	ClaimNextJob(ctx context.Context, params ClaimNextJobParams) (Job, error)
	CompleteJob(ctx context.Context, id int64) error
	FailJob(ctx context.Context, params FailJobParams) (Job, error)
}

// Compile-time check that Queries implements Querier.
var _ Querier = (*Queries)(nil)
