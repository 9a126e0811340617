package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lucratix100/cmga-invoice/internal/domain"
	"github.com/lucratix100/cmga-invoice/internal/recovery"
	"github.com/lucratix100/cmga-invoice/internal/repository"
)

// InvoiceService is re-exported from domain; the implementation lives here.
type InvoiceService = domain.InvoiceService

// Parameter types are aliased from domain so callers can stay on one import.
type (
	ImportInvoiceParams   = domain.ImportInvoiceParams
	RecordPaymentParams   = domain.RecordPaymentParams
	ConfirmDeliveryParams = domain.ConfirmDeliveryParams
)

type invoiceService struct {
	repo   repository.Querier
	logger *slog.Logger

	// now is injectable so urgency cutoffs are testable.
	now func() time.Time
}

// NewInvoiceService creates the invoice lifecycle engine.
func NewInvoiceService(repo repository.Querier, logger *slog.Logger) domain.InvoiceService {
	return &invoiceService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// ImportInvoice registers an invoice received from the external ERP. The
// invoice leaves the not-received initial state and awaits delivery.
func (s *invoiceService) ImportInvoice(ctx context.Context, params ImportInvoiceParams) (*domain.Invoice, error) {
	if params.InvoiceNumber == "" {
		return nil, domain.Invalid("invoice.import", "invoice number is required")
	}

	if _, err := s.repo.GetInvoiceByNumber(ctx, params.InvoiceNumber); err == nil {
		return nil, domain.ErrInvoiceNotImportable
	}

	inv, err := s.repo.ImportInvoice(ctx, repository.ImportInvoiceParams{
		InvoiceNumber: params.InvoiceNumber,
		AccountNumber: params.AccountNumber,
		DepotID:       params.DepotID,
		CustomerID:    params.CustomerID,
		TotalTTC:      params.TotalTTC,
		Date:          params.Date,
	})
	if err != nil {
		return nil, domain.Internal(err, "invoice.import", "failed to register invoice")
	}

	return &inv, nil
}

// GetInvoice retrieves an invoice by ID.
func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID int64) (*domain.Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListInvoices lists invoices matching the filter, newest first.
func (s *invoiceService) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	params := repository.ListInvoicesParams{
		UrgentOnly: filter.UrgentOnly,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}
	if filter.Status != nil {
		params.Status = pgtype.Text{String: string(*filter.Status), Valid: true}
	}
	if filter.Payment != nil {
		params.Payment = pgtype.Text{String: string(*filter.Payment), Valid: true}
	}
	if filter.DepotID != nil {
		params.DepotID = pgtype.Int8{Int64: *filter.DepotID, Valid: true}
	}

	invoices, err := s.repo.ListInvoices(ctx, params)
	if err != nil {
		return nil, domain.Internal(err, "invoice.list", "failed to list invoices")
	}
	return invoices, nil
}

// RecordPayment records a payment and rederives the payment status inside the
// same transaction as the insert. Callers never set statusPayment directly.
func (s *invoiceService) RecordPayment(ctx context.Context, params RecordPaymentParams) (domain.PaymentStatus, error) {
	if params.Amount <= 0 {
		return "", domain.ErrPaymentNotPositive
	}

	tx, qtx, err := s.repo.Begin(ctx)
	if err != nil {
		return "", domain.Internal(err, "invoice.payment", "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	inv, err := qtx.GetInvoice(ctx, params.InvoiceID)
	if err != nil {
		return "", err
	}
	if inv.StatusPayment == domain.PaymentPaid {
		return "", domain.ErrInvoiceAlreadyPaid
	}

	if _, err := qtx.CreatePayment(ctx, repository.CreatePaymentParams{
		InvoiceID:   params.InvoiceID,
		Amount:      params.Amount,
		Method:      params.Method,
		Reference:   params.Reference,
		PaymentDate: params.PaymentDate,
	}); err != nil {
		return "", domain.Internal(err, "invoice.payment", "failed to record payment")
	}

	total, err := qtx.GetPaymentsTotal(ctx, params.InvoiceID)
	if err != nil {
		return "", domain.Internal(err, "invoice.payment", "failed to sum payments")
	}

	newStatus := derivePaymentStatus(total, inv.TotalTTC)
	lastPayment := params.PaymentDate
	if inv.LastPaymentDate != nil && inv.LastPaymentDate.After(lastPayment) {
		lastPayment = *inv.LastPaymentDate
	}

	if err := qtx.UpdateInvoicePaymentStatus(ctx, repository.UpdateInvoicePaymentStatusParams{
		ID:              params.InvoiceID,
		StatusPayment:   newStatus,
		LastPaymentDate: pgtype.Timestamptz{Time: lastPayment, Valid: true},
	}); err != nil {
		return "", domain.Internal(err, "invoice.payment", "failed to update payment status")
	}

	if err := tx.Commit(ctx); err != nil {
		return "", domain.Internal(err, "invoice.payment", "failed to commit payment")
	}

	return newStatus, nil
}

// DeletePayment removes a recorded payment and rederives the payment status
// inside the same transaction as the delete. The last payment date is
// recomputed from the remaining payments and nulled when none are left.
func (s *invoiceService) DeletePayment(ctx context.Context, invoiceID, paymentID int64) (domain.PaymentStatus, error) {
	tx, qtx, err := s.repo.Begin(ctx)
	if err != nil {
		return "", domain.Internal(err, "invoice.payment", "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	inv, err := qtx.GetInvoice(ctx, invoiceID)
	if err != nil {
		return "", err
	}

	payment, err := qtx.DeletePayment(ctx, paymentID)
	if err != nil {
		return "", err
	}
	if payment.InvoiceID != invoiceID {
		return "", domain.ErrPaymentNotFound
	}

	total, err := qtx.GetPaymentsTotal(ctx, invoiceID)
	if err != nil {
		return "", domain.Internal(err, "invoice.payment", "failed to sum payments")
	}

	remaining, err := qtx.ListPaymentsForInvoice(ctx, invoiceID)
	if err != nil {
		return "", domain.Internal(err, "invoice.payment", "failed to list payments")
	}
	var lastPayment pgtype.Timestamptz
	for _, p := range remaining {
		if !lastPayment.Valid || p.PaymentDate.After(lastPayment.Time) {
			lastPayment = pgtype.Timestamptz{Time: p.PaymentDate, Valid: true}
		}
	}

	newStatus := derivePaymentStatus(total, inv.TotalTTC)
	if err := qtx.UpdateInvoicePaymentStatus(ctx, repository.UpdateInvoicePaymentStatusParams{
		ID:              invoiceID,
		StatusPayment:   newStatus,
		LastPaymentDate: lastPayment,
	}); err != nil {
		return "", domain.Internal(err, "invoice.payment", "failed to update payment status")
	}

	if err := tx.Commit(ctx); err != nil {
		return "", domain.Internal(err, "invoice.payment", "failed to commit payment deletion")
	}

	s.logger.Info("payment deleted",
		"invoice_id", invoiceID, "payment_id", paymentID, "payment_status", newStatus)
	return newStatus, nil
}

// derivePaymentStatus maps the payments sum against the invoice total.
func derivePaymentStatus(total, totalTTC int64) domain.PaymentStatus {
	switch {
	case total <= 0:
		return domain.PaymentUnpaid
	case total < totalTTC:
		return domain.PaymentPartiallyPaid
	default:
		return domain.PaymentPaid
	}
}

// OnDeliveryConfirmed advances delivery status after a confirmation.
func (s *invoiceService) OnDeliveryConfirmed(ctx context.Context, invoiceID int64, isCompleteDelivery bool) (domain.DeliveryStatus, error) {
	tx, qtx, err := s.repo.Begin(ctx)
	if err != nil {
		return "", domain.Internal(err, "invoice.delivery", "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	status, err := advanceDeliveryStatus(ctx, qtx, invoiceID, s.now())
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", domain.Internal(err, "invoice.delivery", "failed to commit status change")
	}
	return status, nil
}

// advanceDeliveryStatus applies the delivery state machine after a
// confirmation has been written. The invoice reaches delivered only once no
// note is left without a complete-delivery confirmation. Runs on the caller's
// Querier so the delivery service can invoke it inside its own transaction.
func advanceDeliveryStatus(ctx context.Context, q repository.Querier, invoiceID int64, now time.Time) (domain.DeliveryStatus, error) {
	inv, err := q.GetInvoice(ctx, invoiceID)
	if err != nil {
		return "", err
	}

	switch inv.Status {
	case domain.StatusReturned, domain.StatusRegularized:
		return "", domain.ErrInvoiceTerminal
	case domain.StatusDelivered:
		return domain.StatusDelivered, nil
	}

	outstanding, err := q.CountNotesAwaitingCompleteConfirmation(ctx, invoiceID)
	if err != nil {
		return "", domain.Internal(err, "invoice.delivery", "failed to count outstanding notes")
	}

	if outstanding == 0 {
		if _, err := q.UpdateInvoiceDelivery(ctx, repository.UpdateInvoiceDeliveryParams{
			ID:                 invoiceID,
			Status:             domain.StatusDelivered,
			DeliveredAt:        now,
			IsCompleteDelivery: true,
			IsCompleted:        true,
		}); err != nil {
			return "", domain.Internal(err, "invoice.delivery", "failed to mark invoice delivered")
		}
		return domain.StatusDelivered, nil
	}

	if inv.Status != domain.StatusInDelivery {
		if err := q.UpdateInvoiceStatus(ctx, repository.UpdateInvoiceStatusParams{
			ID:     invoiceID,
			Status: domain.StatusInDelivery,
		}); err != nil {
			return "", domain.Internal(err, "invoice.delivery", "failed to update invoice status")
		}
	}
	return domain.StatusInDelivery, nil
}

// ApplyReturnCorrection moves an invoice to returned and forces its total to
// the negative absolute value. Reapplying does not double-negate. The read and
// the write share one transaction so the reported old state is exact.
func (s *invoiceService) ApplyReturnCorrection(ctx context.Context, invoiceID int64) (*domain.ReturnCorrection, error) {
	tx, qtx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, domain.Internal(err, "invoice.return", "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	inv, err := qtx.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	updated, err := qtx.ApplyInvoiceReturn(ctx, invoiceID)
	if err != nil {
		return nil, domain.Internal(err, "invoice.return", "failed to apply return correction")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.Internal(err, "invoice.return", "failed to commit return correction")
	}

	return &domain.ReturnCorrection{
		InvoiceID: invoiceID,
		OldStatus: inv.Status,
		NewStatus: updated.Status,
		OldTotal:  inv.TotalTTC,
		NewTotal:  updated.TotalTTC,
	}, nil
}

// Regularize is the administrative correction outside the normal flow. It has
// no automatic trigger.
func (s *invoiceService) Regularize(ctx context.Context, invoiceID int64) (*domain.Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == domain.StatusNotReceived {
		return nil, domain.ErrRegularizeNotReceived
	}

	if err := s.repo.UpdateInvoiceStatus(ctx, repository.UpdateInvoiceStatusParams{
		ID:     invoiceID,
		Status: domain.StatusRegularized,
	}); err != nil {
		return nil, domain.Internal(err, "invoice.regularize", "failed to regularize invoice")
	}

	inv.Status = domain.StatusRegularized
	return &inv, nil
}

// RunUrgencyRecomputation recomputes the urgency flag for every unpaid
// invoice. A single invoice's failure never aborts the batch; failures are
// aggregated into the report. Running it twice with no intervening changes
// yields zero updates on the second run.
func (s *invoiceService) RunUrgencyRecomputation(ctx context.Context) (*domain.RecomputationReport, error) {
	settings, err := s.repo.ListActiveRecoverySettings(ctx)
	if err != nil {
		return nil, domain.Internal(err, "recovery.recompute", "failed to load recovery settings")
	}

	invoices, err := s.repo.ListUnpaidInvoices(ctx)
	if err != nil {
		return nil, domain.Internal(err, "recovery.recompute", "failed to list unpaid invoices")
	}

	report := &domain.RecomputationReport{}
	now := s.now()

	for _, inv := range invoices {
		report.Scanned++

		payments, err := retryOnce(func() ([]domain.Payment, error) {
			return s.repo.ListPaymentsForInvoice(ctx, inv.ID)
		})
		if err != nil {
			report.Errors = append(report.Errors, domain.RecomputationError{
				InvoiceID: inv.ID, Reason: fmt.Sprintf("load payments: %v", err),
			})
			continue
		}

		custom, err := retryOnce(func() (*domain.RecoveryCustomSetting, error) {
			return s.repo.GetCustomSettingForInvoice(ctx, inv.ID)
		})
		if err != nil {
			report.Errors = append(report.Errors, domain.RecomputationError{
				InvoiceID: inv.ID, Reason: fmt.Sprintf("load custom setting: %v", err),
			})
			continue
		}

		ref, ok := recovery.ReferenceDate(inv, payments)
		if !ok {
			// Data-quality gap: not delivered yet or missing dates.
			// Conservatively treated as not-urgent.
			report.Skipped++
			s.logger.Warn("invoice has no reference date, skipping urgency check",
				"invoice_id", inv.ID, "invoice_number", inv.InvoiceNumber)
			continue
		}

		threshold := recovery.ResolveThresholdDays(inv, custom, settings)
		urgent := recovery.Urgent(ref, now, threshold)
		if urgent == inv.IsUrgent {
			continue
		}

		changed, err := retryOnce(func() (bool, error) {
			return s.repo.UpdateInvoiceUrgency(ctx, repository.UpdateInvoiceUrgencyParams{
				ID: inv.ID, IsUrgent: urgent,
			})
		})
		if err != nil {
			report.Errors = append(report.Errors, domain.RecomputationError{
				InvoiceID: inv.ID, Reason: fmt.Sprintf("persist urgency: %v", err),
			})
			continue
		}
		if changed {
			report.Updated++
		}
	}

	return report, nil
}

// RunReturnCorrection applies the return correction to every invoice whose
// number carries the return marker. Per-item isolation, same as the urgency
// batch.
func (s *invoiceService) RunReturnCorrection(ctx context.Context) (*domain.ReturnCorrectionReport, error) {
	invoices, err := s.repo.ListReturnMarkedInvoices(ctx)
	if err != nil {
		return nil, domain.Internal(err, "invoice.return_batch", "failed to list return-marked invoices")
	}

	report := &domain.ReturnCorrectionReport{}
	for _, inv := range invoices {
		report.Scanned++
		correction, err := s.ApplyReturnCorrection(ctx, inv.ID)
		if err != nil {
			report.Errors = append(report.Errors, domain.RecomputationError{
				InvoiceID: inv.ID, Reason: err.Error(),
			})
			continue
		}
		report.Corrected = append(report.Corrected, *correction)
	}

	return report, nil
}

// retryOnce retries a persistence call once before giving up.
func retryOnce[T any](fn func() (T, error)) (T, error) {
	v, err := fn()
	if err == nil {
		return v, nil
	}
	return fn()
}
