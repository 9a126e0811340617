package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/lucratix100/cmga-invoice/internal/domain"
	"github.com/lucratix100/cmga-invoice/internal/repository"
)

// DeliveryService re-exports the domain interface for handler wiring.
type DeliveryService = domain.DeliveryService

type deliveryService struct {
	repo   repository.Querier
	logger *slog.Logger
	now    func() time.Time
}

// NewDeliveryService creates the delivery note service.
func NewDeliveryService(repo repository.Querier, logger *slog.Logger) domain.DeliveryService {
	return &deliveryService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// CreateDeliveryNote creates a BL against an invoice and moves the invoice to
// in-delivery.
func (s *deliveryService) CreateDeliveryNote(ctx context.Context, params domain.CreateDeliveryNoteParams) (*domain.DeliveryNote, error) {
	if len(params.Products) == 0 {
		return nil, domain.ErrNoProductsLoaded
	}

	tx, qtx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, domain.Internal(err, "delivery.create", "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	inv, err := qtx.GetInvoice(ctx, params.InvoiceID)
	if err != nil {
		return nil, err
	}
	switch inv.Status {
	case domain.StatusAwaitingDelivery, domain.StatusInDelivery:
		// dispatchable
	default:
		return nil, domain.ErrInvoiceNotDeliverable
	}

	note, err := qtx.CreateDeliveryNote(ctx, repository.CreateDeliveryNoteParams{
		InvoiceID:   params.InvoiceID,
		DriverID:    params.DriverID,
		CreatedByID: params.CreatedByID,
		Products:    params.Products,
	})
	if err != nil {
		return nil, domain.Internal(err, "delivery.create", "failed to create delivery note")
	}

	if inv.Status == domain.StatusAwaitingDelivery {
		if err := qtx.UpdateInvoiceStatus(ctx, repository.UpdateInvoiceStatusParams{
			ID:     params.InvoiceID,
			Status: domain.StatusInDelivery,
		}); err != nil {
			return nil, domain.Internal(err, "delivery.create", "failed to move invoice to in-delivery")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.Internal(err, "delivery.create", "failed to commit delivery note")
	}

	s.logger.Info("delivery note created",
		"note_id", note.ID, "invoice_id", note.InvoiceID, "driver_id", note.DriverID)
	return &note, nil
}

// GetDeliveryNote retrieves a note with its product snapshot.
func (s *deliveryService) GetDeliveryNote(ctx context.Context, noteID int64) (*domain.DeliveryNote, error) {
	note, err := s.repo.GetDeliveryNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// ListDeliveryNotes lists the notes of an invoice, oldest first.
func (s *deliveryService) ListDeliveryNotes(ctx context.Context, invoiceID int64) ([]domain.DeliveryNote, error) {
	notes, err := s.repo.ListDeliveryNotesForInvoice(ctx, invoiceID)
	if err != nil {
		return nil, domain.Internal(err, "delivery.list", "failed to list delivery notes")
	}
	return notes, nil
}

// ConfirmDelivery validates a note, records the confirmation, and advances the
// invoice status, all in one transaction so no inconsistent intermediate state
// is ever visible.
func (s *deliveryService) ConfirmDelivery(ctx context.Context, params domain.ConfirmDeliveryParams) (*domain.DeliveryResult, error) {
	tx, qtx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, domain.Internal(err, "delivery.confirm", "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	note, err := qtx.GetDeliveryNote(ctx, params.DeliveryNoteID)
	if err != nil {
		return nil, err
	}
	if note.Status == domain.NoteValidated {
		return nil, domain.ErrDeliveryNoteValidated
	}

	if _, err := qtx.CreateConfirmation(ctx, repository.CreateConfirmationParams{
		DeliveryNoteID:     params.DeliveryNoteID,
		ConfirmedByID:      params.ConfirmedByID,
		IsCompleteDelivery: params.IsCompleteDelivery,
	}); err != nil {
		return nil, domain.Internal(err, "delivery.confirm", "failed to record confirmation")
	}

	validated, err := qtx.ValidateDeliveryNote(ctx, params.DeliveryNoteID)
	if err != nil {
		return nil, domain.Internal(err, "delivery.confirm", "failed to validate delivery note")
	}

	status, err := advanceDeliveryStatus(ctx, qtx, note.InvoiceID, s.now())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.Internal(err, "delivery.confirm", "failed to commit confirmation")
	}

	s.logger.Info("delivery confirmed",
		"note_id", validated.ID, "invoice_id", note.InvoiceID,
		"complete", params.IsCompleteDelivery, "invoice_status", status)

	return &domain.DeliveryResult{Note: &validated, InvoiceStatus: status}, nil
}
