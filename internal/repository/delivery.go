package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lucratix100/cmga-invoice/internal/domain"
)

const deliveryNoteColumns = `id, invoice_id, driver_id, created_by_id, status,
	is_delivered, products, created_at, updated_at`

// CreateDeliveryNoteParams dispatches a driver with a product snapshot.
type CreateDeliveryNoteParams struct {
	InvoiceID   int64
	DriverID    int64
	CreatedByID int64
	Products    []domain.ProductLine
}

// CreateConfirmationParams records a delivery-completion event for a note.
type CreateConfirmationParams struct {
	DeliveryNoteID     int64
	ConfirmedByID      int64
	IsCompleteDelivery bool
}

func scanDeliveryNote(row invoiceScanner) (domain.DeliveryNote, error) {
	var (
		note     domain.DeliveryNote
		products []byte
	)
	err := row.Scan(
		&note.ID, &note.InvoiceID, &note.DriverID, &note.CreatedByID,
		&note.Status, &note.IsDelivered, &products, &note.CreatedAt, &note.UpdatedAt,
	)
	if err != nil {
		return domain.DeliveryNote{}, err
	}
	if err := json.Unmarshal(products, &note.Products); err != nil {
		return domain.DeliveryNote{}, fmt.Errorf("failed to decode product snapshot: %w", err)
	}
	return note, nil
}

// CreateDeliveryNote inserts a note in awaiting-confirmation.
func (q *Queries) CreateDeliveryNote(ctx context.Context, params CreateDeliveryNoteParams) (domain.DeliveryNote, error) {
	products, err := json.Marshal(params.Products)
	if err != nil {
		return domain.DeliveryNote{}, fmt.Errorf("failed to encode product snapshot: %w", err)
	}

	row := q.db.QueryRow(ctx, `
		INSERT INTO delivery_notes (invoice_id, driver_id, created_by_id, status, products)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+deliveryNoteColumns,
		params.InvoiceID, params.DriverID, params.CreatedByID,
		domain.NoteAwaitingConfirmation, products,
	)
	return scanDeliveryNote(row)
}

// GetDeliveryNote fetches a note by id.
func (q *Queries) GetDeliveryNote(ctx context.Context, id int64) (domain.DeliveryNote, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+deliveryNoteColumns+` FROM delivery_notes WHERE id = $1`, id)
	note, err := scanDeliveryNote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DeliveryNote{}, domain.ErrDeliveryNoteNotFound
	}
	return note, err
}

// ListDeliveryNotesForInvoice lists the notes of an invoice, oldest first.
func (q *Queries) ListDeliveryNotesForInvoice(ctx context.Context, invoiceID int64) ([]domain.DeliveryNote, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+deliveryNoteColumns+` FROM delivery_notes WHERE invoice_id = $1 ORDER BY id`,
		invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.DeliveryNote
	for rows.Next() {
		note, err := scanDeliveryNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery note row: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// ValidateDeliveryNote marks a note validated and delivered.
func (q *Queries) ValidateDeliveryNote(ctx context.Context, id int64) (domain.DeliveryNote, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE delivery_notes
		SET status = $2, is_delivered = true, updated_at = now()
		WHERE id = $1
		RETURNING `+deliveryNoteColumns,
		id, domain.NoteValidated,
	)
	note, err := scanDeliveryNote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DeliveryNote{}, domain.ErrDeliveryNoteNotFound
	}
	return note, err
}

// CreateConfirmation inserts one confirmation row.
func (q *Queries) CreateConfirmation(ctx context.Context, params CreateConfirmationParams) (domain.Confirmation, error) {
	var c domain.Confirmation
	err := q.db.QueryRow(ctx, `
		INSERT INTO confirmations (delivery_note_id, confirmed_by_id, is_complete_delivery)
		VALUES ($1, $2, $3)
		RETURNING id, delivery_note_id, confirmed_by_id, is_complete_delivery, created_at`,
		params.DeliveryNoteID, params.ConfirmedByID, params.IsCompleteDelivery,
	).Scan(&c.ID, &c.DeliveryNoteID, &c.ConfirmedByID, &c.IsCompleteDelivery, &c.CreatedAt)
	return c, err
}

// CountNotesAwaitingCompleteConfirmation counts the invoice's notes that have
// no complete-delivery confirmation yet. Zero means the invoice is fully
// delivered.
func (q *Queries) CountNotesAwaitingCompleteConfirmation(ctx context.Context, invoiceID int64) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM delivery_notes n
		WHERE n.invoice_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM confirmations c
			WHERE c.delivery_note_id = n.id AND c.is_complete_delivery
		  )`,
		invoiceID).Scan(&count)
	return count, err
}
