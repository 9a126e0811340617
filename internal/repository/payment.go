package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lucratix100/cmga-invoice/internal/domain"
)

// CreatePaymentParams records one payment against an invoice.
type CreatePaymentParams struct {
	InvoiceID   int64
	Amount      int64
	Method      string
	Reference   string
	PaymentDate time.Time
}

// UpdateInvoicePaymentStatusParams writes the derived payment state.
type UpdateInvoicePaymentStatusParams struct {
	ID              int64
	StatusPayment   domain.PaymentStatus
	LastPaymentDate pgtype.Timestamptz
}

// CreatePayment inserts a payment row.
func (q *Queries) CreatePayment(ctx context.Context, params CreatePaymentParams) (domain.Payment, error) {
	var p domain.Payment
	err := q.db.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, amount, method, reference, payment_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, invoice_id, amount, method, reference, payment_date, created_at`,
		params.InvoiceID, params.Amount, params.Method, params.Reference, params.PaymentDate,
	).Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.Reference, &p.PaymentDate, &p.CreatedAt)
	return p, err
}

// ListPaymentsForInvoice returns the payments of an invoice, oldest first.
func (q *Queries) ListPaymentsForInvoice(ctx context.Context, invoiceID int64) ([]domain.Payment, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, invoice_id, amount, method, reference, payment_date, created_at
		FROM payments WHERE invoice_id = $1
		ORDER BY payment_date, id`,
		invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.Reference, &p.PaymentDate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// GetPaymentsTotal sums the payments recorded against an invoice.
func (q *Queries) GetPaymentsTotal(ctx context.Context, invoiceID int64) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1`,
		invoiceID).Scan(&total)
	return total, err
}

// DeletePayment removes a payment row and returns it. Callers rederive the
// invoice payment status in the same transaction.
func (q *Queries) DeletePayment(ctx context.Context, id int64) (domain.Payment, error) {
	var p domain.Payment
	err := q.db.QueryRow(ctx, `
		DELETE FROM payments WHERE id = $1
		RETURNING id, invoice_id, amount, method, reference, payment_date, created_at`,
		id,
	).Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.Reference, &p.PaymentDate, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return p, err
}

// UpdateInvoicePaymentStatus writes the derived payment status and last
// payment date. A fully paid invoice can no longer be urgent, so the urgency
// flag drops together with the status. Callers run this in the same
// transaction as the payment write.
func (q *Queries) UpdateInvoicePaymentStatus(ctx context.Context, params UpdateInvoicePaymentStatusParams) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE invoices SET status_payment = $2, last_payment_date = $3,
			is_urgent = is_urgent AND $2 <> 'paid', updated_at = now()
		WHERE id = $1`,
		params.ID, params.StatusPayment, params.LastPaymentDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}
