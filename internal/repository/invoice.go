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

const invoiceColumns = `id, invoice_number, account_number, depot_id, customer_id,
	status, status_payment, total_ttc, is_completed, is_complete_delivery, is_urgent,
	date, delivered_at, last_payment_date, created_at, updated_at`

// ImportInvoiceParams registers an ERP invoice. The row is created in
// awaiting-delivery / unpaid.
type ImportInvoiceParams struct {
	InvoiceNumber string
	AccountNumber string
	DepotID       int64
	CustomerID    int64
	TotalTTC      int64
	Date          time.Time
}

// ListInvoicesParams filters and paginates invoice listings.
type ListInvoicesParams struct {
	Status     pgtype.Text
	Payment    pgtype.Text
	UrgentOnly bool
	DepotID    pgtype.Int8
	Limit      int32
	Offset     int32
}

// UpdateInvoiceStatusParams sets the delivery status.
type UpdateInvoiceStatusParams struct {
	ID     int64
	Status domain.DeliveryStatus
}

// UpdateInvoiceDeliveryParams records the delivered transition.
type UpdateInvoiceDeliveryParams struct {
	ID                 int64
	Status             domain.DeliveryStatus
	DeliveredAt        time.Time
	IsCompleteDelivery bool
	IsCompleted        bool
}

// UpdateInvoiceUrgencyParams flips the derived urgency flag.
type UpdateInvoiceUrgencyParams struct {
	ID       int64
	IsUrgent bool
}

type invoiceScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row invoiceScanner) (domain.Invoice, error) {
	var (
		inv             domain.Invoice
		deliveredAt     pgtype.Timestamptz
		lastPaymentDate pgtype.Timestamptz
	)
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.AccountNumber, &inv.DepotID, &inv.CustomerID,
		&inv.Status, &inv.StatusPayment, &inv.TotalTTC,
		&inv.IsCompleted, &inv.IsCompleteDelivery, &inv.IsUrgent,
		&inv.Date, &deliveredAt, &lastPaymentDate, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return domain.Invoice{}, err
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		inv.DeliveredAt = &t
	}
	if lastPaymentDate.Valid {
		t := lastPaymentDate.Time
		inv.LastPaymentDate = &t
	}
	return inv, nil
}

// ImportInvoice inserts a newly imported invoice.
func (q *Queries) ImportInvoice(ctx context.Context, params ImportInvoiceParams) (domain.Invoice, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO invoices (invoice_number, account_number, depot_id, customer_id,
			status, status_payment, total_ttc, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+invoiceColumns,
		params.InvoiceNumber, params.AccountNumber, params.DepotID, params.CustomerID,
		domain.StatusAwaitingDelivery, domain.PaymentUnpaid, params.TotalTTC, params.Date,
	)
	return scanInvoice(row)
}

// GetInvoice fetches an invoice by id.
func (q *Queries) GetInvoice(ctx context.Context, id int64) (domain.Invoice, error) {
	row := q.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Invoice{}, domain.ErrInvoiceNotFound
	}
	return inv, err
}

// GetInvoiceByNumber fetches an invoice by its external number.
func (q *Queries) GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (domain.Invoice, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE invoice_number = $1`, invoiceNumber)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Invoice{}, domain.ErrInvoiceNotFound
	}
	return inv, err
}

// ListInvoices lists invoices matching the filter, newest first.
func (q *Queries) ListInvoices(ctx context.Context, params ListInvoicesParams) ([]domain.Invoice, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR status_payment = $2)
		  AND (NOT $3::bool OR is_urgent)
		  AND ($4::bigint IS NULL OR depot_id = $4)
		ORDER BY date DESC, id DESC
		LIMIT $5 OFFSET $6`,
		params.Status, params.Payment, params.UrgentOnly, params.DepotID,
		params.Limit, params.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

// ListUnpaidInvoices returns every invoice the urgency recomputation scans.
func (q *Queries) ListUnpaidInvoices(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE status_payment <> $1
		ORDER BY id`,
		domain.PaymentPaid,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

// ListReturnMarkedInvoices returns invoices whose number carries the return
// marker letter and that are not yet in returned status.
func (q *Queries) ListReturnMarkedInvoices(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE position('R' in upper(invoice_number)) > 0
		  AND status <> $1
		ORDER BY id`,
		domain.StatusReturned,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

// UpdateInvoiceStatus sets the delivery status.
func (q *Queries) UpdateInvoiceStatus(ctx context.Context, params UpdateInvoiceStatusParams) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE invoices SET status = $2, updated_at = now() WHERE id = $1`,
		params.ID, params.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

// UpdateInvoiceDelivery records the delivered transition and its flags.
func (q *Queries) UpdateInvoiceDelivery(ctx context.Context, params UpdateInvoiceDeliveryParams) (domain.Invoice, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE invoices
		SET status = $2, delivered_at = $3, is_complete_delivery = $4,
			is_completed = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+invoiceColumns,
		params.ID, params.Status, params.DeliveredAt, params.IsCompleteDelivery, params.IsCompleted,
	)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Invoice{}, domain.ErrInvoiceNotFound
	}
	return inv, err
}

// UpdateInvoiceUrgency writes the urgency flag only when it actually changes.
// Returns whether a row was written.
func (q *Queries) UpdateInvoiceUrgency(ctx context.Context, params UpdateInvoiceUrgencyParams) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE invoices SET is_urgent = $2, updated_at = now()
		WHERE id = $1 AND is_urgent <> $2`,
		params.ID, params.IsUrgent)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ApplyInvoiceReturn moves the invoice to returned and forces the total to its
// negative absolute value. Safe to reapply.
func (q *Queries) ApplyInvoiceReturn(ctx context.Context, id int64) (domain.Invoice, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE invoices
		SET status = $2, total_ttc = -abs(total_ttc), updated_at = now()
		WHERE id = $1
		RETURNING `+invoiceColumns,
		id, domain.StatusReturned,
	)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Invoice{}, domain.ErrInvoiceNotFound
	}
	return inv, err
}

func collectInvoices(rows pgx.Rows) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
