package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucratix100/cmga-invoice/internal/domain"
	"github.com/lucratix100/cmga-invoice/internal/repository"
)

func newTestInvoiceService(store *fakeStore, now time.Time) *invoiceService {
	return &invoiceService{
		repo:   store,
		logger: slog.New(slog.DiscardHandler),
		now:    func() time.Time { return now },
	}
}

func TestImportInvoice(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestInvoiceService(store, time.Now())

	t.Run("registers invoice as awaiting delivery and unpaid", func(t *testing.T) {
		inv, err := svc.ImportInvoice(ctx, domain.ImportInvoiceParams{
			InvoiceNumber: "FAC-2024-0001",
			AccountNumber: "ZIG001",
			DepotID:       1,
			CustomerID:    7,
			TotalTTC:      150000,
			Date:          time.Now(),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAwaitingDelivery, inv.Status)
		assert.Equal(t, domain.PaymentUnpaid, inv.StatusPayment)
	})

	t.Run("rejects duplicate invoice number", func(t *testing.T) {
		_, err := svc.ImportInvoice(ctx, domain.ImportInvoiceParams{
			InvoiceNumber: "FAC-2024-0001",
			AccountNumber: "ZIG001",
			DepotID:       1,
			CustomerID:    7,
			TotalTTC:      150000,
			Date:          time.Now(),
		})
		assert.ErrorIs(t, err, domain.ErrInvoiceNotImportable)
	})

	t.Run("rejects empty invoice number", func(t *testing.T) {
		_, err := svc.ImportInvoice(ctx, domain.ImportInvoiceParams{})
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	newInvoice := func(store *fakeStore, total int64) *domain.Invoice {
		return store.addInvoice(domain.Invoice{
			ID:            1,
			InvoiceNumber: "FAC-2024-0001",
			Status:        domain.StatusDelivered,
			StatusPayment: domain.PaymentUnpaid,
			TotalTTC:      total,
		})
	}

	t.Run("partial payment derives partially-paid", func(t *testing.T) {
		store := newFakeStore()
		newInvoice(store, 1000)
		svc := newTestInvoiceService(store, now)

		status, err := svc.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: 1, Amount: 500, Method: "cash", PaymentDate: now,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPartiallyPaid, status)
		assert.Equal(t, domain.PaymentPartiallyPaid, store.invoices[1].StatusPayment)
		require.NotNil(t, store.invoices[1].LastPaymentDate)
		assert.Equal(t, now, *store.invoices[1].LastPaymentDate)
	})

	t.Run("full payment derives paid", func(t *testing.T) {
		store := newFakeStore()
		newInvoice(store, 1000)
		svc := newTestInvoiceService(store, now)

		_, err := svc.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: 1, Amount: 400, Method: "cash", PaymentDate: now,
		})
		require.NoError(t, err)

		status, err := svc.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: 1, Amount: 600, Method: "cheque", PaymentDate: now.AddDate(0, 0, 1),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPaid, status)
	})

	t.Run("full payment clears the urgency flag", func(t *testing.T) {
		store := newFakeStore()
		inv := newInvoice(store, 1000)
		inv.IsUrgent = true
		svc := newTestInvoiceService(store, now)

		status, err := svc.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: 1, Amount: 1000, Method: "cash", PaymentDate: now,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPaid, status)
		assert.False(t, store.invoices[1].IsUrgent)

		// The batch ignores paid invoices, so the flag stays down.
		_, err = svc.RunUrgencyRecomputation(ctx)
		require.NoError(t, err)
		assert.False(t, store.invoices[1].IsUrgent)
	})

	t.Run("partial payment keeps the urgency flag", func(t *testing.T) {
		store := newFakeStore()
		inv := newInvoice(store, 1000)
		inv.IsUrgent = true
		svc := newTestInvoiceService(store, now)

		_, err := svc.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: 1, Amount: 300, Method: "cash", PaymentDate: now,
		})
		require.NoError(t, err)
		assert.True(t, store.invoices[1].IsUrgent)
	})

	t.Run("rejects payment on fully paid invoice", func(t *testing.T) {
		store := newFakeStore()
		inv := newInvoice(store, 1000)
		inv.StatusPayment = domain.PaymentPaid
		svc := newTestInvoiceService(store, now)

		_, err := svc.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: 1, Amount: 100, Method: "cash", PaymentDate: now,
		})
		assert.ErrorIs(t, err, domain.ErrInvoiceAlreadyPaid)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		store := newFakeStore()
		newInvoice(store, 1000)
		svc := newTestInvoiceService(store, now)

		_, err := svc.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: 1, Amount: 0, Method: "cash", PaymentDate: now,
		})
		assert.ErrorIs(t, err, domain.ErrPaymentNotPositive)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestInvoiceService(store, now)

		_, err := svc.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: 99, Amount: 100, Method: "cash", PaymentDate: now,
		})
		assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
	})
}

func TestDeletePayment(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	setup := func(t *testing.T, store *fakeStore) (first, second domain.Payment) {
		t.Helper()
		store.addInvoice(domain.Invoice{
			ID: 1, InvoiceNumber: "FAC-2024-0001",
			Status: domain.StatusDelivered, StatusPayment: domain.PaymentUnpaid,
			TotalTTC: 1000,
		})
		svc := newTestInvoiceService(store, now)
		_, err := svc.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: 1, Amount: 400, Method: "cash", PaymentDate: now,
		})
		require.NoError(t, err)
		_, err = svc.RecordPayment(ctx, domain.RecordPaymentParams{
			InvoiceID: 1, Amount: 600, Method: "cheque", PaymentDate: now.AddDate(0, 0, 1),
		})
		require.NoError(t, err)
		return store.payments[1][0], store.payments[1][1]
	}

	t.Run("paid invoice drops to partially-paid", func(t *testing.T) {
		store := newFakeStore()
		_, second := setup(t, store)
		svc := newTestInvoiceService(store, now)

		status, err := svc.DeletePayment(ctx, 1, second.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPartiallyPaid, status)
		assert.Equal(t, domain.PaymentPartiallyPaid, store.invoices[1].StatusPayment)

		// The latest payment is gone, so the date falls back to the first.
		require.NotNil(t, store.invoices[1].LastPaymentDate)
		assert.Equal(t, now, *store.invoices[1].LastPaymentDate)
	})

	t.Run("deleting every payment returns to unpaid", func(t *testing.T) {
		store := newFakeStore()
		first, second := setup(t, store)
		svc := newTestInvoiceService(store, now)

		_, err := svc.DeletePayment(ctx, 1, second.ID)
		require.NoError(t, err)

		status, err := svc.DeletePayment(ctx, 1, first.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentUnpaid, status)
		assert.Nil(t, store.invoices[1].LastPaymentDate)
	})

	t.Run("unknown payment", func(t *testing.T) {
		store := newFakeStore()
		setup(t, store)
		svc := newTestInvoiceService(store, now)

		_, err := svc.DeletePayment(ctx, 1, 9999)
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})

	t.Run("payment belonging to another invoice", func(t *testing.T) {
		store := newFakeStore()
		first, _ := setup(t, store)
		store.addInvoice(domain.Invoice{ID: 2, TotalTTC: 500})
		svc := newTestInvoiceService(store, now)

		_, err := svc.DeletePayment(ctx, 2, first.ID)
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestInvoiceService(store, now)

		_, err := svc.DeletePayment(ctx, 99, 1)
		assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
	})
}

func TestOnDeliveryConfirmed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("moves to delivered when every note is confirmed complete", func(t *testing.T) {
		store := newFakeStore()
		store.addInvoice(domain.Invoice{ID: 1, Status: domain.StatusInDelivery})
		note, _ := store.CreateDeliveryNote(ctx, deliveryNoteFor(1))
		_, _ = store.CreateConfirmation(ctx, confirmationFor(note.ID, true))
		svc := newTestInvoiceService(store, now)

		status, err := svc.OnDeliveryConfirmed(ctx, 1, true)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDelivered, status)
		assert.True(t, store.invoices[1].IsCompleted)
		require.NotNil(t, store.invoices[1].DeliveredAt)
		assert.Equal(t, now, *store.invoices[1].DeliveredAt)
	})

	t.Run("stays in-delivery while notes remain outstanding", func(t *testing.T) {
		store := newFakeStore()
		store.addInvoice(domain.Invoice{ID: 1, Status: domain.StatusInDelivery})
		noteA, _ := store.CreateDeliveryNote(ctx, deliveryNoteFor(1))
		_, _ = store.CreateDeliveryNote(ctx, deliveryNoteFor(1))
		_, _ = store.CreateConfirmation(ctx, confirmationFor(noteA.ID, true))
		svc := newTestInvoiceService(store, now)

		status, err := svc.OnDeliveryConfirmed(ctx, 1, true)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusInDelivery, status)
	})

	t.Run("delivered invoice stays delivered", func(t *testing.T) {
		store := newFakeStore()
		store.addInvoice(domain.Invoice{ID: 1, Status: domain.StatusDelivered})
		svc := newTestInvoiceService(store, now)

		status, err := svc.OnDeliveryConfirmed(ctx, 1, true)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDelivered, status)
	})

	t.Run("terminal statuses are rejected", func(t *testing.T) {
		for _, terminal := range []domain.DeliveryStatus{domain.StatusReturned, domain.StatusRegularized} {
			store := newFakeStore()
			store.addInvoice(domain.Invoice{ID: 1, Status: terminal})
			svc := newTestInvoiceService(store, now)

			_, err := svc.OnDeliveryConfirmed(ctx, 1, true)
			assert.ErrorIs(t, err, domain.ErrInvoiceTerminal)
		}
	})
}

func TestApplyReturnCorrection(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addInvoice(domain.Invoice{
		ID: 1, InvoiceNumber: "FAC-2024-00R5",
		Status: domain.StatusDelivered, TotalTTC: 1200,
	})
	svc := newTestInvoiceService(store, time.Now())

	correction, err := svc.ApplyReturnCorrection(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, correction.OldStatus)
	assert.Equal(t, domain.StatusReturned, correction.NewStatus)
	assert.Equal(t, int64(1200), correction.OldTotal)
	assert.Equal(t, int64(-1200), correction.NewTotal)

	// The old-state read and the return write share one transaction.
	assert.Equal(t, 1, store.begins)

	// Reapplying must not double-negate.
	correction, err = svc.ApplyReturnCorrection(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(-1200), correction.NewTotal)
}

func TestRegularize(t *testing.T) {
	ctx := context.Background()

	t.Run("regularizes a received invoice", func(t *testing.T) {
		store := newFakeStore()
		store.addInvoice(domain.Invoice{ID: 1, Status: domain.StatusDelivered})
		svc := newTestInvoiceService(store, time.Now())

		inv, err := svc.Regularize(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRegularized, inv.Status)
	})

	t.Run("rejects a never-received invoice", func(t *testing.T) {
		store := newFakeStore()
		store.addInvoice(domain.Invoice{ID: 1, Status: domain.StatusNotReceived})
		svc := newTestInvoiceService(store, time.Now())

		_, err := svc.Regularize(ctx, 1)
		assert.ErrorIs(t, err, domain.ErrRegularizeNotReceived)
	})
}

func TestRunUrgencyRecomputation(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	setup := func() *fakeStore {
		store := newFakeStore()
		store.settings = []domain.RecoverySetting{
			{ID: 1, RootID: nil, DefaultDays: 30, IsActive: true},
			{ID: 2, RootID: rootIDRef(10), Name: "ZIG", DefaultDays: 45, IsActive: true},
		}

		// Delivered 50 days ago on a 45-day root: urgent.
		deliveredOld := now.AddDate(0, 0, -50)
		store.addInvoice(domain.Invoice{
			ID: 1, InvoiceNumber: "FAC-1", AccountNumber: "ZIG001",
			Status: domain.StatusDelivered, StatusPayment: domain.PaymentUnpaid,
			TotalTTC: 1000, DeliveredAt: &deliveredOld,
		})

		// Delivered 20 days ago on the 30-day global: not urgent.
		deliveredRecent := now.AddDate(0, 0, -20)
		store.addInvoice(domain.Invoice{
			ID: 2, InvoiceNumber: "FAC-2", AccountNumber: "XYZ001",
			Status: domain.StatusDelivered, StatusPayment: domain.PaymentUnpaid,
			TotalTTC: 1000, DeliveredAt: &deliveredRecent,
		})

		// Never delivered, no payments: skipped.
		store.addInvoice(domain.Invoice{
			ID: 3, InvoiceNumber: "FAC-3", AccountNumber: "XYZ002",
			Status: domain.StatusAwaitingDelivery, StatusPayment: domain.PaymentUnpaid,
			TotalTTC: 1000,
		})

		return store
	}

	t.Run("flags overdue invoices and skips missing reference dates", func(t *testing.T) {
		store := setup()
		svc := newTestInvoiceService(store, now)

		report, err := svc.RunUrgencyRecomputation(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Scanned)
		assert.Equal(t, 1, report.Updated)
		assert.Equal(t, 1, report.Skipped)
		assert.Empty(t, report.Errors)
		assert.True(t, store.invoices[1].IsUrgent)
		assert.False(t, store.invoices[2].IsUrgent)
	})

	t.Run("custom delay overrides root setting", func(t *testing.T) {
		store := setup()
		// 10-day custom delay makes the 20-day-old invoice urgent too.
		store.customs[2] = &domain.RecoveryCustomSetting{InvoiceID: 2, CustomDays: 10}
		svc := newTestInvoiceService(store, now)

		report, err := svc.RunUrgencyRecomputation(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Updated)
		assert.True(t, store.invoices[2].IsUrgent)
	})

	t.Run("second run with no changes writes nothing", func(t *testing.T) {
		store := setup()
		svc := newTestInvoiceService(store, now)

		_, err := svc.RunUrgencyRecomputation(ctx)
		require.NoError(t, err)
		writes := store.urgencyWrites

		report, err := svc.RunUrgencyRecomputation(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Updated)
		assert.Equal(t, writes, store.urgencyWrites)
	})

	t.Run("recent payment clears the urgency flag", func(t *testing.T) {
		store := setup()
		store.invoices[1].IsUrgent = true
		store.payments[1] = []domain.Payment{{
			InvoiceID: 1, Amount: 100, PaymentDate: now.AddDate(0, 0, -2),
		}}
		svc := newTestInvoiceService(store, now)

		report, err := svc.RunUrgencyRecomputation(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Updated)
		assert.False(t, store.invoices[1].IsUrgent)
	})
}

func TestRunReturnCorrection(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addInvoice(domain.Invoice{
		ID: 1, InvoiceNumber: "FAC-2024-00R5",
		Status: domain.StatusDelivered, TotalTTC: 1200,
	})
	store.addInvoice(domain.Invoice{
		ID: 2, InvoiceNumber: "FAC-2024-0006",
		Status: domain.StatusDelivered, TotalTTC: 900,
	})
	svc := newTestInvoiceService(store, time.Now())

	report, err := svc.RunReturnCorrection(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	require.Len(t, report.Corrected, 1)
	assert.Equal(t, int64(-1200), report.Corrected[0].NewTotal)
	assert.Equal(t, domain.StatusReturned, store.invoices[1].Status)
	assert.Equal(t, domain.StatusDelivered, store.invoices[2].Status)

	// Corrected invoices drop out of the next scan.
	report, err = svc.RunReturnCorrection(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Scanned)
}

func rootIDRef(id int64) *int64 { return &id }

func deliveryNoteFor(invoiceID int64) repository.CreateDeliveryNoteParams {
	return repository.CreateDeliveryNoteParams{
		InvoiceID: invoiceID, DriverID: 1, CreatedByID: 1,
		Products: []domain.ProductLine{{Reference: "P1", Designation: "Cement", Quantity: 10}},
	}
}

func confirmationFor(noteID int64, complete bool) repository.CreateConfirmationParams {
	return repository.CreateConfirmationParams{
		DeliveryNoteID: noteID, ConfirmedByID: 1, IsCompleteDelivery: complete,
	}
}
