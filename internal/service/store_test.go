package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/lucratix100/cmga-invoice/internal/domain"
	"github.com/lucratix100/cmga-invoice/internal/repository"
)

// fakeTx satisfies repository.Tx; the fake store applies writes immediately.
type fakeTx struct{}

func (fakeTx) Commit(ctx context.Context) error   { return nil }
func (fakeTx) Rollback(ctx context.Context) error { return nil }

// fakeStore is an in-memory Querier. Methods the tests never reach fall
// through to the embedded nil interface and panic loudly.
type fakeStore struct {
	repository.Querier

	invoices      map[int64]*domain.Invoice
	payments      map[int64][]domain.Payment
	notes         map[int64]*domain.DeliveryNote
	confirmations []domain.Confirmation
	settings      []domain.RecoverySetting
	customs       map[int64]*domain.RecoveryCustomSetting

	nextID        int64
	urgencyWrites int
	begins        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		invoices: make(map[int64]*domain.Invoice),
		payments: make(map[int64][]domain.Payment),
		notes:    make(map[int64]*domain.DeliveryNote),
		customs:  make(map[int64]*domain.RecoveryCustomSetting),
		nextID:   1000,
	}
}

func (f *fakeStore) addInvoice(inv domain.Invoice) *domain.Invoice {
	cp := inv
	f.invoices[cp.ID] = &cp
	return &cp
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) Begin(ctx context.Context) (repository.Tx, repository.Querier, error) {
	f.begins++
	return fakeTx{}, f, nil
}

func (f *fakeStore) ImportInvoice(ctx context.Context, params repository.ImportInvoiceParams) (domain.Invoice, error) {
	inv := domain.Invoice{
		ID:            f.id(),
		InvoiceNumber: params.InvoiceNumber,
		AccountNumber: params.AccountNumber,
		DepotID:       params.DepotID,
		CustomerID:    params.CustomerID,
		Status:        domain.StatusAwaitingDelivery,
		StatusPayment: domain.PaymentUnpaid,
		TotalTTC:      params.TotalTTC,
		Date:          params.Date,
	}
	f.invoices[inv.ID] = &inv
	return inv, nil
}

func (f *fakeStore) GetInvoice(ctx context.Context, id int64) (domain.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return domain.Invoice{}, domain.ErrInvoiceNotFound
	}
	return *inv, nil
}

func (f *fakeStore) GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (domain.Invoice, error) {
	for _, inv := range f.invoices {
		if inv.InvoiceNumber == invoiceNumber {
			return *inv, nil
		}
	}
	return domain.Invoice{}, domain.ErrInvoiceNotFound
}

func (f *fakeStore) ListUnpaidInvoices(ctx context.Context) ([]domain.Invoice, error) {
	var out []domain.Invoice
	for _, inv := range f.invoices {
		if inv.StatusPayment != domain.PaymentPaid {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListReturnMarkedInvoices(ctx context.Context) ([]domain.Invoice, error) {
	var out []domain.Invoice
	for _, inv := range f.invoices {
		if strings.Contains(strings.ToUpper(inv.InvoiceNumber), "R") &&
			inv.Status != domain.StatusReturned {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateInvoiceStatus(ctx context.Context, params repository.UpdateInvoiceStatusParams) error {
	inv, ok := f.invoices[params.ID]
	if !ok {
		return domain.ErrInvoiceNotFound
	}
	inv.Status = params.Status
	return nil
}

func (f *fakeStore) UpdateInvoiceDelivery(ctx context.Context, params repository.UpdateInvoiceDeliveryParams) (domain.Invoice, error) {
	inv, ok := f.invoices[params.ID]
	if !ok {
		return domain.Invoice{}, domain.ErrInvoiceNotFound
	}
	inv.Status = params.Status
	t := params.DeliveredAt
	inv.DeliveredAt = &t
	inv.IsCompleteDelivery = params.IsCompleteDelivery
	inv.IsCompleted = params.IsCompleted
	return *inv, nil
}

func (f *fakeStore) UpdateInvoiceUrgency(ctx context.Context, params repository.UpdateInvoiceUrgencyParams) (bool, error) {
	inv, ok := f.invoices[params.ID]
	if !ok || inv.IsUrgent == params.IsUrgent {
		return false, nil
	}
	inv.IsUrgent = params.IsUrgent
	f.urgencyWrites++
	return true, nil
}

func (f *fakeStore) ApplyInvoiceReturn(ctx context.Context, id int64) (domain.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return domain.Invoice{}, domain.ErrInvoiceNotFound
	}
	inv.Status = domain.StatusReturned
	if inv.TotalTTC > 0 {
		inv.TotalTTC = -inv.TotalTTC
	}
	return *inv, nil
}

func (f *fakeStore) CreatePayment(ctx context.Context, params repository.CreatePaymentParams) (domain.Payment, error) {
	p := domain.Payment{
		ID:          f.id(),
		InvoiceID:   params.InvoiceID,
		Amount:      params.Amount,
		Method:      params.Method,
		Reference:   params.Reference,
		PaymentDate: params.PaymentDate,
		CreatedAt:   time.Now(),
	}
	f.payments[params.InvoiceID] = append(f.payments[params.InvoiceID], p)
	return p, nil
}

func (f *fakeStore) DeletePayment(ctx context.Context, id int64) (domain.Payment, error) {
	for invoiceID, list := range f.payments {
		for i, p := range list {
			if p.ID == id {
				f.payments[invoiceID] = append(list[:i:i], list[i+1:]...)
				return p, nil
			}
		}
	}
	return domain.Payment{}, domain.ErrPaymentNotFound
}

func (f *fakeStore) ListPaymentsForInvoice(ctx context.Context, invoiceID int64) ([]domain.Payment, error) {
	return f.payments[invoiceID], nil
}

func (f *fakeStore) GetPaymentsTotal(ctx context.Context, invoiceID int64) (int64, error) {
	var total int64
	for _, p := range f.payments[invoiceID] {
		total += p.Amount
	}
	return total, nil
}

func (f *fakeStore) UpdateInvoicePaymentStatus(ctx context.Context, params repository.UpdateInvoicePaymentStatusParams) error {
	inv, ok := f.invoices[params.ID]
	if !ok {
		return domain.ErrInvoiceNotFound
	}
	inv.StatusPayment = params.StatusPayment
	if params.StatusPayment == domain.PaymentPaid {
		inv.IsUrgent = false
	}
	if params.LastPaymentDate.Valid {
		t := params.LastPaymentDate.Time
		inv.LastPaymentDate = &t
	} else {
		inv.LastPaymentDate = nil
	}
	return nil
}

func (f *fakeStore) CreateDeliveryNote(ctx context.Context, params repository.CreateDeliveryNoteParams) (domain.DeliveryNote, error) {
	note := domain.DeliveryNote{
		ID:          f.id(),
		InvoiceID:   params.InvoiceID,
		DriverID:    params.DriverID,
		CreatedByID: params.CreatedByID,
		Status:      domain.NoteAwaitingConfirmation,
		Products:    params.Products,
	}
	f.notes[note.ID] = &note
	return note, nil
}

func (f *fakeStore) GetDeliveryNote(ctx context.Context, id int64) (domain.DeliveryNote, error) {
	note, ok := f.notes[id]
	if !ok {
		return domain.DeliveryNote{}, domain.ErrDeliveryNoteNotFound
	}
	return *note, nil
}

func (f *fakeStore) ListDeliveryNotesForInvoice(ctx context.Context, invoiceID int64) ([]domain.DeliveryNote, error) {
	var out []domain.DeliveryNote
	for _, n := range f.notes {
		if n.InvoiceID == invoiceID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ValidateDeliveryNote(ctx context.Context, id int64) (domain.DeliveryNote, error) {
	note, ok := f.notes[id]
	if !ok {
		return domain.DeliveryNote{}, domain.ErrDeliveryNoteNotFound
	}
	note.Status = domain.NoteValidated
	note.IsDelivered = true
	return *note, nil
}

func (f *fakeStore) CreateConfirmation(ctx context.Context, params repository.CreateConfirmationParams) (domain.Confirmation, error) {
	c := domain.Confirmation{
		ID:                 f.id(),
		DeliveryNoteID:     params.DeliveryNoteID,
		ConfirmedByID:      params.ConfirmedByID,
		IsCompleteDelivery: params.IsCompleteDelivery,
	}
	f.confirmations = append(f.confirmations, c)
	return c, nil
}

func (f *fakeStore) CountNotesAwaitingCompleteConfirmation(ctx context.Context, invoiceID int64) (int64, error) {
	var count int64
	for _, n := range f.notes {
		if n.InvoiceID != invoiceID {
			continue
		}
		confirmed := false
		for _, c := range f.confirmations {
			if c.DeliveryNoteID == n.ID && c.IsCompleteDelivery {
				confirmed = true
				break
			}
		}
		if !confirmed {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ListActiveRecoverySettings(ctx context.Context) ([]domain.RecoverySetting, error) {
	var out []domain.RecoverySetting
	for _, s := range f.settings {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) GetCustomSettingForInvoice(ctx context.Context, invoiceID int64) (*domain.RecoveryCustomSetting, error) {
	return f.customs[invoiceID], nil
}

func (f *fakeStore) UpsertRecoverySetting(ctx context.Context, params repository.UpsertRecoverySettingParams) (domain.RecoverySetting, error) {
	var rootID *int64
	if params.RootID.Valid {
		v := params.RootID.Int64
		rootID = &v
	}
	for i := range f.settings {
		s := &f.settings[i]
		sameScope := (s.RootID == nil && rootID == nil) ||
			(s.RootID != nil && rootID != nil && *s.RootID == *rootID)
		if sameScope {
			s.Name = params.Name
			s.DefaultDays = params.DefaultDays
			s.IsActive = params.IsActive
			return *s, nil
		}
	}
	s := domain.RecoverySetting{
		ID: f.id(), RootID: rootID, Name: params.Name,
		DefaultDays: params.DefaultDays, IsActive: params.IsActive,
	}
	f.settings = append(f.settings, s)
	return s, nil
}

func (f *fakeStore) SetCustomSetting(ctx context.Context, params repository.SetCustomSettingParams) (domain.RecoveryCustomSetting, error) {
	c := domain.RecoveryCustomSetting{
		ID: f.id(), InvoiceID: params.InvoiceID, CustomDays: params.CustomDays,
	}
	f.customs[params.InvoiceID] = &c
	return c, nil
}

func (f *fakeStore) DeleteCustomSetting(ctx context.Context, invoiceID int64) error {
	delete(f.customs, invoiceID)
	return nil
}
