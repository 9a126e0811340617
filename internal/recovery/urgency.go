package recovery

import (
	"time"

	"github.com/lucratix100/cmga-invoice/internal/domain"
)

// ReferenceDate picks the date the recovery clock runs from: the most recent
// payment date when payments exist, otherwise the delivery-confirmation date.
// Returns false when neither is available, which callers treat as a
// data-quality skip rather than an error.
func ReferenceDate(inv domain.Invoice, payments []domain.Payment) (time.Time, bool) {
	var latest time.Time
	for _, p := range payments {
		if p.PaymentDate.After(latest) {
			latest = p.PaymentDate
		}
	}
	if !latest.IsZero() {
		return latest, true
	}

	if inv.DeliveredAt != nil && !inv.DeliveredAt.IsZero() {
		return *inv.DeliveredAt, true
	}

	return time.Time{}, false
}

// Urgent reports whether the reference date is strictly older than the cutoff
// (now minus thresholdDays). Paid invoices are never urgent; the caller
// filters those out before asking.
func Urgent(ref, now time.Time, thresholdDays int) bool {
	cutoff := now.AddDate(0, 0, -thresholdDays)
	return ref.Before(cutoff)
}
