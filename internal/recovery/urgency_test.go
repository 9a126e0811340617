package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lucratix100/cmga-invoice/internal/domain"
)

func TestReferenceDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	delivered := now.AddDate(0, 0, -20)

	t.Run("latest payment date wins over delivery date", func(t *testing.T) {
		inv := domain.Invoice{DeliveredAt: &delivered}
		payments := []domain.Payment{
			{PaymentDate: now.AddDate(0, 0, -10)},
			{PaymentDate: now.AddDate(0, 0, -5)},
			{PaymentDate: now.AddDate(0, 0, -15)},
		}

		ref, ok := ReferenceDate(inv, payments)
		assert.True(t, ok)
		assert.Equal(t, now.AddDate(0, 0, -5), ref)
	})

	t.Run("delivery date when no payments", func(t *testing.T) {
		inv := domain.Invoice{DeliveredAt: &delivered}

		ref, ok := ReferenceDate(inv, nil)
		assert.True(t, ok)
		assert.Equal(t, delivered, ref)
	})

	t.Run("no reference without payments or delivery", func(t *testing.T) {
		_, ok := ReferenceDate(domain.Invoice{}, nil)
		assert.False(t, ok)
	})
}

func TestUrgent(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		ref       time.Time
		threshold int
		want      bool
	}{
		{
			name:      "older than threshold is urgent",
			ref:       now.AddDate(0, 0, -50),
			threshold: 45,
			want:      true,
		},
		{
			name:      "younger than threshold is not urgent",
			ref:       now.AddDate(0, 0, -40),
			threshold: 45,
			want:      false,
		},
		{
			name:      "exactly at the cutoff is not urgent",
			ref:       now.AddDate(0, 0, -45),
			threshold: 45,
			want:      false,
		},
		{
			name:      "tight custom threshold flips the result",
			ref:       now.AddDate(0, 0, -15),
			threshold: 10,
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Urgent(tt.ref, now, tt.threshold))
		})
	}
}
