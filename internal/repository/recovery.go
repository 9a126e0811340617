package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lucratix100/cmga-invoice/internal/domain"
)

// UpsertRecoverySettingParams creates or replaces a scoped setting. A null
// RootID targets the global fallback row.
type UpsertRecoverySettingParams struct {
	RootID      pgtype.Int8
	Name        string
	DefaultDays int
	IsActive    bool
}

// SetCustomSettingParams sets the per-invoice recovery override.
type SetCustomSettingParams struct {
	InvoiceID  int64
	CustomDays int
}

func scanRecoverySetting(row invoiceScanner) (domain.RecoverySetting, error) {
	var (
		s      domain.RecoverySetting
		rootID pgtype.Int8
	)
	err := row.Scan(&s.ID, &rootID, &s.Name, &s.DefaultDays, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.RecoverySetting{}, err
	}
	if rootID.Valid {
		v := rootID.Int64
		s.RootID = &v
	}
	return s, nil
}

// ListActiveRecoverySettings returns every active setting, global fallback
// included.
func (q *Queries) ListActiveRecoverySettings(ctx context.Context) ([]domain.RecoverySetting, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, root_id, name, default_days, is_active, created_at, updated_at
		FROM recovery_settings
		WHERE is_active
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []domain.RecoverySetting
	for rows.Next() {
		s, err := scanRecoverySetting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recovery setting row: %w", err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// UpsertRecoverySetting creates or replaces the setting for a root (or the
// global fallback when RootID is null). Only one row exists per scope.
func (q *Queries) UpsertRecoverySetting(ctx context.Context, params UpsertRecoverySettingParams) (domain.RecoverySetting, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO recovery_settings (root_id, name, default_days, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (root_id) DO UPDATE
		SET name = EXCLUDED.name, default_days = EXCLUDED.default_days,
			is_active = EXCLUDED.is_active, updated_at = now()
		RETURNING id, root_id, name, default_days, is_active, created_at, updated_at`,
		params.RootID, params.Name, params.DefaultDays, params.IsActive,
	)
	return scanRecoverySetting(row)
}

// GetCustomSettingForInvoice returns the per-invoice override, or nil when
// none exists.
func (q *Queries) GetCustomSettingForInvoice(ctx context.Context, invoiceID int64) (*domain.RecoveryCustomSetting, error) {
	var c domain.RecoveryCustomSetting
	err := q.db.QueryRow(ctx, `
		SELECT id, invoice_id, custom_days, created_at
		FROM recovery_custom_settings WHERE invoice_id = $1`,
		invoiceID).Scan(&c.ID, &c.InvoiceID, &c.CustomDays, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SetCustomSetting sets the per-invoice override, replacing any previous one.
func (q *Queries) SetCustomSetting(ctx context.Context, params SetCustomSettingParams) (domain.RecoveryCustomSetting, error) {
	var c domain.RecoveryCustomSetting
	err := q.db.QueryRow(ctx, `
		INSERT INTO recovery_custom_settings (invoice_id, custom_days)
		VALUES ($1, $2)
		ON CONFLICT (invoice_id) DO UPDATE SET custom_days = EXCLUDED.custom_days
		RETURNING id, invoice_id, custom_days, created_at`,
		params.InvoiceID, params.CustomDays,
	).Scan(&c.ID, &c.InvoiceID, &c.CustomDays, &c.CreatedAt)
	return c, err
}

// DeleteCustomSetting removes the per-invoice override if present.
func (q *Queries) DeleteCustomSetting(ctx context.Context, invoiceID int64) error {
	_, err := q.db.Exec(ctx,
		`DELETE FROM recovery_custom_settings WHERE invoice_id = $1`, invoiceID)
	return err
}
