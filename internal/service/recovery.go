package service

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lucratix100/cmga-invoice/internal/domain"
	"github.com/lucratix100/cmga-invoice/internal/repository"
)

// RecoveryService re-exports the domain interface for handler wiring.
type RecoveryService = domain.RecoveryService

type recoveryService struct {
	repo repository.Querier
}

// NewRecoveryService creates the recovery-settings service.
func NewRecoveryService(repo repository.Querier) domain.RecoveryService {
	return &recoveryService{repo: repo}
}

// ListSettings returns all active settings, global fallback included.
func (s *recoveryService) ListSettings(ctx context.Context) ([]domain.RecoverySetting, error) {
	settings, err := s.repo.ListActiveRecoverySettings(ctx)
	if err != nil {
		return nil, domain.Internal(err, "recovery.list", "failed to list recovery settings")
	}
	return settings, nil
}

// UpsertSetting creates or replaces a root-scoped or global setting.
func (s *recoveryService) UpsertSetting(ctx context.Context, params domain.UpsertRecoverySettingParams) (*domain.RecoverySetting, error) {
	if params.DefaultDays <= 0 {
		return nil, domain.ErrRecoveryDaysNotPositive
	}
	if params.RootID != nil && params.Name == "" {
		return nil, domain.Invalid("recovery.upsert", "root setting requires an account prefix name")
	}

	rootID := pgtype.Int8{}
	if params.RootID != nil {
		rootID = pgtype.Int8{Int64: *params.RootID, Valid: true}
	}

	setting, err := s.repo.UpsertRecoverySetting(ctx, repository.UpsertRecoverySettingParams{
		RootID:      rootID,
		Name:        params.Name,
		DefaultDays: params.DefaultDays,
		IsActive:    params.IsActive,
	})
	if err != nil {
		return nil, domain.Internal(err, "recovery.upsert", "failed to save recovery setting")
	}
	return &setting, nil
}

// SetCustomDelay sets the per-invoice override, replacing any previous one.
func (s *recoveryService) SetCustomDelay(ctx context.Context, invoiceID int64, days int) (*domain.RecoveryCustomSetting, error) {
	if days <= 0 {
		return nil, domain.ErrRecoveryDaysNotPositive
	}

	if _, err := s.repo.GetInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}

	custom, err := s.repo.SetCustomSetting(ctx, repository.SetCustomSettingParams{
		InvoiceID:  invoiceID,
		CustomDays: days,
	})
	if err != nil {
		return nil, domain.Internal(err, "recovery.custom", "failed to save custom delay")
	}
	return &custom, nil
}

// ClearCustomDelay removes the per-invoice override if present.
func (s *recoveryService) ClearCustomDelay(ctx context.Context, invoiceID int64) error {
	if err := s.repo.DeleteCustomSetting(ctx, invoiceID); err != nil {
		return domain.Internal(err, "recovery.custom", "failed to clear custom delay")
	}
	return nil
}
