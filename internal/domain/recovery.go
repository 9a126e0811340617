package domain

import (
	"context"
	"time"
)

// DefaultRecoveryDays is the hardcoded fallback when no global recovery
// setting is configured.
const DefaultRecoveryDays = 30

// Recovery settings errors.
var (
	ErrRecoverySettingNotFound = &Error{Code: ENOTFOUND, Message: "Recovery setting not found"}
	ErrRecoveryDaysNotPositive = &Error{Code: EINVALID, Message: "Recovery delay must be a positive number of days"}
)

// RecoverySetting scopes a recovery-delay threshold. A nil RootID marks the
// global fallback; a non-nil RootID overrides for accounts whose number starts
// with the setting's name prefix.
type RecoverySetting struct {
	ID          int64
	RootID      *int64
	Name        string
	DefaultDays int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecoveryCustomSetting overrides the recovery delay for a single invoice.
// At most one exists per invoice and it wins over root and global settings.
type RecoveryCustomSetting struct {
	ID         int64
	InvoiceID  int64
	CustomDays int
	CreatedAt  time.Time
}

// UpsertRecoverySettingParams creates or replaces a scoped setting.
type UpsertRecoverySettingParams struct {
	RootID      *int64
	Name        string
	DefaultDays int
	IsActive    bool
}

// RecoveryService manages the recovery-delay settings consumed by the
// urgency recomputation.
type RecoveryService interface {
	// ListSettings returns all active settings, global fallback included.
	ListSettings(ctx context.Context) ([]RecoverySetting, error)

	// UpsertSetting creates or replaces a root-scoped or global setting.
	UpsertSetting(ctx context.Context, params UpsertRecoverySettingParams) (*RecoverySetting, error)

	// SetCustomDelay sets the per-invoice override, replacing any previous one.
	SetCustomDelay(ctx context.Context, invoiceID int64, days int) (*RecoveryCustomSetting, error)

	// ClearCustomDelay removes the per-invoice override if present.
	ClearCustomDelay(ctx context.Context, invoiceID int64) error
}
