// Package recovery resolves the recovery-delay threshold that the urgency
// recomputation consumes. Resolution is a pure function over the supplied
// settings; the package holds no state.
package recovery

import (
	"strings"

	"github.com/lucratix100/cmga-invoice/internal/domain"
)

// ResolveThresholdDays returns the number of non-payment days after which the
// invoice becomes urgent. Priority order, first match wins:
//
//  1. the invoice's custom setting, if any;
//  2. the active root setting whose name is the longest prefix of the
//     invoice's account number (ties broken by lowest setting id);
//  3. the active global setting (nil RootID);
//  4. domain.DefaultRecoveryDays.
//
// Inactive settings are ignored. An empty account number skips step 2.
// The result is always positive.
func ResolveThresholdDays(inv domain.Invoice, custom *domain.RecoveryCustomSetting, settings []domain.RecoverySetting) int {
	if custom != nil && custom.CustomDays > 0 {
		return custom.CustomDays
	}

	if root := matchRootSetting(inv.AccountNumber, settings); root != nil {
		return root.DefaultDays
	}

	for _, s := range settings {
		if s.IsActive && s.RootID == nil && s.DefaultDays > 0 {
			return s.DefaultDays
		}
	}

	return domain.DefaultRecoveryDays
}

// matchRootSetting finds the active root-scoped setting with the longest name
// prefix of accountNumber. Settings arrive unordered, so ties on prefix length
// are broken by lowest id to keep resolution deterministic.
func matchRootSetting(accountNumber string, settings []domain.RecoverySetting) *domain.RecoverySetting {
	if accountNumber == "" {
		return nil
	}

	var best *domain.RecoverySetting
	account := strings.ToUpper(accountNumber)

	for i := range settings {
		s := &settings[i]
		if !s.IsActive || s.RootID == nil || s.Name == "" || s.DefaultDays <= 0 {
			continue
		}
		if !strings.HasPrefix(account, strings.ToUpper(s.Name)) {
			continue
		}
		if best == nil ||
			len(s.Name) > len(best.Name) ||
			(len(s.Name) == len(best.Name) && s.ID < best.ID) {
			best = s
		}
	}

	return best
}
