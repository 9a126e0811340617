package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	for _, raw := range []string{"admin", "warehouse", "depot-chief", "collections", "controller"} {
		role, ok := ParseRole(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, Role(raw), role)
	}

	_, ok := ParseRole("superuser")
	assert.False(t, ok)
	_, ok = ParseRole("")
	assert.False(t, ok)
}

func TestCan(t *testing.T) {
	tests := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleAdmin, CapRegularize, true},
		{RoleAdmin, CapRunBatch, true},
		{RoleWarehouse, CapCreateNote, true},
		{RoleWarehouse, CapRecordPayment, false},
		{RoleDepotChief, CapConfirmNote, true},
		{RoleDepotChief, CapRegularize, false},
		{RoleCollections, CapRecordPayment, true},
		{RoleCollections, CapCreateNote, false},
		{RoleController, CapRunBatch, true},
		{RoleController, CapImportInvoice, false},
		{Role("unknown"), CapImportInvoice, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Can(tt.role, tt.cap), "%s / %s", tt.role, tt.cap)
	}
}
