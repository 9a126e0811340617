package domain

// Role is the closed set of user roles. Role checks go through Can; handlers
// never compare raw role strings.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleWarehouse   Role = "warehouse"
	RoleDepotChief  Role = "depot-chief"
	RoleCollections Role = "collections"
	RoleController  Role = "controller"
)

// Capability names an action a role may perform.
type Capability string

const (
	CapImportInvoice  Capability = "invoice:import"
	CapRecordPayment  Capability = "invoice:record-payment"
	CapCreateNote     Capability = "delivery:create-note"
	CapConfirmNote    Capability = "delivery:confirm"
	CapManageRecovery Capability = "recovery:manage"
	CapRunBatch       Capability = "batch:run"
	CapRegularize     Capability = "invoice:regularize"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapImportInvoice:  true,
		CapRecordPayment:  true,
		CapCreateNote:     true,
		CapConfirmNote:    true,
		CapManageRecovery: true,
		CapRunBatch:       true,
		CapRegularize:     true,
	},
	RoleWarehouse: {
		CapCreateNote:  true,
		CapConfirmNote: true,
	},
	RoleDepotChief: {
		CapCreateNote:  true,
		CapConfirmNote: true,
	},
	RoleCollections: {
		CapRecordPayment:  true,
		CapManageRecovery: true,
	},
	RoleController: {
		CapManageRecovery: true,
		CapRunBatch:       true,
	},
}

// ParseRole returns the Role for a raw string, or false for unknown roles.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleCapabilities[r]
	return r, ok
}

// Can reports whether the role may perform the capability.
// Unknown roles can do nothing.
func Can(r Role, c Capability) bool {
	return roleCapabilities[r][c]
}
