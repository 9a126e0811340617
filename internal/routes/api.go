package routes

import (
	"github.com/lucratix100/cmga-invoice/internal/domain"
	"github.com/lucratix100/cmga-invoice/internal/middleware"
	"github.com/lucratix100/cmga-invoice/internal/router"
)

// RegisterAPIRoutes registers the JSON API. Every route resolves the caller's
// role from the gateway header; write routes additionally require the matching
// capability.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	api := r.Group(middleware.ResolveRole)

	// Invoices
	api.Get("/api/v1/invoices", deps.InvoiceHandler.List)
	api.Get("/api/v1/invoices/{id}", deps.InvoiceHandler.Get)
	api.Post("/api/v1/invoices", deps.InvoiceHandler.Import,
		middleware.RequireCapability(domain.CapImportInvoice))
	api.Post("/api/v1/invoices/{id}/payments", deps.InvoiceHandler.RecordPayment,
		middleware.RequireCapability(domain.CapRecordPayment))
	api.Delete("/api/v1/invoices/{id}/payments/{paymentID}", deps.InvoiceHandler.DeletePayment,
		middleware.RequireCapability(domain.CapRecordPayment))
	api.Post("/api/v1/invoices/{id}/regularize", deps.InvoiceHandler.Regularize,
		middleware.RequireCapability(domain.CapRegularize))
	api.Post("/api/v1/invoices/{id}/return-correction", deps.InvoiceHandler.ApplyReturnCorrection,
		middleware.RequireCapability(domain.CapRunBatch))

	// Delivery notes
	api.Get("/api/v1/invoices/{id}/delivery-notes", deps.DeliveryHandler.ListForInvoice)
	api.Get("/api/v1/delivery-notes/{id}", deps.DeliveryHandler.Get)
	api.Post("/api/v1/delivery-notes", deps.DeliveryHandler.Create,
		middleware.RequireCapability(domain.CapCreateNote))
	api.Post("/api/v1/delivery-notes/{id}/confirm", deps.DeliveryHandler.Confirm,
		middleware.RequireCapability(domain.CapConfirmNote))

	// Recovery settings
	api.Get("/api/v1/recovery/settings", deps.RecoveryHandler.ListSettings)
	api.Put("/api/v1/recovery/settings", deps.RecoveryHandler.UpsertSetting,
		middleware.RequireCapability(domain.CapManageRecovery))
	api.Put("/api/v1/invoices/{id}/recovery-delay", deps.RecoveryHandler.SetCustomDelay,
		middleware.RequireCapability(domain.CapManageRecovery))
	api.Delete("/api/v1/invoices/{id}/recovery-delay", deps.RecoveryHandler.ClearCustomDelay,
		middleware.RequireCapability(domain.CapManageRecovery))

	// Batches (synchronous; the scheduler also enqueues these nightly)
	api.Post("/api/v1/batches/recompute-urgency", deps.InvoiceHandler.RunUrgencyRecomputation,
		middleware.RequireCapability(domain.CapRunBatch))
	api.Post("/api/v1/batches/return-correction", deps.InvoiceHandler.RunReturnCorrection,
		middleware.RequireCapability(domain.CapRunBatch))
}
