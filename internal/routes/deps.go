// Package routes wires handlers onto the router with the middleware each
// route group needs.
package routes

import (
	"github.com/lucratix100/cmga-invoice/internal/handler"
)

// APIDeps contains dependencies for the JSON API routes
type APIDeps struct {
	InvoiceHandler  *handler.InvoiceHandler
	DeliveryHandler *handler.DeliveryHandler
	RecoveryHandler *handler.RecoveryHandler
}
