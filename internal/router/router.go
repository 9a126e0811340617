// Package router wraps http.ServeMux with method routing and middleware
// chaining, keeping the API surface free of framework dependencies.
package router

import (
	"net/http"
	"slices"
)

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Router wraps http.ServeMux with middleware chaining.
type Router struct {
	mux   *http.ServeMux
	chain []Middleware
}

// New creates a new Router with optional global middleware.
func New(middleware ...Middleware) *Router {
	return &Router{
		mux:   http.NewServeMux(),
		chain: middleware,
	}
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Get registers a GET route.
func (r *Router) Get(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodGet, pattern, handler, middleware...)
}

// Post registers a POST route.
func (r *Router) Post(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPost, pattern, handler, middleware...)
}

// Put registers a PUT route.
func (r *Router) Put(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPut, pattern, handler, middleware...)
}

// Delete registers a DELETE route.
func (r *Router) Delete(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodDelete, pattern, handler, middleware...)
}

// Handle registers a route with explicit method.
func (r *Router) Handle(method, pattern string, handler http.Handler, middleware ...Middleware) {
	r.mux.Handle(method+" "+pattern, r.wrap(handler, middleware))
}

// Group creates a sub-router sharing the mux with additional middleware.
func (r *Router) Group(middleware ...Middleware) *Router {
	return &Router{
		mux:   r.mux,
		chain: append(slices.Clone(r.chain), middleware...),
	}
}

// wrap applies middleware in reverse order so they execute in the order
// defined.
func (r *Router) wrap(handler http.Handler, middleware []Middleware) http.Handler {
	combined := append(slices.Clone(r.chain), middleware...)
	slices.Reverse(combined)

	result := handler
	for _, m := range combined {
		result = m(result)
	}
	return result
}
