package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRouter_MethodRouting(t *testing.T) {
	r := New()

	r.Get("/invoices", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/invoices", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodPost, http.StatusCreated},
		{http.MethodDelete, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, "/invoices", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != tt.want {
			t.Errorf("%s /invoices: expected status %d, got %d", tt.method, tt.want, w.Code)
		}
	}
}

func TestRouter_PathValues(t *testing.T) {
	r := New()
	r.Get("/invoices/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.PathValue("id")))
	})

	req := httptest.NewRequest(http.MethodGet, "/invoices/42", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Body.String(); got != "42" {
		t.Errorf("expected path value 42, got %q", got)
	}
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	var order []string

	middleware1 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "before1")
			next.ServeHTTP(w, r)
			order = append(order, "after1")
		})
	}

	middleware2 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "before2")
			next.ServeHTTP(w, r)
			order = append(order, "after2")
		})
	}

	r := New(middleware1)
	r.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusOK)
	}, middleware2)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	expected := []string{"before1", "before2", "handler", "after2", "after1"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d elements, got %d", len(expected), len(order))
	}

	for i, v := range expected {
		if order[i] != v {
			t.Errorf("position %d: expected %s, got %s", i, v, order[i])
		}
	}
}

func TestRouter_Group(t *testing.T) {
	globalCalled := false
	groupCalled := false

	globalMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			globalCalled = true
			next.ServeHTTP(w, r)
		})
	}

	groupMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			groupCalled = true
			next.ServeHTTP(w, r)
		})
	}

	r := New(globalMiddleware)
	group := r.Group(groupMiddleware)

	group.Get("/grouped", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/grouped", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if !globalCalled {
		t.Error("global middleware was not called")
	}
	if !groupCalled {
		t.Error("group middleware was not called")
	}

	// Group middleware must not apply to routes registered on the parent.
	groupCalled = false
	req = httptest.NewRequest(http.MethodGet, "/plain", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if groupCalled {
		t.Error("group middleware leaked onto a parent route")
	}
}
