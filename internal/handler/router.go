package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/storefront/internal/metrics"
	custommiddleware "github.com/mmeshcher/storefront/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware витрины.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.Metrics)

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(h.session.Middleware)

		r.Route("/installments", func(r chi.Router) {
			r.Get("/plans", h.GetPlans)
			r.Post("/quote", h.Quote)
			r.Get("/eligibility", h.GetEligibility)

			r.Post("/", h.CreateInstallment)
			r.Get("/", h.GetInstallments)
			r.Get("/{id}", h.GetInstallment)
			r.Post("/{id}/payments/{paymentID}", h.RecordPayment)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)

			r.Post("/items", h.AddCartItem)
			r.Put("/items", h.UpdateCartItem)
			r.Delete("/items", h.RemoveCartItem)

			r.Get("/vendors", h.GetVendorGroups)
			r.Post("/checkout", h.Checkout)
			r.Get("/events", h.CartEvents)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
