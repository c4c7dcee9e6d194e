package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the notification endpoints on r
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)
	r.Get("/diagnostics/data-quality", h.DataQuality)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Put("/", h.PutSession)
		r.Delete("/", h.DeleteSession)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.Notifications)
		r.Get("/badge", h.Badge)
		r.Get("/stream", h.Stream)
		r.Post("/visit", h.Visit)
		r.Post("/refresh", h.Refresh)
		r.Get("/items/{id}", h.Item)
		r.Post("/{id}/dismiss", h.Dismiss)
	})
}
