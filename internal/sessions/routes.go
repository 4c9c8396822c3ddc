package sessions

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/stats", h.Stats)
		r.Get("/{id}/turns", h.Turns)
		r.Get("/{id}/turns/{turnID}/blocks", h.Blocks)
		r.Get("/{id}/delegations", h.Delegations)
	})
}
