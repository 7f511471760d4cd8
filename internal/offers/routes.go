package offers

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/offers", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Show)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/items", h.AddItem)
			r.Patch("/items/{itemID}", h.UpdateItem)
			r.Delete("/items/{itemID}", h.RemoveItem)
			r.Post("/items/reorder", h.ReorderItems)
			r.Post("/notes", h.AddNote)
			r.Post("/activate", h.Activate)
			r.Post("/accept", h.Accept)
			r.Post("/complete", h.Complete)
			r.Post("/cancel", h.Cancel)
			r.Get("/history", h.History)
			r.Get("/document", h.Document)
		})
	})
}
