package handlers

import (
	"github.com/go-chi/chi/v5"
)

// MountAPI registers the desk and photo endpoints on an /api router
func MountAPI(r chi.Router, desk *DeskHandler, photos *PhotoHandler) {
	r.Route("/desk", func(r chi.Router) {
		r.Get("/", desk.GetDesk)
		r.Put("/viewport", desk.SetViewport)
		r.Post("/reset", desk.Reset)
		r.Get("/export", desk.Export)
	})

	r.Post("/capture", photos.Capture)
	r.Post("/camera/acquire", photos.AcquireCamera)

	r.Route("/photos", func(r chi.Router) {
		r.Post("/", photos.Upload)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/image", photos.GetImage)
			r.Put("/captions", photos.UpdateCaptions)
			r.Post("/settle", photos.Settle)
			r.Post("/drag/start", photos.DragStart)
			r.Post("/drag/end", photos.DragEnd)
		})
	})
}
