package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/scan", app.StartScanHandler)
		r.Get("/scan/progress", app.ScanProgressHandler)

		r.Get("/concerts", app.ListConcertsHandler)

		r.Route("/review", func(r chi.Router) {
			r.Get("/unmatched", app.ListUnmatchedHandler)
			r.Post("/unmatched/{id}/link", app.LinkUnmatchedHandler)
			r.Post("/unmatched/{id}/skip", app.SkipUnmatchedHandler)
			r.Post("/unmatched/{id}/unskip", app.UnskipUnmatchedHandler)
		})
	})

	return r
}
