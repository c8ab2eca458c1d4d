package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Group(func(r chi.Router) {
		if s.RequestTimeout > 0 {
			r.Use(timeoutMiddleware(s.RequestTimeout))
		}

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", s.handleListCards)
			r.Post("/", s.handleCreateCard)
			r.Get("/stats", s.handleWordBankStats)
			r.Post("/import", s.handleImportCards)
			r.Get("/import/{jobID}", s.handleImportJob)
			r.Get("/{id}", s.handleGetCard)
			r.Get("/{id}/history", s.handleCardHistory)
			r.Delete("/{id}", s.handleDeleteCard)
		})

		r.Route("/review", func(r chi.Router) {
			r.Get("/summary", s.handleReviewSummary)
			r.Post("/sessions", s.handleStartSession)
			r.Get("/sessions/{id}", s.handleGetSession)
			r.Delete("/sessions/{id}", s.handleEndSession)
			r.Post("/sessions/{id}/remember", s.handleRemember)
			r.Post("/sessions/{id}/reset", s.handleReset)
			r.Post("/sessions/{id}/defer", s.handleDefer)
		})
	})
	return r
}
