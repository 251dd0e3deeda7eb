package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/handlers"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/middleware"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
)

func SessionRoutes(router *chi.Mux, sessionHandler *handlers.SessionHandler, protect func(http.Handler) http.Handler) {
	router.Route("/api/sessions", func(r chi.Router) {
		r.Use(protect)

		r.Get("/", sessionHandler.ListSessionsHandler)
		r.With(middleware.ValidateRequest[*models.CreateSessionRequest]()).Post("/", sessionHandler.CreateSessionHandler)

		r.Get("/{id}", sessionHandler.GetSessionHandler)
		r.Delete("/{id}", sessionHandler.DeleteSessionHandler)
		r.Post("/{id}/submit-answer", sessionHandler.SubmitAnswerHandler)
		r.Post("/{id}/end", sessionHandler.EndSessionHandler)
	})
}
