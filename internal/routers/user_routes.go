package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/handlers"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/middleware"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
)

func UserRoutes(router *chi.Mux, userHandler *handlers.UserHandler, protect func(http.Handler) http.Handler) {
	router.Route("/api/users", func(r chi.Router) {
		r.With(middleware.ValidateRequest[*models.RegisterRequest]()).Post("/", userHandler.RegisterHandler)
		r.With(middleware.ValidateRequest[*models.LoginRequest]()).Post("/login", userHandler.LoginHandler)
		r.With(middleware.ValidateRequest[*models.GoogleLoginRequest]()).Post("/google", userHandler.GoogleLoginHandler)

		r.With(protect).Get("/profile", userHandler.GetProfileHandler)
		r.With(protect, middleware.ValidateRequest[*models.UpdateProfileRequest]()).Put("/profile", userHandler.UpdateProfileHandler)
	})
}
