package routers

import (
	"github.com/go-chi/chi/v5"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/handlers"
)

// WSRoutes mounts the push channel. It authenticates its own token because
// browsers cannot send headers on an upgrade.
func WSRoutes(router *chi.Mux, wsHandler *handlers.WSHandler) {
	router.Get("/ws", wsHandler.SubscribeHandler)
}
