package routers

import (
	"github.com/go-chi/chi/v5"

	"github.com/iamKIVOUS/CampusConnect/internal/handlers"
	hub_handler "github.com/iamKIVOUS/CampusConnect/internal/handlers/hub-handler"
	"github.com/iamKIVOUS/CampusConnect/internal/middleware"
)

func HubRouter(r chi.Router, deps Deps) {
	hubHandler := hub_handler.NewHubHandler(deps.Hub, deps.Presence)

	r.Get("/api/v1/health", hubHandler.HandleHealth)

	// The websocket authenticator verifies the token itself; the handshake
	// does not pass through JWTAuth.
	r.Get("/api/v1/ws", deps.Gateway.HandleWS)

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.JWTAuth(deps.JWTSecret, deps.State.Redis))
		protected.Get("/api/v1/users/{userId}/status", handlers.WrapHandler(hubHandler.HandleGetUserStatus))
	})
}
