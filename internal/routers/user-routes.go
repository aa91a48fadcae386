package routers

import (
	"github.com/go-chi/chi/v5"

	"github.com/iamKIVOUS/CampusConnect/internal/handlers"
	user_handler "github.com/iamKIVOUS/CampusConnect/internal/handlers/user-handler"
	"github.com/iamKIVOUS/CampusConnect/internal/middleware"
)

func UserRouter(r chi.Router, deps Deps) {
	userHandler := user_handler.NewUserHandler(deps.Users)

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.JWTAuth(deps.JWTSecret, deps.State.Redis))
		protected.Get("/api/v1/users", handlers.WrapHandler(userHandler.GetUsers))
		protected.Get("/api/v1/users/{userId}", handlers.WrapHandler(userHandler.GetUser))
	})
}
