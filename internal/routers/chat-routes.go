package routers

import (
	"github.com/go-chi/chi/v5"

	"github.com/iamKIVOUS/CampusConnect/internal/handlers"
	chat_handler "github.com/iamKIVOUS/CampusConnect/internal/handlers/chat-handler"
	"github.com/iamKIVOUS/CampusConnect/internal/middleware"
)

func ChatRouter(r chi.Router, deps Deps) {
	chatHandler := chat_handler.NewChatHandler(deps.ChatService, deps.Broadcaster)

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.JWTAuth(deps.JWTSecret, deps.State.Redis))

		protected.Route("/api/v1/chat/conversations", func(r chi.Router) {
			r.Post("/", handlers.WrapHandler(chatHandler.CreateConversation))
			r.Get("/", handlers.WrapHandler(chatHandler.GetUserConversations))

			r.Route("/{conversationId}", func(r chi.Router) {
				r.Get("/", handlers.WrapHandler(chatHandler.GetConversation))
				r.Patch("/", handlers.WrapHandler(chatHandler.UpdateGroupDetails))
				r.Delete("/", handlers.WrapHandler(chatHandler.DeleteConversation))
				r.Patch("/archive", handlers.WrapHandler(chatHandler.SetArchived))
				r.Post("/leave", handlers.WrapHandler(chatHandler.LeaveGroup))
				r.Post("/members", handlers.WrapHandler(chatHandler.AddMembers))
				r.Delete("/members/{userId}", handlers.WrapHandler(chatHandler.RemoveMember))
				r.Patch("/members/{userId}/role", handlers.WrapHandler(chatHandler.UpdateMemberRole))
				r.Get("/messages", handlers.WrapHandler(chatHandler.GetMessages))
				r.Patch("/read", handlers.WrapHandler(chatHandler.MarkRead))
			})
		})

		protected.Get("/api/v1/chat/messages/search", handlers.WrapHandler(chatHandler.SearchMessages))
	})
}
