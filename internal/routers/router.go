package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iamKIVOUS/CampusConnect/internal/middleware"
	"github.com/iamKIVOUS/CampusConnect/internal/realtime"
	user_repo "github.com/iamKIVOUS/CampusConnect/internal/repo/user"
	chat_service "github.com/iamKIVOUS/CampusConnect/internal/use-case/chat-case"
	"github.com/iamKIVOUS/CampusConnect/state"
)

// Deps carries everything the HTTP surface needs, wired once in main.
type Deps struct {
	State       *state.AppState
	ChatService chat_service.ChatServiceContract
	Users       user_repo.UserRepoContract
	Hub         *realtime.Hub
	Presence    *realtime.ClusterPresence
	Broadcaster *realtime.Broadcaster
	Gateway     *realtime.Gateway
	JWTSecret   []byte
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.WithRequestId)

	ChatRouter(r, deps)
	UserRouter(r, deps)
	HubRouter(r, deps)
	return r
}
