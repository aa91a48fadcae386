package hub_handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	app_error "github.com/iamKIVOUS/CampusConnect/internal/errors"
	"github.com/iamKIVOUS/CampusConnect/internal/handlers"
	"github.com/iamKIVOUS/CampusConnect/internal/middleware"
	"github.com/iamKIVOUS/CampusConnect/internal/realtime"
)

// HubHandler exposes liveness and presence endpoints over the realtime hub.
type HubHandler struct {
	Hub      *realtime.Hub
	Presence *realtime.ClusterPresence
}

func NewHubHandler(hub *realtime.Hub, presence *realtime.ClusterPresence) *HubHandler {
	return &HubHandler{
		Hub:      hub,
		Presence: presence,
	}
}

func (h *HubHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "chat-server",
	})
}

// HandleGetUserStatus reports whether a user is reachable anywhere in the
// cluster, and whether this instance holds any of their connections.
func (h *HubHandler) HandleGetUserStatus(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		return app_error.NewAppError(http.StatusBadRequest, "user id is required", "params")
	}

	resp := map[string]any{
		"user_id":      userID,
		"online":       h.Presence.IsOnline(r.Context(), userID),
		"local_online": h.Hub.IsUserOnline(userID),
	}

	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(handlers.CreateResponse("successful get user status", resp, reqID))
	return nil
}
