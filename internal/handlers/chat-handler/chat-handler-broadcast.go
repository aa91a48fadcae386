package chat_handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/iamKIVOUS/CampusConnect/internal/dtos/chat_dto"
	app_error "github.com/iamKIVOUS/CampusConnect/internal/errors"
	"github.com/iamKIVOUS/CampusConnect/internal/handlers"
	"github.com/iamKIVOUS/CampusConnect/internal/middleware"
)

const broadcastTimeout = 10 * time.Second

// broadcastCtx replaces the request context in post-response goroutines; the
// request context is canceled as soon as the handler returns.
func broadcastCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), broadcastTimeout)
}

// notifyMembers pushes each member of the view its own refreshed projection.
func (h *ChatHandler) notifyMembers(view *chat_dto.ConversationView) {
	convID, err := uuid.Parse(view.ID)
	if err != nil {
		log.Error().Str("conversationID", view.ID).Msg("broadcast: bad conversation id")
		return
	}

	memberIDs := make([]string, 0, len(view.Members))
	for _, m := range view.Members {
		memberIDs = append(memberIDs, m.EnrollmentNumber)
	}

	ctx, cancel := broadcastCtx()
	defer cancel()
	h.Broadcaster.ConversationUpdate(ctx, convID, memberIDs)
}

// broadcastGroupChange refreshes every member's summary and delivers the
// recorded lifecycle system messages to the conversation thread, the same
// way user messages reach it.
func (h *ChatHandler) broadcastGroupChange(result *chat_dto.GroupChangeResult) {
	h.notifyMembers(result.Conversation)

	ctx, cancel := broadcastCtx()
	defer cancel()
	for i := range result.SystemMessages {
		h.Broadcaster.MessageToRoom(ctx, result.Conversation.ID, &result.SystemMessages[i])
	}
}

func callerID(r *http.Request) (string, *app_error.AppError) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.Sub == "" {
		return "", app_error.NewAppError(http.StatusUnauthorized, "user id is not found in context", "context")
	}
	return claims.Sub, nil
}

func conversationID(r *http.Request) (uuid.UUID, *app_error.AppError) {
	convID, err := uuid.Parse(chi.URLParam(r, "conversationId"))
	if err != nil {
		return uuid.Nil, app_error.NewAppError(http.StatusBadRequest, "conversation id must be a uuid", "params")
	}
	return convID, nil
}

func writeResponse[T any](w http.ResponseWriter, r *http.Request, status int, message string, data T) {
	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(handlers.CreateResponse(message, data, reqID))
}
