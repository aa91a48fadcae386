package chat_handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/iamKIVOUS/CampusConnect/internal/dtos/chat_dto"
	"github.com/iamKIVOUS/CampusConnect/internal/entity"
	app_error "github.com/iamKIVOUS/CampusConnect/internal/errors"
	"github.com/iamKIVOUS/CampusConnect/internal/realtime"
	chat_service "github.com/iamKIVOUS/CampusConnect/internal/use-case/chat-case"
)

type ChatHandler struct {
	Validate    *validator.Validate
	Service     chat_service.ChatServiceContract
	Broadcaster *realtime.Broadcaster
}

func NewChatHandler(service chat_service.ChatServiceContract, broadcaster *realtime.Broadcaster) *ChatHandler {
	return &ChatHandler{
		Validate:    validator.New(),
		Service:     service,
		Broadcaster: broadcaster,
	}
}

func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req chat_dto.CreateConversationRequest
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.NewAppError(http.StatusBadRequest, "Invalid JSON", "body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return app_error.NewAppError(http.StatusBadRequest, fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}

	resp, err := h.Service.CreateConversation(r.Context(), userID, req)
	if err != nil {
		return err
	}

	writeResponse(w, r, http.StatusCreated, "conversation created successfully", *resp)

	go func() {
		h.notifyMembers(resp)
		// Group creation seeds a system message; open threads get it like
		// any other message.
		if resp.LastMessage != nil && resp.LastMessage.Type == entity.MessageTypeSystem {
			ctx, cancel := broadcastCtx()
			defer cancel()
			h.Broadcaster.MessageToRoom(ctx, resp.ID, resp.LastMessage)
		}
	}()
	return nil
}

func (h *ChatHandler) GetUserConversations(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}

	resp, err := h.Service.GetUserConversations(r.Context(), userID)
	if err != nil {
		return err
	}

	writeResponse(w, r, http.StatusOK, "conversations fetched successfully", resp)
	return nil
}

func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	convID, appErr := conversationID(r)
	if appErr != nil {
		return appErr
	}
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}

	resp, err := h.Service.GetFullConversation(r.Context(), convID, userID)
	if err != nil {
		return err
	}

	writeResponse(w, r, http.StatusOK, "conversation fetched successfully", *resp)
	return nil
}

func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	convID, appErr := conversationID(r)
	if appErr != nil {
		return appErr
	}
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}

	if err := h.Service.DeleteEmptyConversation(r.Context(), convID, userID); err != nil {
		return err
	}

	writeResponse(w, r, http.StatusOK, "conversation deleted successfully", "OK")
	return nil
}

func (h *ChatHandler) SetArchived(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req struct {
		Archived bool `json:"archived"`
	}
	defer r.Body.Close()

	convID, appErr := conversationID(r)
	if appErr != nil {
		return appErr
	}
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.NewAppError(http.StatusBadRequest, "Invalid JSON", "body")
	}

	if err := h.Service.SetConversationArchived(r.Context(), convID, userID, req.Archived); err != nil {
		return err
	}

	writeResponse(w, r, http.StatusOK, "conversation archive flag updated", "OK")
	return nil
}

func (h *ChatHandler) UpdateGroupDetails(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req chat_dto.UpdateGroupDetailsRequest
	defer r.Body.Close()

	convID, appErr := conversationID(r)
	if appErr != nil {
		return appErr
	}
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.NewAppError(http.StatusBadRequest, "Invalid JSON", "body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return app_error.NewAppError(http.StatusBadRequest, fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	resp, err := h.Service.UpdateGroupDetails(r.Context(), convID, userID, req)
	if err != nil {
		return err
	}

	writeResponse(w, r, http.StatusOK, "group details updated successfully", *resp.Conversation)

	go h.broadcastGroupChange(resp)
	return nil
}

func (h *ChatHandler) AddMembers(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req chat_dto.AddMembersRequest
	defer r.Body.Close()

	convID, appErr := conversationID(r)
	if appErr != nil {
		return appErr
	}
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.NewAppError(http.StatusBadRequest, "Invalid JSON", "body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return app_error.NewAppError(http.StatusBadRequest, fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	resp, err := h.Service.AddMembersToGroup(r.Context(), convID, userID, req.MemberIDs)
	if err != nil {
		return err
	}

	writeResponse(w, r, http.StatusOK, "members added successfully", *resp.Conversation)

	go h.broadcastGroupChange(resp)
	return nil
}

func (h *ChatHandler) RemoveMember(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	convID, appErr := conversationID(r)
	if appErr != nil {
		return appErr
	}
	targetID := chi.URLParam(r, "userId")
	if targetID == "" {
		return app_error.NewAppError(http.StatusBadRequest, "user id is required", "params")
	}
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}

	resp, err := h.Service.RemoveMemberFromGroup(r.Context(), convID, userID, targetID)
	if err != nil {
		return err
	}

	writeResponse(w, r, http.StatusOK, "member removed successfully", *resp.Conversation)

	// The removed member also needs their conversation list refreshed.
	go func() {
		h.broadcastGroupChange(resp)
		ctx, cancel := broadcastCtx()
		defer cancel()
		h.Broadcaster.ConversationUpdate(ctx, convID, []string{targetID})
	}()
	return nil
}

func (h *ChatHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req chat_dto.UpdateRoleRequest
	defer r.Body.Close()

	convID, appErr := conversationID(r)
	if appErr != nil {
		return appErr
	}
	targetID := chi.URLParam(r, "userId")
	if targetID == "" {
		return app_error.NewAppError(http.StatusBadRequest, "user id is required", "params")
	}
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.NewAppError(http.StatusBadRequest, "Invalid JSON", "body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return app_error.NewAppError(http.StatusBadRequest, fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	resp, err := h.Service.UpdateUserRoleInGroup(r.Context(), convID, userID, targetID, req.Role)
	if err != nil {
		return err
	}

	writeResponse(w, r, http.StatusOK, "member role updated successfully", *resp.Conversation)

	go h.broadcastGroupChange(resp)
	return nil
}

func (h *ChatHandler) LeaveGroup(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	convID, appErr := conversationID(r)
	if appErr != nil {
		return appErr
	}
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}

	sysMsgs, err := h.Service.LeaveGroup(r.Context(), convID, userID)
	if err != nil {
		return err
	}

	writeResponse(w, r, http.StatusOK, "left group successfully", "OK")

	// The leaver cannot be projected anymore; look the remaining members up
	// fresh instead of reusing a stale view.
	go func() {
		ctx, cancel := broadcastCtx()
		defer cancel()
		h.Broadcaster.ConversationChanged(ctx, convID)
		for i := range sysMsgs {
			h.Broadcaster.MessageToRoom(ctx, convID.String(), &sysMsgs[i])
		}
	}()
	return nil
}

func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	convID, appErr := conversationID(r)
	if appErr != nil {
		return appErr
	}
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return app_error.NewAppError(http.StatusBadRequest, "limit must be a non-negative integer", "limit")
		}
		limit = parsed
	}
	var cursor *int64
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return app_error.NewAppError(http.StatusBadRequest, "cursor must be a message id", "cursor")
		}
		cursor = &parsed
	}

	resp, err := h.Service.GetMessagesForConversation(r.Context(), convID, userID, limit, cursor)
	if err != nil {
		return err
	}

	writeResponse(w, r, http.StatusOK, "messages fetched successfully", *resp)
	return nil
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	convID, appErr := conversationID(r)
	if appErr != nil {
		return appErr
	}
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}

	result, err := h.Service.MarkMessagesAsRead(r.Context(), convID, userID)
	if err != nil {
		return err
	}

	writeResponse(w, r, http.StatusOK, "messages marked as read", *result.Conversation)

	go func() {
		ctx, cancel := broadcastCtx()
		defer cancel()
		if len(result.MessageIDs) > 0 {
			h.Broadcaster.StatusUpdate(ctx, result.SenderIDs, chat_dto.StatusUpdatePayload{
				ConversationID: result.ConversationID,
				MessageIDs:     result.MessageIDs,
				Status:         chat_dto.StatusRead,
			})
		}
		h.Broadcaster.ConversationUpdate(ctx, convID, []string{userID})
	}()
	return nil
}

func (h *ChatHandler) SearchMessages(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}

	req := chat_dto.SearchMessagesRequest{Query: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return app_error.NewAppError(http.StatusBadRequest, "limit must be a non-negative integer", "limit")
		}
		req.Limit = parsed
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return app_error.NewAppError(http.StatusBadRequest, "offset must be a non-negative integer", "offset")
		}
		req.Offset = parsed
	}
	if err := h.Validate.Struct(req); err != nil {
		return app_error.NewAppError(http.StatusBadRequest, fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	resp, err := h.Service.SearchMessagesForUser(r.Context(), userID, req)
	if err != nil {
		return err
	}

	writeResponse(w, r, http.StatusOK, "messages searched successfully", *resp)
	return nil
}
