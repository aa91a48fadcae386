package chat_service

import (
	"context"

	"github.com/google/uuid"

	"github.com/iamKIVOUS/CampusConnect/internal/dtos/chat_dto"
	app_error "github.com/iamKIVOUS/CampusConnect/internal/errors"
)

// Presence answers whether a user currently holds at least one live realtime
// connection anywhere in the cluster. The message pipeline consults it when
// deciding whether a new status row starts out as delivered.
type Presence interface {
	IsOnline(ctx context.Context, userID string) bool
}

// ChatServiceContract covers the conversation manager, group administration
// and the message pipeline. Mutating operations return the actor's own
// projection of the conversation so the caller can hand it to the broadcast
// layer after commit.
type ChatServiceContract interface {
	// Conversation manager
	CreateConversation(ctx context.Context, creatorID string, req chat_dto.CreateConversationRequest) (*chat_dto.ConversationView, *app_error.AppError)
	GetFullConversation(ctx context.Context, conversationID uuid.UUID, viewerID string) (*chat_dto.ConversationView, *app_error.AppError)
	GetUserConversations(ctx context.Context, userID string) ([]chat_dto.ConversationView, *app_error.AppError)
	ConversationMemberIDs(ctx context.Context, conversationID uuid.UUID) ([]string, *app_error.AppError)
	SetConversationArchived(ctx context.Context, conversationID uuid.UUID, userID string, archived bool) *app_error.AppError
	DeleteEmptyConversation(ctx context.Context, conversationID uuid.UUID, userID string) *app_error.AppError

	// Group administration. Mutations return the lifecycle system messages
	// they recorded so callers can broadcast them like user messages.
	AddMembersToGroup(ctx context.Context, conversationID uuid.UUID, actorID string, newMemberIDs []string) (*chat_dto.GroupChangeResult, *app_error.AppError)
	RemoveMemberFromGroup(ctx context.Context, conversationID uuid.UUID, actorID, targetID string) (*chat_dto.GroupChangeResult, *app_error.AppError)
	UpdateUserRoleInGroup(ctx context.Context, conversationID uuid.UUID, actorID, targetID, newRole string) (*chat_dto.GroupChangeResult, *app_error.AppError)
	LeaveGroup(ctx context.Context, conversationID uuid.UUID, userID string) ([]chat_dto.MessageView, *app_error.AppError)
	UpdateGroupDetails(ctx context.Context, conversationID uuid.UUID, actorID string, req chat_dto.UpdateGroupDetailsRequest) (*chat_dto.GroupChangeResult, *app_error.AppError)

	// Message pipeline
	SendMessage(ctx context.Context, senderID string, ev chat_dto.SendMessageEvent) (*chat_dto.SendResult, *app_error.AppError)
	GetMessagesForConversation(ctx context.Context, conversationID uuid.UUID, userID string, limit int, cursor *int64) (*chat_dto.MessagePage, *app_error.AppError)
	MarkMessagesAsRead(ctx context.Context, conversationID uuid.UUID, userID string) (*ReadResult, *app_error.AppError)
	SearchMessagesForUser(ctx context.Context, userID string, req chat_dto.SearchMessagesRequest) (*chat_dto.SearchResult, *app_error.AppError)
}

// ReadResult reports what MarkMessagesAsRead touched: the ids that flipped
// to read and the distinct senders who should receive a status update.
type ReadResult struct {
	ConversationID string
	MessageIDs     []int64
	SenderIDs      []string
	Conversation   *chat_dto.ConversationView
}
