package chat_repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iamKIVOUS/CampusConnect/internal/entity"
	app_error "github.com/iamKIVOUS/CampusConnect/internal/errors"
)

// ChatRepoContract is the transactional interface over conversations,
// memberships, messages and per-recipient statuses. Multi-row mutations are
// composed by the use-case layer inside Transaction; the receiver passed to
// the callback is bound to the open transaction, so a failure anywhere rolls
// back every write.
type ChatRepoContract interface {
	Transaction(ctx context.Context, fn func(tx ChatRepoContract) *app_error.AppError) *app_error.AppError

	// Conversations
	CreateConversation(ctx context.Context, conv *entity.Conversation) *app_error.AppError
	FindConversation(ctx context.Context, id uuid.UUID) (*entity.Conversation, *app_error.AppError)
	FindDirectConversation(ctx context.Context, userA, userB string) (*entity.Conversation, *app_error.AppError)
	UpdateConversation(ctx context.Context, id uuid.UUID, updates map[string]any) *app_error.AppError
	SetLastMessage(ctx context.Context, id uuid.UUID, messageID int64, at time.Time) *app_error.AppError
	DeleteConversation(ctx context.Context, id uuid.UUID) *app_error.AppError

	// Members
	CreateMembers(ctx context.Context, members []entity.Member) *app_error.AppError
	FindMember(ctx context.Context, convID uuid.UUID, userID string) (*entity.Member, *app_error.AppError)
	FindMembers(ctx context.Context, convID uuid.UUID) ([]entity.Member, *app_error.AppError)
	FindAdmins(ctx context.Context, convID uuid.UUID) ([]entity.Member, *app_error.AppError)
	EarliestJoinedMemberExcept(ctx context.Context, convID uuid.UUID, userID string) (*entity.Member, *app_error.AppError)
	ExistingMemberIDs(ctx context.Context, convID uuid.UUID, candidateIDs []string) ([]string, *app_error.AppError)
	MembershipsForUser(ctx context.Context, userID string, includeArchived bool) ([]entity.Member, *app_error.AppError)
	UpdateMemberRole(ctx context.Context, convID uuid.UUID, userID, role string) *app_error.AppError
	SetMemberArchived(ctx context.Context, convID uuid.UUID, userID string, archived bool) *app_error.AppError
	ResetUnread(ctx context.Context, convID uuid.UUID, userID string) *app_error.AppError
	IncrementUnreadExcept(ctx context.Context, convID uuid.UUID, senderID string) *app_error.AppError
	DeleteMember(ctx context.Context, convID uuid.UUID, userID string) *app_error.AppError
	DeleteMembers(ctx context.Context, convID uuid.UUID) *app_error.AppError

	// Messages and statuses
	CreateMessage(ctx context.Context, msg *entity.Message) *app_error.AppError
	FindMessage(ctx context.Context, id int64) (*entity.Message, *app_error.AppError)
	CountMessages(ctx context.Context, convID uuid.UUID) (int64, *app_error.AppError)
	ListMessages(ctx context.Context, convID uuid.UUID, limit int, cursor *int64) ([]entity.Message, *app_error.AppError)
	SearchMessages(ctx context.Context, convIDs []uuid.UUID, query string, limit, offset int) ([]entity.Message, int64, *app_error.AppError)
	CreateStatuses(ctx context.Context, statuses []entity.MessageStatus) *app_error.AppError
	StatusesForMessages(ctx context.Context, messageIDs []int64) ([]entity.MessageStatus, *app_error.AppError)
	MarkConversationRead(ctx context.Context, convID uuid.UUID, userID string, at time.Time) ([]entity.Message, *app_error.AppError)
}
