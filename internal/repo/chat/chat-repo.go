package chat_repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/iamKIVOUS/CampusConnect/internal/entity"
	app_error "github.com/iamKIVOUS/CampusConnect/internal/errors"
)

type ChatRepo struct {
	db *gorm.DB
}

func NewChatRepo(db *gorm.DB) ChatRepoContract {
	return &ChatRepo{db: db}
}

// Transaction runs fn with a repo bound to an open transaction. Returning a
// non-nil *AppError rolls everything back; the same error is handed to the
// caller unchanged.
func (r *ChatRepo) Transaction(ctx context.Context, fn func(tx ChatRepoContract) *app_error.AppError) *app_error.AppError {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if appErr := fn(&ChatRepo{db: tx}); appErr != nil {
			return appErr
		}
		return nil
	})
	if err == nil {
		return nil
	}
	var appErr *app_error.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	log.Error().Err(err).Msg("chat repo: transaction failed")
	return app_error.NewServerError("db-tx")
}

// --- Conversations ---

func (r *ChatRepo) CreateConversation(ctx context.Context, conv *entity.Conversation) *app_error.AppError {
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		log.Error().Err(err).Msg("chat repo: failed to create conversation")
		return app_error.NewServerError("db-error")
	}
	return nil
}

func (r *ChatRepo) FindConversation(ctx context.Context, id uuid.UUID) (*entity.Conversation, *app_error.AppError) {
	var conv entity.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NewNotFoundError("conversation not found")
		}
		log.Error().Err(err).Msg("chat repo: failed to fetch conversation")
		return nil, app_error.NewServerError("db-error")
	}
	return &conv, nil
}

// FindDirectConversation looks up the one direct conversation whose member
// set equals exactly {userA, userB}, via a count-based set-equality query.
// There is no uniqueness constraint backing this, so concurrent first
// messages from both parties can still race; callers treat a NotFound as
// "create one".
func (r *ChatRepo) FindDirectConversation(ctx context.Context, userA, userB string) (*entity.Conversation, *app_error.AppError) {
	var conv entity.Conversation

	query := `
		SELECT c.* FROM conversations c
		WHERE c.type = 'direct'
		AND c.id IN (
			SELECT cm.conversation_id
			FROM conversation_members cm
			WHERE cm.user_id IN (?, ?)
			GROUP BY cm.conversation_id
			HAVING COUNT(DISTINCT cm.user_id) = 2
		)
		AND (
			SELECT COUNT(*) FROM conversation_members cm2
			WHERE cm2.conversation_id = c.id
		) = 2
	`
	err := r.db.WithContext(ctx).Raw(query, userA, userB).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NewNotFoundError("direct conversation not found")
		}
		log.Error().Err(err).Msg("chat repo: failed to query direct conversation")
		return nil, app_error.NewServerError("db-error")
	}
	return &conv, nil
}

func (r *ChatRepo) UpdateConversation(ctx context.Context, id uuid.UUID, updates map[string]any) *app_error.AppError {
	if len(updates) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&entity.Conversation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		log.Error().Err(err).Msg("chat repo: failed to update conversation")
		return app_error.NewServerError("db-error")
	}
	return nil
}

func (r *ChatRepo) SetLastMessage(ctx context.Context, id uuid.UUID, messageID int64, at time.Time) *app_error.AppError {
	return r.UpdateConversation(ctx, id, map[string]any{
		"last_message_id": messageID,
		"last_message_at": at,
	})
}

func (r *ChatRepo) DeleteConversation(ctx context.Context, id uuid.UUID) *app_error.AppError {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Conversation{}).Error; err != nil {
		log.Error().Err(err).Msg("chat repo: failed to delete conversation")
		return app_error.NewServerError("db-error")
	}
	return nil
}

// --- Members ---

func (r *ChatRepo) CreateMembers(ctx context.Context, members []entity.Member) *app_error.AppError {
	if len(members) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&members).Error; err != nil {
		log.Error().Err(err).Msg("chat repo: failed to create members")
		return app_error.NewServerError("db-error")
	}
	return nil
}

func (r *ChatRepo) FindMember(ctx context.Context, convID uuid.UUID, userID string) (*entity.Member, *app_error.AppError) {
	var member entity.Member
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NewNotFoundError("member not found")
		}
		log.Error().Err(err).Msg("chat repo: failed to fetch member")
		return nil, app_error.NewServerError("db-error")
	}
	return &member, nil
}

func (r *ChatRepo) FindMembers(ctx context.Context, convID uuid.UUID) ([]entity.Member, *app_error.AppError) {
	var members []entity.Member
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", convID).Order("joined_at ASC").Find(&members).Error; err != nil {
		log.Error().Err(err).Msg("chat repo: failed to fetch members")
		return nil, app_error.NewServerError("db-error")
	}
	return members, nil
}

func (r *ChatRepo) FindAdmins(ctx context.Context, convID uuid.UUID) ([]entity.Member, *app_error.AppError) {
	var admins []entity.Member
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND role = ?", convID, entity.RoleAdmin).
		Find(&admins).Error
	if err != nil {
		log.Error().Err(err).Msg("chat repo: failed to fetch admins")
		return nil, app_error.NewServerError("db-error")
	}
	return admins, nil
}

// EarliestJoinedMemberExcept picks the admin-succession candidate. UserID is
// a tie-break so the choice is deterministic when joined_at collides.
func (r *ChatRepo) EarliestJoinedMemberExcept(ctx context.Context, convID uuid.UUID, userID string) (*entity.Member, *app_error.AppError) {
	var member entity.Member
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id <> ?", convID, userID).
		Order("joined_at ASC, user_id ASC").
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NewNotFoundError("no other members")
		}
		log.Error().Err(err).Msg("chat repo: failed to fetch succession candidate")
		return nil, app_error.NewServerError("db-error")
	}
	return &member, nil
}

func (r *ChatRepo) ExistingMemberIDs(ctx context.Context, convID uuid.UUID, candidateIDs []string) ([]string, *app_error.AppError) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.Member{}).
		Where("conversation_id = ? AND user_id IN ?", convID, candidateIDs).
		Pluck("user_id", &ids).Error
	if err != nil {
		log.Error().Err(err).Msg("chat repo: failed to fetch existing member ids")
		return nil, app_error.NewServerError("db-error")
	}
	return ids, nil
}

func (r *ChatRepo) MembershipsForUser(ctx context.Context, userID string, includeArchived bool) ([]entity.Member, *app_error.AppError) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeArchived {
		q = q.Where("is_archived = ?", false)
	}
	var memberships []entity.Member
	if err := q.Find(&memberships).Error; err != nil {
		log.Error().Err(err).Msg("chat repo: failed to fetch memberships")
		return nil, app_error.NewServerError("db-error")
	}
	return memberships, nil
}

func (r *ChatRepo) UpdateMemberRole(ctx context.Context, convID uuid.UUID, userID, role string) *app_error.AppError {
	err := r.db.WithContext(ctx).Model(&entity.Member{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Update("role", role).Error
	if err != nil {
		log.Error().Err(err).Msg("chat repo: failed to update member role")
		return app_error.NewServerError("db-error")
	}
	return nil
}

func (r *ChatRepo) SetMemberArchived(ctx context.Context, convID uuid.UUID, userID string, archived bool) *app_error.AppError {
	res := r.db.WithContext(ctx).Model(&entity.Member{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Update("is_archived", archived)
	if res.Error != nil {
		log.Error().Err(res.Error).Msg("chat repo: failed to update archive flag")
		return app_error.NewServerError("db-error")
	}
	if res.RowsAffected == 0 {
		return app_error.NewNotFoundError("member not found")
	}
	return nil
}

func (r *ChatRepo) ResetUnread(ctx context.Context, convID uuid.UUID, userID string) *app_error.AppError {
	err := r.db.WithContext(ctx).Model(&entity.Member{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Update("unread_count", 0).Error
	if err != nil {
		log.Error().Err(err).Msg("chat repo: failed to reset unread count")
		return app_error.NewServerError("db-error")
	}
	return nil
}

func (r *ChatRepo) IncrementUnreadExcept(ctx context.Context, convID uuid.UUID, senderID string) *app_error.AppError {
	err := r.db.WithContext(ctx).Model(&entity.Member{}).
		Where("conversation_id = ? AND user_id <> ?", convID, senderID).
		Update("unread_count", gorm.Expr("unread_count + ?", 1)).Error
	if err != nil {
		log.Error().Err(err).Msg("chat repo: failed to increment unread counts")
		return app_error.NewServerError("db-error")
	}
	return nil
}

func (r *ChatRepo) DeleteMember(ctx context.Context, convID uuid.UUID, userID string) *app_error.AppError {
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Delete(&entity.Member{}).Error
	if err != nil {
		log.Error().Err(err).Msg("chat repo: failed to delete member")
		return app_error.NewServerError("db-error")
	}
	return nil
}

func (r *ChatRepo) DeleteMembers(ctx context.Context, convID uuid.UUID) *app_error.AppError {
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Delete(&entity.Member{}).Error
	if err != nil {
		log.Error().Err(err).Msg("chat repo: failed to delete members")
		return app_error.NewServerError("db-error")
	}
	return nil
}

// --- Messages and statuses ---

func (r *ChatRepo) CreateMessage(ctx context.Context, msg *entity.Message) *app_error.AppError {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		log.Error().Err(err).Msg("chat repo: failed to create message")
		return app_error.NewServerError("db-error")
	}
	return nil
}

func (r *ChatRepo) FindMessage(ctx context.Context, id int64) (*entity.Message, *app_error.AppError) {
	var msg entity.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NewNotFoundError("message not found")
		}
		log.Error().Err(err).Msg("chat repo: failed to fetch message")
		return nil, app_error.NewServerError("db-error")
	}
	return &msg, nil
}

func (r *ChatRepo) CountMessages(ctx context.Context, convID uuid.UUID) (int64, *app_error.AppError) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Message{}).
		Where("conversation_id = ?", convID).
		Count(&count).Error
	if err != nil {
		log.Error().Err(err).Msg("chat repo: failed to count messages")
		return 0, app_error.NewServerError("db-error")
	}
	return count, nil
}

// ListMessages returns newest-first; cursor is an exclusive upper bound on
// the message id. The caller passes limit+1 to detect a further page.
func (r *ChatRepo) ListMessages(ctx context.Context, convID uuid.UUID, limit int, cursor *int64) ([]entity.Message, *app_error.AppError) {
	q := r.db.WithContext(ctx).Where("conversation_id = ?", convID)
	if cursor != nil {
		q = q.Where("id < ?", *cursor)
	}
	var messages []entity.Message
	if err := q.Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		log.Error().Err(err).Msg("chat repo: failed to list messages")
		return nil, app_error.NewServerError("db-error")
	}
	return messages, nil
}

func (r *ChatRepo) SearchMessages(ctx context.Context, convIDs []uuid.UUID, query string, limit, offset int) ([]entity.Message, int64, *app_error.AppError) {
	// Session so the Count finisher does not pollute the page query below.
	base := r.db.WithContext(ctx).Model(&entity.Message{}).
		Where("conversation_id IN ?", convIDs).
		Where("type = ?", entity.MessageTypeUser).
		Where("LOWER(body) LIKE LOWER(?)", "%"+query+"%").
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		log.Error().Err(err).Msg("chat repo: failed to count search results")
		return nil, 0, app_error.NewServerError("db-error")
	}

	var messages []entity.Message
	err := base.Order("created_at DESC").Limit(limit).Offset(offset).Find(&messages).Error
	if err != nil {
		log.Error().Err(err).Msg("chat repo: failed to search messages")
		return nil, 0, app_error.NewServerError("db-error")
	}
	return messages, total, nil
}

func (r *ChatRepo) CreateStatuses(ctx context.Context, statuses []entity.MessageStatus) *app_error.AppError {
	if len(statuses) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&statuses).Error; err != nil {
		log.Error().Err(err).Msg("chat repo: failed to create message statuses")
		return app_error.NewServerError("db-error")
	}
	return nil
}

func (r *ChatRepo) StatusesForMessages(ctx context.Context, messageIDs []int64) ([]entity.MessageStatus, *app_error.AppError) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var statuses []entity.MessageStatus
	if err := r.db.WithContext(ctx).Where("message_id IN ?", messageIDs).Find(&statuses).Error; err != nil {
		log.Error().Err(err).Msg("chat repo: failed to fetch message statuses")
		return nil, app_error.NewServerError("db-error")
	}
	return statuses, nil
}

// MarkConversationRead advances every unread status row of userID in the
// conversation to read (setting delivered_at too where it was still null, so
// read always implies delivered) and returns the affected messages so their
// senders can be notified.
func (r *ChatRepo) MarkConversationRead(ctx context.Context, convID uuid.UUID, userID string, at time.Time) ([]entity.Message, *app_error.AppError) {
	var messages []entity.Message
	err := r.db.WithContext(ctx).
		Joins("JOIN message_status ms ON ms.message_id = messages.id").
		Where("ms.user_id = ? AND ms.read_at IS NULL AND messages.conversation_id = ?", userID, convID).
		Find(&messages).Error
	if err != nil {
		log.Error().Err(err).Msg("chat repo: failed to fetch unread messages")
		return nil, app_error.NewServerError("db-error")
	}
	if len(messages) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}

	err = r.db.WithContext(ctx).Model(&entity.MessageStatus{}).
		Where("message_id IN ? AND user_id = ? AND read_at IS NULL", ids, userID).
		Updates(map[string]any{
			"read_at":      at,
			"delivered_at": gorm.Expr("COALESCE(delivered_at, ?)", at),
		}).Error
	if err != nil {
		log.Error().Err(err).Msg("chat repo: failed to mark statuses read")
		return nil, app_error.NewServerError("db-error")
	}
	return messages, nil
}
