package chat_service

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iamKIVOUS/CampusConnect/internal/dtos/chat_dto"
	"github.com/iamKIVOUS/CampusConnect/internal/entity"
	app_error "github.com/iamKIVOUS/CampusConnect/internal/errors"
	chat_repo "github.com/iamKIVOUS/CampusConnect/internal/repo/chat"
	user_repo "github.com/iamKIVOUS/CampusConnect/internal/repo/user"
)

type ChatService struct {
	Repo     chat_repo.ChatRepoContract
	Users    user_repo.UserRepoContract
	Presence Presence
}

func NewChatService(repo chat_repo.ChatRepoContract, users user_repo.UserRepoContract, presence Presence) ChatServiceContract {
	return &ChatService{
		Repo:     repo,
		Users:    users,
		Presence: presence,
	}
}

// requireMembership gates every conversation-scoped operation. A missing
// member row is reported as Forbidden, not NotFound, so non-members cannot
// probe for conversation existence.
func requireMembership(ctx context.Context, repo chat_repo.ChatRepoContract, convID uuid.UUID, userID string) (*entity.Member, *app_error.AppError) {
	member, err := repo.FindMember(ctx, convID, userID)
	if err != nil {
		if err.Code == http.StatusNotFound {
			return nil, app_error.NewForbiddenError("You are not a member of this conversation.")
		}
		return nil, err
	}
	return member, nil
}

func requireAdmin(ctx context.Context, repo chat_repo.ChatRepoContract, convID uuid.UUID, userID string) (*entity.Member, *app_error.AppError) {
	member, err := requireMembership(ctx, repo, convID, userID)
	if err != nil {
		return nil, err
	}
	if member.Role != entity.RoleAdmin {
		return nil, app_error.NewForbiddenError("You must be an admin to perform this action.")
	}
	return member, nil
}

// profilesByID resolves display profiles for a set of users, falling back to
// the raw id as the name for anyone missing from the directory.
func (c *ChatService) profilesByID(ctx context.Context, userIDs []string) (map[string]chat_dto.UserProfile, *app_error.AppError) {
	profiles := make(map[string]chat_dto.UserProfile, len(userIDs))
	users, err := c.Users.FindUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		profiles[u.ID] = chat_dto.UserProfile{
			EnrollmentNumber: u.ID,
			Name:             u.Name,
			PhotoURL:         u.PhotoURL,
		}
	}
	for _, id := range userIDs {
		if _, ok := profiles[id]; !ok {
			profiles[id] = chat_dto.UserProfile{EnrollmentNumber: id, Name: id}
		}
	}
	return profiles, nil
}

func (c *ChatService) displayName(ctx context.Context, userID string) string {
	user, err := c.Users.FindUser(ctx, userID)
	if err != nil || user.Name == "" {
		return userID
	}
	return user.Name
}

// overallMessageStatus aggregates recipient status rows into the lattice
// sent < delivered < read. Only the sender sees the aggregate; everyone else
// gets "sent" since their own row already tells them what they need.
func overallMessageStatus(msg *entity.Message, statuses []entity.MessageStatus, viewerID string) string {
	if msg.SenderID == nil || *msg.SenderID != viewerID {
		return chat_dto.StatusSent
	}
	var recipients []entity.MessageStatus
	for _, s := range statuses {
		if s.UserID != viewerID {
			recipients = append(recipients, s)
		}
	}
	if len(recipients) == 0 {
		return chat_dto.StatusSent
	}
	allDelivered := true
	for _, s := range recipients {
		if s.ReadAt != nil {
			return chat_dto.StatusRead
		}
		if s.DeliveredAt == nil {
			allDelivered = false
		}
	}
	if allDelivered {
		return chat_dto.StatusDelivered
	}
	return chat_dto.StatusSent
}

func messageView(msg *entity.Message, statuses []entity.MessageStatus, profiles map[string]chat_dto.UserProfile, viewerID string) chat_dto.MessageView {
	view := chat_dto.MessageView{
		ID:             msg.ID,
		ConversationID: msg.ConversationID.String(),
		ClientMsgID:    msg.ClientMsgID,
		Body:           msg.Body,
		AttachmentURL:  msg.AttachmentURL,
		AttachmentType: msg.AttachmentType,
		Type:           msg.Type,
		Deleted:        msg.Deleted,
		Status:         overallMessageStatus(msg, statuses, viewerID),
		CreatedAt:      msg.CreatedAt,
		EditedAt:       msg.EditedAt,
	}
	if msg.SenderID != nil {
		if p, ok := profiles[*msg.SenderID]; ok {
			sender := p
			view.Sender = &sender
		} else {
			view.Sender = &chat_dto.UserProfile{EnrollmentNumber: *msg.SenderID, Name: *msg.SenderID}
		}
	}
	for _, s := range statuses {
		view.Statuses = append(view.Statuses, chat_dto.StatusView{
			UserID:      s.UserID,
			DeliveredAt: s.DeliveredAt,
			ReadAt:      s.ReadAt,
		})
	}
	return view
}

// createSystemMessage records a group lifecycle event as a message with no
// sender and advances the conversation's last-message pointers. It must run
// on a tx-bound repo so it commits or rolls back with its triggering write.
func createSystemMessage(ctx context.Context, repo chat_repo.ChatRepoContract, convID uuid.UUID, body string) (*entity.Message, *app_error.AppError) {
	msg := &entity.Message{
		ConversationID: convID,
		SenderID:       nil,
		Body:           body,
		Type:           entity.MessageTypeSystem,
		CreatedAt:      time.Now(),
	}
	if err := repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := repo.SetLastMessage(ctx, convID, msg.ID, msg.CreatedAt); err != nil {
		return nil, err
	}
	return msg, nil
}

// ConversationMemberIDs lists the current member ids, used by the broadcast
// layer to decide who needs a refreshed projection.
// systemMessageViews projects recorded lifecycle messages for broadcast.
// System messages carry no sender and no status rows, so no viewer or
// profile lookup is needed.
func systemMessageViews(msgs []*entity.Message) []chat_dto.MessageView {
	views := make([]chat_dto.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView(m, nil, nil, ""))
	}
	return views
}

func (c *ChatService) ConversationMemberIDs(ctx context.Context, conversationID uuid.UUID) ([]string, *app_error.AppError) {
	members, err := c.Repo.FindMembers(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

// fullConversation builds the viewer-relative projection: resolved member
// profiles with roles, the last message with its aggregated status, and the
// viewer's own unread count and archive flag.
func (c *ChatService) fullConversation(ctx context.Context, repo chat_repo.ChatRepoContract, convID uuid.UUID, viewerID string) (*chat_dto.ConversationView, *app_error.AppError) {
	viewer, err := requireMembership(ctx, repo, convID, viewerID)
	if err != nil {
		return nil, err
	}
	conv, err := repo.FindConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	members, err := repo.FindMembers(ctx, convID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(members)+1)
	for _, m := range members {
		ids = append(ids, m.UserID)
	}

	var lastMessage *entity.Message
	var lastStatuses []entity.MessageStatus
	if conv.LastMessageID != nil {
		msg, msgErr := repo.FindMessage(ctx, *conv.LastMessageID)
		if msgErr == nil {
			lastMessage = msg
			if msg.SenderID != nil {
				ids = append(ids, *msg.SenderID)
			}
			lastStatuses, err = repo.StatusesForMessages(ctx, []int64{msg.ID})
			if err != nil {
				return nil, err
			}
		} else if msgErr.Code != http.StatusNotFound {
			return nil, msgErr
		}
	}

	profiles, err := c.profilesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &chat_dto.ConversationView{
		ID:              conv.ID.String(),
		Type:            conv.Type,
		Title:           conv.Title,
		PhotoURL:        conv.PhotoURL,
		JoinPolicy:      conv.JoinPolicy,
		MessagingPolicy: conv.MessagingPolicy,
		CreatedBy:       conv.CreatedBy,
		LastMessageAt:   conv.LastMessageAt,
		UnreadCount:     viewer.UnreadCount,
		IsArchived:      viewer.IsArchived,
		CreatedAt:       conv.CreatedAt,
	}
	for _, m := range members {
		view.Members = append(view.Members, chat_dto.MemberView{
			UserProfile: profiles[m.UserID],
			Role:        m.Role,
		})
	}
	if lastMessage != nil {
		mv := messageView(lastMessage, lastStatuses, profiles, viewerID)
		view.LastMessage = &mv
	}
	return view, nil
}
