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
)

const defaultPageSize = 30

// SendMessage is the central transactional write: it resolves (or creates)
// the target conversation, inserts the message, fans out one status row per
// member, bumps the denormalized last-message pointers and unread counters,
// and only after commit builds the payloads for broadcast.
func (c *ChatService) SendMessage(ctx context.Context, senderID string, ev chat_dto.SendMessageEvent) (*chat_dto.SendResult, *app_error.AppError) {
	var (
		convID   uuid.UUID
		msg      *entity.Message
		statuses []entity.MessageStatus
		isNew    bool
	)

	if ev.ConversationID != chat_dto.NewDirectChat {
		parsed, err := uuid.Parse(ev.ConversationID)
		if err != nil {
			return nil, app_error.NewValidationError("Invalid conversation id.", "conversation_id")
		}
		convID = parsed
	}

	txErr := c.Repo.Transaction(ctx, func(tx chat_repo.ChatRepoContract) *app_error.AppError {
		if ev.ConversationID == chat_dto.NewDirectChat {
			resolved, created, err := c.resolveDirectChat(ctx, tx, senderID, ev)
			if err != nil {
				return err
			}
			convID = resolved
			isNew = created
		}

		conv, err := tx.FindConversation(ctx, convID)
		if err != nil {
			return err
		}
		sender, err := requireMembership(ctx, tx, convID, senderID)
		if err != nil {
			return err
		}
		if conv.MessagingPolicy == entity.MessagingPolicyAdminsOnly && sender.Role != entity.RoleAdmin {
			return app_error.NewForbiddenError("Only admins may send messages in this conversation.")
		}

		now := time.Now()
		clientMsgID := ev.ClientMsgID
		msg = &entity.Message{
			ConversationID: convID,
			SenderID:       &senderID,
			ClientMsgID:    &clientMsgID,
			Body:           ev.Body,
			Type:           entity.MessageTypeUser,
			CreatedAt:      now,
		}
		if err := tx.CreateMessage(ctx, msg); err != nil {
			return err
		}

		members, err := tx.FindMembers(ctx, convID)
		if err != nil {
			return err
		}
		statuses = statuses[:0]
		for _, m := range members {
			status := entity.MessageStatus{MessageID: msg.ID, UserID: m.UserID}
			at := now
			switch {
			case m.UserID == senderID:
				status.DeliveredAt = &at
				status.ReadAt = &at
			case c.Presence.IsOnline(ctx, m.UserID):
				status.DeliveredAt = &at
			}
			statuses = append(statuses, status)
		}
		if err := tx.CreateStatuses(ctx, statuses); err != nil {
			return err
		}

		if err := tx.SetLastMessage(ctx, convID, msg.ID, now); err != nil {
			return err
		}
		return tx.IncrementUnreadExcept(ctx, convID, senderID)
	})
	if txErr != nil {
		return nil, txErr
	}

	profiles, err := c.profilesByID(ctx, []string{senderID})
	if err != nil {
		return nil, err
	}
	view := messageView(msg, statuses, profiles, senderID)

	conversation, err := c.fullConversation(ctx, c.Repo, convID, senderID)
	if err != nil {
		return nil, err
	}

	return &chat_dto.SendResult{
		Message:           &view,
		Conversation:      conversation,
		IsNewConversation: isNew,
	}, nil
}

// resolveDirectChat implements the "first message creates the chat" flow on
// a tx-bound repo. Returns the conversation id and whether it was created.
func (c *ChatService) resolveDirectChat(ctx context.Context, tx chat_repo.ChatRepoContract, senderID string, ev chat_dto.SendMessageEvent) (uuid.UUID, bool, *app_error.AppError) {
	if ev.Type != entity.ConversationDirect || len(ev.Members) == 0 {
		return uuid.Nil, false, app_error.NewValidationError("New direct chats require type and members.", "members")
	}
	allMemberIDs := dedupeMemberIDs(senderID, ev.Members)
	if len(allMemberIDs) != 2 {
		return uuid.Nil, false, app_error.NewValidationError("Direct conversations must have exactly two members.", "members")
	}

	existing, err := tx.FindDirectConversation(ctx, allMemberIDs[0], allMemberIDs[1])
	if err == nil {
		return existing.ID, false, nil
	}
	if err.Code != http.StatusNotFound {
		return uuid.Nil, false, err
	}

	conv := &entity.Conversation{
		Type:            entity.ConversationDirect,
		CreatedBy:       senderID,
		JoinPolicy:      entity.JoinPolicyAdminApproval,
		MessagingPolicy: entity.MessagingPolicyAllMembers,
	}
	if err := tx.CreateConversation(ctx, conv); err != nil {
		return uuid.Nil, false, err
	}
	members := make([]entity.Member, 0, 2)
	for _, userID := range allMemberIDs {
		role := entity.RoleMember
		if userID == senderID {
			role = entity.RoleAdmin
		}
		members = append(members, entity.Member{ConversationID: conv.ID, UserID: userID, Role: role})
	}
	if err := tx.CreateMembers(ctx, members); err != nil {
		return uuid.Nil, false, err
	}
	return conv.ID, true, nil
}

// GetMessagesForConversation pages newest-first; the cursor is a message id
// and the page is fetched with one extra row to derive hasMore.
func (c *ChatService) GetMessagesForConversation(ctx context.Context, conversationID uuid.UUID, userID string, limit int, cursor *int64) (*chat_dto.MessagePage, *app_error.AppError) {
	if _, err := requireMembership(ctx, c.Repo, conversationID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}

	messages, err := c.Repo.ListMessages(ctx, conversationID, limit+1, cursor)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	var nextCursor *int64
	if hasMore {
		last := messages[len(messages)-1].ID
		nextCursor = &last
	}

	page := &chat_dto.MessagePage{
		Messages:   []chat_dto.MessageView{},
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}
	if len(messages) == 0 {
		return page, nil
	}

	ids := make([]int64, 0, len(messages))
	senderIDs := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
		if m.SenderID != nil {
			senderIDs = append(senderIDs, *m.SenderID)
		}
	}
	statuses, err := c.Repo.StatusesForMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	byMessage := make(map[int64][]entity.MessageStatus)
	for _, s := range statuses {
		byMessage[s.MessageID] = append(byMessage[s.MessageID], s)
	}
	profiles, err := c.profilesByID(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	for i := range messages {
		page.Messages = append(page.Messages, messageView(&messages[i], byMessage[messages[i].ID], profiles, userID))
	}
	return page, nil
}

// MarkMessagesAsRead zeroes the caller's unread counter and advances every
// unread status row to read, returning what changed so the affected senders
// can be notified.
func (c *ChatService) MarkMessagesAsRead(ctx context.Context, conversationID uuid.UUID, userID string) (*ReadResult, *app_error.AppError) {
	var affected []entity.Message

	txErr := c.Repo.Transaction(ctx, func(tx chat_repo.ChatRepoContract) *app_error.AppError {
		if _, err := requireMembership(ctx, tx, conversationID, userID); err != nil {
			return err
		}
		if err := tx.ResetUnread(ctx, conversationID, userID); err != nil {
			return err
		}
		var err *app_error.AppError
		affected, err = tx.MarkConversationRead(ctx, conversationID, userID, time.Now())
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	result := &ReadResult{ConversationID: conversationID.String()}
	seen := make(map[string]struct{})
	for _, m := range affected {
		result.MessageIDs = append(result.MessageIDs, m.ID)
		if m.SenderID == nil || *m.SenderID == userID {
			continue
		}
		if _, ok := seen[*m.SenderID]; !ok {
			seen[*m.SenderID] = struct{}{}
			result.SenderIDs = append(result.SenderIDs, *m.SenderID)
		}
	}

	conversation, err := c.fullConversation(ctx, c.Repo, conversationID, userID)
	if err != nil {
		return nil, err
	}
	result.Conversation = conversation
	return result, nil
}

// SearchMessagesForUser is a case-insensitive substring search over the
// bodies of user messages in the caller's conversations.
func (c *ChatService) SearchMessagesForUser(ctx context.Context, userID string, req chat_dto.SearchMessagesRequest) (*chat_dto.SearchResult, *app_error.AppError) {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	memberships, err := c.Repo.MembershipsForUser(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	result := &chat_dto.SearchResult{
		Messages: []chat_dto.MessageView{},
		Limit:    limit,
		Offset:   req.Offset,
	}
	if len(memberships) == 0 {
		return result, nil
	}

	convIDs := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		convIDs = append(convIDs, m.ConversationID)
	}

	messages, total, err := c.Repo.SearchMessages(ctx, convIDs, req.Query, limit, req.Offset)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(messages))
	senderIDs := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
		if m.SenderID != nil {
			senderIDs = append(senderIDs, *m.SenderID)
		}
	}
	statuses, err := c.Repo.StatusesForMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	byMessage := make(map[int64][]entity.MessageStatus)
	for _, s := range statuses {
		byMessage[s.MessageID] = append(byMessage[s.MessageID], s)
	}
	profiles, err := c.profilesByID(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	for i := range messages {
		result.Messages = append(result.Messages, messageView(&messages[i], byMessage[messages[i].ID], profiles, userID))
	}
	result.Total = total
	result.HasMore = int64(req.Offset+len(messages)) < total
	return result, nil
}
