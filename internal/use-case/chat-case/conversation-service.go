package chat_service

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/iamKIVOUS/CampusConnect/internal/dtos/chat_dto"
	"github.com/iamKIVOUS/CampusConnect/internal/entity"
	app_error "github.com/iamKIVOUS/CampusConnect/internal/errors"
	chat_repo "github.com/iamKIVOUS/CampusConnect/internal/repo/chat"
)

// dedupeMemberIDs collapses duplicates and guarantees the creator is part of
// the final member set.
func dedupeMemberIDs(creatorID string, memberIDs []string) []string {
	seen := map[string]struct{}{creatorID: {}}
	all := []string{creatorID}
	for _, id := range memberIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		all = append(all, id)
	}
	return all
}

// CreateConversation creates a group, or resolves-or-creates a direct chat.
// Direct chats are deduplicated by member-set equality; the lookup is
// best-effort, concurrent creates for the same pair can still both succeed.
func (c *ChatService) CreateConversation(ctx context.Context, creatorID string, req chat_dto.CreateConversationRequest) (*chat_dto.ConversationView, *app_error.AppError) {
	allMemberIDs := dedupeMemberIDs(creatorID, req.MemberIDs)

	if req.Type == entity.ConversationDirect && len(allMemberIDs) != 2 {
		return nil, app_error.NewValidationError("Direct conversations must have exactly two members.", "member_ids")
	}
	if req.Type == entity.ConversationGroup && req.Title == "" {
		return nil, app_error.NewValidationError("Group conversations must have a title.", "title")
	}

	var convID uuid.UUID
	txErr := c.Repo.Transaction(ctx, func(tx chat_repo.ChatRepoContract) *app_error.AppError {
		if req.Type == entity.ConversationDirect {
			existing, err := tx.FindDirectConversation(ctx, allMemberIDs[0], allMemberIDs[1])
			if err == nil {
				convID = existing.ID
				return nil
			}
			if err.Code != http.StatusNotFound {
				return err
			}
		}

		conv := &entity.Conversation{
			Type:            req.Type,
			CreatedBy:       creatorID,
			JoinPolicy:      entity.JoinPolicyAdminApproval,
			MessagingPolicy: entity.MessagingPolicyAllMembers,
		}
		if req.Title != "" {
			title := req.Title
			conv.Title = &title
		}
		if req.JoinPolicy != "" {
			conv.JoinPolicy = req.JoinPolicy
		}
		if err := tx.CreateConversation(ctx, conv); err != nil {
			return err
		}

		members := make([]entity.Member, 0, len(allMemberIDs))
		for _, userID := range allMemberIDs {
			role := entity.RoleMember
			if userID == creatorID {
				role = entity.RoleAdmin
			}
			members = append(members, entity.Member{
				ConversationID: conv.ID,
				UserID:         userID,
				Role:           role,
			})
		}
		if err := tx.CreateMembers(ctx, members); err != nil {
			return err
		}

		if req.Type == entity.ConversationGroup {
			creatorName := c.displayName(ctx, creatorID)
			body := fmt.Sprintf("%s created the group %q.", creatorName, req.Title)
			if _, err := createSystemMessage(ctx, tx, conv.ID, body); err != nil {
				return err
			}
		}

		convID = conv.ID
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return c.fullConversation(ctx, c.Repo, convID, creatorID)
}

func (c *ChatService) GetFullConversation(ctx context.Context, conversationID uuid.UUID, viewerID string) (*chat_dto.ConversationView, *app_error.AppError) {
	return c.fullConversation(ctx, c.Repo, conversationID, viewerID)
}

// GetUserConversations returns the caller's non-archived conversations,
// newest activity first.
func (c *ChatService) GetUserConversations(ctx context.Context, userID string) ([]chat_dto.ConversationView, *app_error.AppError) {
	memberships, err := c.Repo.MembershipsForUser(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	views := make([]chat_dto.ConversationView, 0, len(memberships))
	for _, m := range memberships {
		view, err := c.fullConversation(ctx, c.Repo, m.ConversationID, userID)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}

	// lastMessageAt descending; conversations that never had a message sink
	// to the end.
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i].LastMessageAt, views[j].LastMessageAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return views, nil
}

// SetConversationArchived toggles the caller's own archive flag only; other
// members are unaffected.
func (c *ChatService) SetConversationArchived(ctx context.Context, conversationID uuid.UUID, userID string, archived bool) *app_error.AppError {
	if _, err := requireMembership(ctx, c.Repo, conversationID, userID); err != nil {
		return err
	}
	return c.Repo.SetMemberArchived(ctx, conversationID, userID, archived)
}

// DeleteEmptyConversation removes a conversation and its memberships, but
// only while it has no messages at all.
func (c *ChatService) DeleteEmptyConversation(ctx context.Context, conversationID uuid.UUID, userID string) *app_error.AppError {
	return c.Repo.Transaction(ctx, func(tx chat_repo.ChatRepoContract) *app_error.AppError {
		if _, err := requireMembership(ctx, tx, conversationID, userID); err != nil {
			return err
		}
		count, err := tx.CountMessages(ctx, conversationID)
		if err != nil {
			return err
		}
		if count > 0 {
			return app_error.NewConflictError("Cannot delete a conversation with messages.", "conversation")
		}
		if err := tx.DeleteMembers(ctx, conversationID); err != nil {
			return err
		}
		return tx.DeleteConversation(ctx, conversationID)
	})
}
