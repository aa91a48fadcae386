package chat_service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/iamKIVOUS/CampusConnect/internal/dtos/chat_dto"
	"github.com/iamKIVOUS/CampusConnect/internal/entity"
	app_error "github.com/iamKIVOUS/CampusConnect/internal/errors"
	chat_repo "github.com/iamKIVOUS/CampusConnect/internal/repo/chat"
)

// AddMembersToGroup inserts the given users as plain members. Ids that are
// already members are filtered out first; if nothing is left the call fails
// with a conflict and no rows change.
func (c *ChatService) AddMembersToGroup(ctx context.Context, conversationID uuid.UUID, actorID string, newMemberIDs []string) (*chat_dto.GroupChangeResult, *app_error.AppError) {
	var sysMsgs []*entity.Message
	txErr := c.Repo.Transaction(ctx, func(tx chat_repo.ChatRepoContract) *app_error.AppError {
		if _, err := requireAdmin(ctx, tx, conversationID, actorID); err != nil {
			return err
		}

		existing, err := tx.ExistingMemberIDs(ctx, conversationID, newMemberIDs)
		if err != nil {
			return err
		}
		existingSet := make(map[string]struct{}, len(existing))
		for _, id := range existing {
			existingSet[id] = struct{}{}
		}

		var toAdd []string
		for _, id := range newMemberIDs {
			if _, ok := existingSet[id]; !ok {
				toAdd = append(toAdd, id)
				existingSet[id] = struct{}{}
			}
		}
		if len(toAdd) == 0 {
			return app_error.NewConflictError("All users are already members.", "member_ids")
		}

		members := make([]entity.Member, 0, len(toAdd))
		for _, id := range toAdd {
			members = append(members, entity.Member{
				ConversationID: conversationID,
				UserID:         id,
				Role:           entity.RoleMember,
			})
		}
		if err := tx.CreateMembers(ctx, members); err != nil {
			return err
		}

		actorName := c.displayName(ctx, actorID)
		names := make([]string, 0, len(toAdd))
		for _, id := range toAdd {
			names = append(names, c.displayName(ctx, id))
		}
		body := fmt.Sprintf("%s added %s to the group.", actorName, strings.Join(names, ", "))
		sysMsg, sysErr := createSystemMessage(ctx, tx, conversationID, body)
		if sysErr != nil {
			return sysErr
		}
		sysMsgs = append(sysMsgs, sysMsg)
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	view, err := c.fullConversation(ctx, c.Repo, conversationID, actorID)
	if err != nil {
		return nil, err
	}
	return &chat_dto.GroupChangeResult{Conversation: view, SystemMessages: systemMessageViews(sysMsgs)}, nil
}

// RemoveMemberFromGroup rejects self-removal; admins who want out must go
// through LeaveGroup so admin succession can run.
func (c *ChatService) RemoveMemberFromGroup(ctx context.Context, conversationID uuid.UUID, actorID, targetID string) (*chat_dto.GroupChangeResult, *app_error.AppError) {
	if actorID == targetID {
		return nil, app_error.NewValidationError(`Admins cannot remove themselves. Use "Leave Group" instead.`, "user_id")
	}

	var sysMsgs []*entity.Message
	txErr := c.Repo.Transaction(ctx, func(tx chat_repo.ChatRepoContract) *app_error.AppError {
		if _, err := requireAdmin(ctx, tx, conversationID, actorID); err != nil {
			return err
		}
		if _, err := requireMembership(ctx, tx, conversationID, targetID); err != nil {
			return err
		}
		if err := tx.DeleteMember(ctx, conversationID, targetID); err != nil {
			return err
		}

		body := fmt.Sprintf("%s removed %s from the group.", c.displayName(ctx, actorID), c.displayName(ctx, targetID))
		sysMsg, sysErr := createSystemMessage(ctx, tx, conversationID, body)
		if sysErr != nil {
			return sysErr
		}
		sysMsgs = append(sysMsgs, sysMsg)
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	view, err := c.fullConversation(ctx, c.Repo, conversationID, actorID)
	if err != nil {
		return nil, err
	}
	return &chat_dto.GroupChangeResult{Conversation: view, SystemMessages: systemMessageViews(sysMsgs)}, nil
}

func (c *ChatService) UpdateUserRoleInGroup(ctx context.Context, conversationID uuid.UUID, actorID, targetID, newRole string) (*chat_dto.GroupChangeResult, *app_error.AppError) {
	if actorID == targetID {
		return nil, app_error.NewValidationError("Admins cannot change their own role.", "user_id")
	}
	if newRole != entity.RoleAdmin && newRole != entity.RoleMember {
		return nil, app_error.NewValidationError("Unknown role.", "role")
	}

	var sysMsgs []*entity.Message
	txErr := c.Repo.Transaction(ctx, func(tx chat_repo.ChatRepoContract) *app_error.AppError {
		if _, err := requireAdmin(ctx, tx, conversationID, actorID); err != nil {
			return err
		}
		if _, err := requireMembership(ctx, tx, conversationID, targetID); err != nil {
			return err
		}
		if err := tx.UpdateMemberRole(ctx, conversationID, targetID, newRole); err != nil {
			return err
		}

		actorName := c.displayName(ctx, actorID)
		targetName := c.displayName(ctx, targetID)
		action := fmt.Sprintf("promoted %s to admin", targetName)
		if newRole == entity.RoleMember {
			action = fmt.Sprintf("demoted %s to member", targetName)
		}
		sysMsg, sysErr := createSystemMessage(ctx, tx, conversationID, fmt.Sprintf("%s %s.", actorName, action))
		if sysErr != nil {
			return sysErr
		}
		sysMsgs = append(sysMsgs, sysMsg)
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	view, err := c.fullConversation(ctx, c.Repo, conversationID, actorID)
	if err != nil {
		return nil, err
	}
	return &chat_dto.GroupChangeResult{Conversation: view, SystemMessages: systemMessageViews(sysMsgs)}, nil
}

// LeaveGroup removes the caller's membership. When the caller is the sole
// admin and other members remain, the earliest-joined remaining member is
// promoted first, inside the same transaction, so a non-empty conversation
// never ends up without an admin. The recorded system messages are returned
// for the caller to broadcast to the remaining members.
func (c *ChatService) LeaveGroup(ctx context.Context, conversationID uuid.UUID, userID string) ([]chat_dto.MessageView, *app_error.AppError) {
	var sysMsgs []*entity.Message
	txErr := c.Repo.Transaction(ctx, func(tx chat_repo.ChatRepoContract) *app_error.AppError {
		if _, err := requireMembership(ctx, tx, conversationID, userID); err != nil {
			return err
		}

		leaverName := c.displayName(ctx, userID)

		admins, err := tx.FindAdmins(ctx, conversationID)
		if err != nil {
			return err
		}
		soleAdmin := len(admins) == 1 && admins[0].UserID == userID

		promoted := false
		if soleAdmin {
			successor, err := tx.EarliestJoinedMemberExcept(ctx, conversationID, userID)
			if err == nil {
				if err := tx.UpdateMemberRole(ctx, conversationID, successor.UserID, entity.RoleAdmin); err != nil {
					return err
				}
				body := fmt.Sprintf("%s left the group. %s is now an admin.", leaverName, c.displayName(ctx, successor.UserID))
				sysMsg, sysErr := createSystemMessage(ctx, tx, conversationID, body)
				if sysErr != nil {
					return sysErr
				}
				sysMsgs = append(sysMsgs, sysMsg)
				promoted = true
			} else if err.Code != http.StatusNotFound {
				return err
			}
		}
		if !promoted {
			body := fmt.Sprintf("%s has left the group.", leaverName)
			sysMsg, sysErr := createSystemMessage(ctx, tx, conversationID, body)
			if sysErr != nil {
				return sysErr
			}
			sysMsgs = append(sysMsgs, sysMsg)
		}

		return tx.DeleteMember(ctx, conversationID, userID)
	})
	if txErr != nil {
		return nil, txErr
	}
	return systemMessageViews(sysMsgs), nil
}

// UpdateGroupDetails applies a partial update of title, photo and policies.
// A title change is recorded as a rename system message.
func (c *ChatService) UpdateGroupDetails(ctx context.Context, conversationID uuid.UUID, actorID string, req chat_dto.UpdateGroupDetailsRequest) (*chat_dto.GroupChangeResult, *app_error.AppError) {
	var sysMsgs []*entity.Message
	txErr := c.Repo.Transaction(ctx, func(tx chat_repo.ChatRepoContract) *app_error.AppError {
		if _, err := requireAdmin(ctx, tx, conversationID, actorID); err != nil {
			return err
		}
		conv, err := tx.FindConversation(ctx, conversationID)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		renamed := false
		if req.Title != nil {
			if conv.Title == nil || *conv.Title != *req.Title {
				renamed = true
			}
			updates["title"] = *req.Title
		}
		if req.PhotoURL != nil {
			updates["photo_url"] = *req.PhotoURL
		}
		if req.JoinPolicy != nil {
			updates["join_policy"] = *req.JoinPolicy
		}
		if req.MessagingPolicy != nil {
			updates["messaging_policy"] = *req.MessagingPolicy
		}
		if len(updates) == 0 {
			return app_error.NewValidationError("Nothing to update.", "body")
		}
		if err := tx.UpdateConversation(ctx, conversationID, updates); err != nil {
			return err
		}

		if renamed {
			body := fmt.Sprintf("%s changed the group name to %q.", c.displayName(ctx, actorID), *req.Title)
			sysMsg, sysErr := createSystemMessage(ctx, tx, conversationID, body)
			if sysErr != nil {
				return sysErr
			}
			sysMsgs = append(sysMsgs, sysMsg)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	view, err := c.fullConversation(ctx, c.Repo, conversationID, actorID)
	if err != nil {
		return nil, err
	}
	return &chat_dto.GroupChangeResult{Conversation: view, SystemMessages: systemMessageViews(sysMsgs)}, nil
}
