package chat_service

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamKIVOUS/CampusConnect/internal/dtos/chat_dto"
	"github.com/iamKIVOUS/CampusConnect/internal/entity"
)

func TestSendMessage_StatusFanOut(t *testing.T) {
	svc, presence := newTestService(t)
	ctx := context.Background()

	group := createGroup(t, svc, "u1", "Study Group", "u2", "u3")
	presence.online["u2"] = true
	// u3 stays offline.

	result, err := svc.SendMessage(ctx, "u1", chat_dto.SendMessageEvent{
		ConversationID: group.ID,
		Body:           "hello everyone",
		ClientMsgID:    "c1",
	})
	require.Nil(t, err)
	require.NotNil(t, result.Message)
	assert.False(t, result.IsNewConversation)

	// One status row per member; sender read, online member delivered,
	// offline member neither.
	require.Len(t, result.Message.Statuses, 3)
	byUser := map[string]chat_dto.StatusView{}
	for _, s := range result.Message.Statuses {
		byUser[s.UserID] = s
	}
	require.NotNil(t, byUser["u1"].ReadAt, "sender starts at read")
	require.NotNil(t, byUser["u1"].DeliveredAt)
	require.NotNil(t, byUser["u2"].DeliveredAt, "online member starts at delivered")
	assert.Nil(t, byUser["u2"].ReadAt)
	assert.Nil(t, byUser["u3"].DeliveredAt, "offline member starts at sent")
	assert.Nil(t, byUser["u3"].ReadAt)

	// Sender's aggregate: u3 not delivered yet, so still sent.
	assert.Equal(t, chat_dto.StatusSent, result.Message.Status)

	// Denormalized summary: unread bumped for everyone but the sender,
	// last-message pointers advanced.
	assert.Equal(t, 0, result.Conversation.UnreadCount, "sender's own unread stays zero")
	view, appErr := svc.GetFullConversation(ctx, mustUUID(t, group.ID), "u2")
	require.Nil(t, appErr)
	assert.Equal(t, 1, view.UnreadCount)
	require.NotNil(t, view.LastMessage)
	assert.Equal(t, result.Message.ID, view.LastMessage.ID)
}

func TestSendMessage_NewDirectChat(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.SendMessage(ctx, "u1", chat_dto.SendMessageEvent{
		ConversationID: chat_dto.NewDirectChat,
		Type:           entity.ConversationDirect,
		Members:        []string{"u2"},
		Body:           "first contact",
		ClientMsgID:    "c1",
	})
	require.Nil(t, err)
	assert.True(t, result.IsNewConversation)
	require.Len(t, result.Conversation.Members, 2)

	// The second first-message resolves to the same conversation.
	again, err := svc.SendMessage(ctx, "u2", chat_dto.SendMessageEvent{
		ConversationID: chat_dto.NewDirectChat,
		Type:           entity.ConversationDirect,
		Members:        []string{"u1"},
		Body:           "back at you",
		ClientMsgID:    "c2",
	})
	require.Nil(t, err)
	assert.False(t, again.IsNewConversation)
	assert.Equal(t, result.Conversation.ID, again.Conversation.ID)
}

func TestSendMessage_NewDirectChatValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Missing type and members.
	_, err := svc.SendMessage(ctx, "u1", chat_dto.SendMessageEvent{
		ConversationID: chat_dto.NewDirectChat,
		Body:           "hello",
		ClientMsgID:    "c1",
	})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.Code)

	// Three distinct people is not a direct chat.
	_, err = svc.SendMessage(ctx, "u1", chat_dto.SendMessageEvent{
		ConversationID: chat_dto.NewDirectChat,
		Type:           entity.ConversationDirect,
		Members:        []string{"u2", "u3"},
		Body:           "hello",
		ClientMsgID:    "c2",
	})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.Code)
}

func TestSendMessage_NonMemberForbidden(t *testing.T) {
	svc, _ := newTestService(t)

	group := createGroup(t, svc, "u1", "Study Group", "u2")

	_, err := svc.SendMessage(context.Background(), "u4", chat_dto.SendMessageEvent{
		ConversationID: group.ID,
		Body:           "let me in",
		ClientMsgID:    "c1",
	})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusForbidden, err.Code)
}

func TestSendMessage_AdminsOnlyPolicy(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	group := createGroup(t, svc, "u1", "Announcements", "u2")
	convID := mustUUID(t, group.ID)

	_, err := svc.UpdateGroupDetails(ctx, convID, "u1", chat_dto.UpdateGroupDetailsRequest{
		MessagingPolicy: strPtr(entity.MessagingPolicyAdminsOnly),
	})
	require.Nil(t, err)

	_, sendErr := svc.SendMessage(ctx, "u2", chat_dto.SendMessageEvent{
		ConversationID: group.ID,
		Body:           "can I post?",
		ClientMsgID:    "c1",
	})
	require.NotNil(t, sendErr)
	assert.Equal(t, http.StatusForbidden, sendErr.Code)

	_, adminErr := svc.SendMessage(ctx, "u1", chat_dto.SendMessageEvent{
		ConversationID: group.ID,
		Body:           "admins still can",
		ClientMsgID:    "c2",
	})
	require.Nil(t, adminErr)
}

func TestMarkMessagesAsRead(t *testing.T) {
	svc, presence := newTestService(t)
	ctx := context.Background()

	group := createGroup(t, svc, "u1", "Study Group", "u2", "u3")
	convID := mustUUID(t, group.ID)
	presence.online["u2"] = true

	for i := 0; i < 3; i++ {
		_, err := svc.SendMessage(ctx, "u1", chat_dto.SendMessageEvent{
			ConversationID: group.ID,
			Body:           fmt.Sprintf("message %d", i),
			ClientMsgID:    fmt.Sprintf("c%d", i),
		})
		require.Nil(t, err)
	}

	result, err := svc.MarkMessagesAsRead(ctx, convID, "u2")
	require.Nil(t, err)

	assert.Len(t, result.MessageIDs, 3, "all unread user messages flip")
	assert.Equal(t, []string{"u1"}, result.SenderIDs)
	require.NotNil(t, result.Conversation)
	assert.Equal(t, 0, result.Conversation.UnreadCount, "reader's unread resets")

	// Read implies delivered, even for the member who was never online.
	offline, err := svc.MarkMessagesAsRead(ctx, convID, "u3")
	require.Nil(t, err)
	require.Len(t, offline.MessageIDs, 3)

	page, err := svc.GetMessagesForConversation(ctx, convID, "u1", 10, nil)
	require.Nil(t, err)
	for _, msg := range page.Messages {
		if msg.Type != entity.MessageTypeUser {
			continue
		}
		for _, s := range msg.Statuses {
			require.NotNil(t, s.DeliveredAt, "read rows must carry delivered_at")
			require.NotNil(t, s.ReadAt)
		}
		assert.Equal(t, chat_dto.StatusRead, msg.Status, "sender sees read once someone read it")
	}

	// A second call is a no-op.
	repeat, err := svc.MarkMessagesAsRead(ctx, convID, "u2")
	require.Nil(t, err)
	assert.Empty(t, repeat.MessageIDs)
	assert.Empty(t, repeat.SenderIDs)
}

func TestGetMessagesForConversation_Pagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	direct := createDirect(t, svc, "u1", "u2")
	convID := mustUUID(t, direct.ID)

	for i := 0; i < 5; i++ {
		_, err := svc.SendMessage(ctx, "u1", chat_dto.SendMessageEvent{
			ConversationID: direct.ID,
			Body:           fmt.Sprintf("message %d", i),
			ClientMsgID:    fmt.Sprintf("c%d", i),
		})
		require.Nil(t, err)
	}

	page, err := svc.GetMessagesForConversation(ctx, convID, "u2", 2, nil)
	require.Nil(t, err)
	require.Len(t, page.Messages, 2)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "message 4", page.Messages[0].Body, "newest first")
	assert.Equal(t, "message 3", page.Messages[1].Body)

	page2, err := svc.GetMessagesForConversation(ctx, convID, "u2", 2, page.NextCursor)
	require.Nil(t, err)
	require.Len(t, page2.Messages, 2)
	assert.Equal(t, "message 2", page2.Messages[0].Body)
	assert.True(t, page2.HasMore)

	page3, err := svc.GetMessagesForConversation(ctx, convID, "u2", 2, page2.NextCursor)
	require.Nil(t, err)
	require.Len(t, page3.Messages, 1)
	assert.False(t, page3.HasMore)
	assert.Nil(t, page3.NextCursor)
}

func TestSearchMessagesForUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	direct := createDirect(t, svc, "u1", "u2")
	group := createGroup(t, svc, "u1", "Study Group", "u3")

	_, err := svc.SendMessage(ctx, "u1", chat_dto.SendMessageEvent{
		ConversationID: direct.ID, Body: "the Physics homework is due", ClientMsgID: "c1",
	})
	require.Nil(t, err)
	_, err = svc.SendMessage(ctx, "u1", chat_dto.SendMessageEvent{
		ConversationID: group.ID, Body: "physics notes uploaded", ClientMsgID: "c2",
	})
	require.Nil(t, err)
	_, err = svc.SendMessage(ctx, "u1", chat_dto.SendMessageEvent{
		ConversationID: group.ID, Body: "unrelated chatter", ClientMsgID: "c3",
	})
	require.Nil(t, err)

	t.Run("case-insensitive across the caller's conversations", func(t *testing.T) {
		result, err := svc.SearchMessagesForUser(ctx, "u1", chat_dto.SearchMessagesRequest{Query: "PHYSICS"})
		require.Nil(t, err)
		assert.EqualValues(t, 2, result.Total)
		require.Len(t, result.Messages, 2)
	})

	t.Run("membership scopes results", func(t *testing.T) {
		result, err := svc.SearchMessagesForUser(ctx, "u2", chat_dto.SearchMessagesRequest{Query: "physics"})
		require.Nil(t, err)
		assert.EqualValues(t, 1, result.Total, "u2 is not in the group")
	})

	t.Run("no memberships yields empty result", func(t *testing.T) {
		result, err := svc.SearchMessagesForUser(ctx, "u4", chat_dto.SearchMessagesRequest{Query: "physics"})
		require.Nil(t, err)
		assert.EqualValues(t, 0, result.Total)
		assert.Empty(t, result.Messages)
	})

	t.Run("system messages are excluded", func(t *testing.T) {
		result, err := svc.SearchMessagesForUser(ctx, "u1", chat_dto.SearchMessagesRequest{Query: "created the group"})
		require.Nil(t, err)
		assert.EqualValues(t, 0, result.Total)
	})
}
