package chat_service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iamKIVOUS/CampusConnect/internal/entity"
	chat_repo "github.com/iamKIVOUS/CampusConnect/internal/repo/chat"
	user_repo "github.com/iamKIVOUS/CampusConnect/internal/repo/user"
)

var testDBSeq atomic.Int64

// stubPresence lets tests flip users online and offline without a hub.
type stubPresence struct {
	online map[string]bool
}

func (s *stubPresence) IsOnline(_ context.Context, userID string) bool {
	return s.online[userID]
}

func newTestService(t *testing.T) (*ChatService, *stubPresence) {
	t.Helper()

	// A plain :memory: DSN gives every pooled connection its own empty
	// database; a named shared-cache database keeps all connections on the
	// same schema while still isolating tests from each other.
	dsn := fmt.Sprintf("file:chatsvc%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "in-memory database should open")
	require.NoError(t, db.AutoMigrate(
		&entity.Conversation{},
		&entity.Member{},
		&entity.Message{},
		&entity.MessageStatus{},
		&entity.User{},
	), "schema migration should succeed")

	users := []entity.User{
		{ID: "u1", Name: "Alice"},
		{ID: "u2", Name: "Bob"},
		{ID: "u3", Name: "Carol"},
		{ID: "u4", Name: "Dave"},
	}
	require.NoError(t, db.Create(&users).Error, "user seed should succeed")

	presence := &stubPresence{online: map[string]bool{}}
	svc := &ChatService{
		Repo:     chat_repo.NewChatRepo(db),
		Users:    user_repo.NewUserRepo(db),
		Presence: presence,
	}
	return svc, presence
}

func strPtr(s string) *string { return &s }

func TestOverallMessageStatus(t *testing.T) {
	sender := "u1"
	now := time.Now()
	msg := &entity.Message{SenderID: &sender}

	t.Run("non-sender always sees sent", func(t *testing.T) {
		status := overallMessageStatus(msg, []entity.MessageStatus{
			{UserID: "u2", DeliveredAt: &now, ReadAt: &now},
		}, "u2")
		require.Equal(t, "sent", status)
	})

	t.Run("no recipient rows means sent", func(t *testing.T) {
		status := overallMessageStatus(msg, []entity.MessageStatus{
			{UserID: "u1", DeliveredAt: &now, ReadAt: &now},
		}, "u1")
		require.Equal(t, "sent", status)
	})

	t.Run("one undelivered recipient keeps it at sent", func(t *testing.T) {
		status := overallMessageStatus(msg, []entity.MessageStatus{
			{UserID: "u1", DeliveredAt: &now, ReadAt: &now},
			{UserID: "u2", DeliveredAt: &now},
			{UserID: "u3"},
		}, "u1")
		require.Equal(t, "sent", status)
	})

	t.Run("all recipients delivered", func(t *testing.T) {
		status := overallMessageStatus(msg, []entity.MessageStatus{
			{UserID: "u1", DeliveredAt: &now, ReadAt: &now},
			{UserID: "u2", DeliveredAt: &now},
			{UserID: "u3", DeliveredAt: &now},
		}, "u1")
		require.Equal(t, "delivered", status)
	})

	t.Run("any read wins", func(t *testing.T) {
		status := overallMessageStatus(msg, []entity.MessageStatus{
			{UserID: "u1", DeliveredAt: &now, ReadAt: &now},
			{UserID: "u2", DeliveredAt: &now, ReadAt: &now},
			{UserID: "u3"},
		}, "u1")
		require.Equal(t, "read", status)
	})

	t.Run("system message has no aggregate", func(t *testing.T) {
		system := &entity.Message{SenderID: nil, Type: entity.MessageTypeSystem}
		require.Equal(t, "sent", overallMessageStatus(system, nil, "u1"))
	})
}

func TestConversationMemberIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	view := createGroup(t, svc, "u1", "Study Group", "u2", "u3")

	ids, err := svc.ConversationMemberIDs(ctx, mustUUID(t, view.ID))
	require.Nil(t, err)
	require.ElementsMatch(t, []string{"u1", "u2", "u3"}, ids)
}
