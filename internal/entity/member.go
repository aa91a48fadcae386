package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Member is one user's participation record in a conversation. UnreadCount is
// server-authoritative; IsArchived hides the conversation for this user only.
type Member struct {
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         string    `gorm:"primaryKey"`
	Role           string    `gorm:"not null;default:member"`
	UnreadCount    int       `gorm:"not null;default:0"`
	IsArchived     bool      `gorm:"not null;default:false"`
	JoinedAt       time.Time `gorm:"autoCreateTime"`
}

func (Member) TableName() string { return "conversation_members" }
