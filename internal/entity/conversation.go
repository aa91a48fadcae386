package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
)

const (
	JoinPolicyAdminApproval = "admin_approval"
	JoinPolicyOpen          = "open"
)

const (
	MessagingPolicyAllMembers = "all_members"
	MessagingPolicyAdminsOnly = "admins_only"
)

// Conversation is a direct (two-person) or group chat. LastMessageID and
// LastMessageAt are denormalized and only ever written inside the same
// transaction as the message write that invalidates them.
type Conversation struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type            string    `gorm:"not null"`
	Title           *string
	PhotoURL        *string    `gorm:"column:photo_url"`
	JoinPolicy      string     `gorm:"not null;default:admin_approval"`
	MessagingPolicy string     `gorm:"not null;default:all_members"`
	CreatedBy       string     `gorm:"not null"`
	LastMessageID   *int64     `gorm:"column:last_message_id"`
	LastMessageAt   *time.Time `gorm:"column:last_message_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime"`
}

func (Conversation) TableName() string { return "conversations" }
