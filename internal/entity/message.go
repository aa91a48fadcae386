package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageTypeUser   = "user"
	MessageTypeSystem = "system"
)

// Message ids are BIGINT auto-increment, so per-conversation ordering is the
// insertion order of the id. SenderID is nil for system messages.
type Message struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index"`
	SenderID       *string
	ClientMsgID    *string `gorm:"column:client_msg_id"`
	Body           string  `gorm:"type:text"`
	AttachmentURL  *string `gorm:"column:attachment_url"`
	AttachmentType *string `gorm:"column:attachment_type"`
	Type           string  `gorm:"not null;default:user"`
	Deleted        bool    `gorm:"not null;default:false"`
	CreatedAt      time.Time
	// EditedAt stays null until an edit happens; a fresh message is not
	// "edited".
	EditedAt *time.Time
}

func (Message) TableName() string { return "messages" }

// MessageStatus is the per-recipient delivery/read pair for one message. Rows
// only ever advance (nil -> deliveredAt -> readAt), never revert.
type MessageStatus struct {
	MessageID   int64  `gorm:"primaryKey"`
	UserID      string `gorm:"primaryKey"`
	DeliveredAt *time.Time
	ReadAt      *time.Time
}

func (MessageStatus) TableName() string { return "message_status" }
