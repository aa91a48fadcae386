package chat_dto

import "time"

const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

type UserProfile struct {
	EnrollmentNumber string  `json:"enrollment_number"`
	Name             string  `json:"name"`
	PhotoURL         *string `json:"photo_url"`
}

type MemberView struct {
	UserProfile
	Role string `json:"role"`
}

type StatusView struct {
	UserID      string     `json:"user_id"`
	DeliveredAt *time.Time `json:"delivered_at"`
	ReadAt      *time.Time `json:"read_at"`
}

type MessageView struct {
	ID             int64        `json:"id"`
	ConversationID string       `json:"conversation_id"`
	Sender         *UserProfile `json:"sender"` // nil for system messages
	ClientMsgID    *string      `json:"client_msg_id,omitempty"`
	Body           string       `json:"body"`
	AttachmentURL  *string      `json:"attachment_url,omitempty"`
	AttachmentType *string      `json:"attachment_type,omitempty"`
	Type           string       `json:"type"`
	Deleted        bool         `json:"deleted"`
	Status         string       `json:"status"` // viewer-relative, sender only
	Statuses       []StatusView `json:"statuses,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	EditedAt       *time.Time   `json:"edited_at,omitempty"`
}

// ConversationView is the viewer-relative projection: UnreadCount, IsArchived
// and LastMessage.Status depend on who is asking, so it is never shared
// between members.
type ConversationView struct {
	ID              string       `json:"id"`
	Type            string       `json:"type"`
	Title           *string      `json:"title"`
	PhotoURL        *string      `json:"photo_url"`
	JoinPolicy      string       `json:"join_policy"`
	MessagingPolicy string       `json:"messaging_policy"`
	CreatedBy       string       `json:"created_by"`
	Members         []MemberView `json:"members"`
	LastMessage     *MessageView `json:"last_message"`
	LastMessageAt   *time.Time   `json:"last_message_at"`
	UnreadCount     int          `json:"unread_count"`
	IsArchived      bool         `json:"is_archived"`
	CreatedAt       time.Time    `json:"created_at"`
}

type MessagePage struct {
	Messages   []MessageView `json:"messages"`
	NextCursor *int64        `json:"next_cursor"`
	HasMore    bool          `json:"has_more"`
}

type SearchResult struct {
	Messages []MessageView `json:"messages"`
	Total    int64         `json:"total"`
	Limit    int           `json:"limit"`
	Offset   int           `json:"offset"`
	HasMore  bool          `json:"has_more"`
}

// GroupChangeResult pairs the actor's projection with the lifecycle system
// messages the operation recorded, so the caller can fan them out through
// the same path as user messages after commit.
type GroupChangeResult struct {
	Conversation   *ConversationView `json:"conversation"`
	SystemMessages []MessageView     `json:"system_messages,omitempty"`
}

// SendResult is what the message pipeline hands back after commit so the
// caller can fan it out through the broadcast layer.
type SendResult struct {
	Message           *MessageView      `json:"message"`
	Conversation      *ConversationView `json:"conversation"`
	IsNewConversation bool              `json:"is_new_conversation"`
}
