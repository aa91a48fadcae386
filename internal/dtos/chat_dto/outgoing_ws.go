package chat_dto

// Server -> client event names.
const (
	EventAck                 = "ack"
	EventMessageReceive      = "message_receive"
	EventConversationUpdate  = "conversation_update"
	EventMessageStatusUpdate = "message_status_update"
)

type WSOutgoingEvent struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type WSAck struct {
	AckID   string       `json:"ack_id"`
	Success bool         `json:"success"`
	Error   string       `json:"error,omitempty"`
	Message *MessageView `json:"message,omitempty"`
}

type StatusUpdatePayload struct {
	ConversationID string  `json:"conversation_id"`
	MessageIDs     []int64 `json:"message_ids"`
	Status         string  `json:"status"`
}

type TypingPayload struct {
	ConversationID string      `json:"conversation_id"`
	User           UserProfile `json:"user"`
}
