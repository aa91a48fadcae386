package chat_dto

import "encoding/json"

// Client -> server event names.
const (
	EventJoinConversation = "join_conversation"
	EventMessageSend      = "message_send"
	EventMessagesRead     = "messages_read"
	EventTypingStart      = "typing_start"
	EventTypingStop       = "typing_stop"
)

// NewDirectChat is the sentinel conversation ref a client sends when the
// first message should create the direct chat.
const NewDirectChat = "new_direct_chat"

type WSIncomingEvent struct {
	Type  string          `json:"type"`
	AckID string          `json:"ack_id,omitempty"`
	Data  json.RawMessage `json:"data"`
}

type JoinConversationEvent struct {
	ConversationID string `json:"conversation_id" validate:"required,uuid"`
}

type SendMessageEvent struct {
	ConversationID string   `json:"conversation_id" validate:"required"`
	Body           string   `json:"body" validate:"required,min=1,max=2000"`
	ClientMsgID    string   `json:"client_msg_id" validate:"required"`
	Members        []string `json:"members,omitempty"`
	Type           string   `json:"type,omitempty" validate:"omitempty,oneof=direct"`
}

type MessagesReadEvent struct {
	ConversationID string `json:"conversation_id" validate:"required,uuid"`
}

type TypingEvent struct {
	ConversationID string `json:"conversation_id" validate:"required,uuid"`
}
