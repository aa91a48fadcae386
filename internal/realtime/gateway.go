package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/iamKIVOUS/CampusConnect/internal/dtos/chat_dto"
	app_error "github.com/iamKIVOUS/CampusConnect/internal/errors"
	chat_service "github.com/iamKIVOUS/CampusConnect/internal/use-case/chat-case"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict origins once the web client's domains are settled
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Gateway owns the websocket surface: it authenticates upgrades, tracks
// connections through the hub, dispatches inbound events to the chat
// service and fans results out through the broadcaster.
type Gateway struct {
	hub         *Hub
	broadcaster *Broadcaster
	presence    *ClusterPresence
	chat        chat_service.ChatServiceContract
	auth        AuthenticatorFunc
	validate    *validator.Validate
}

func NewGateway(hub *Hub, broadcaster *Broadcaster, presence *ClusterPresence, chat chat_service.ChatServiceContract, auth AuthenticatorFunc) *Gateway {
	return &Gateway{
		hub:         hub,
		broadcaster: broadcaster,
		presence:    presence,
		chat:        chat,
		auth:        auth,
		validate:    validator.New(),
	}
}

// HandleWS upgrades the connection and registers the client. The client must
// then send join_conversation events to receive room traffic; personal
// events (conversation_update, message_status_update) arrive regardless.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID, err := g.auth(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws: upgrade failed")
		return
	}

	client := newClient(uuid.New().String(), userID, conn, g.dispatch, g.onDisconnect)
	g.hub.Register(client)
	g.presence.Connected(r.Context(), userID)
}

func (g *Gateway) onDisconnect(client *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Connected runs once per connection, so Disconnected must too; the
	// Redis counter tracks connections, not users.
	g.hub.Unregister(client)
	g.presence.Disconnected(ctx, client.UserID)
}

func (g *Gateway) dispatch(client *Client, raw []byte) {
	var ev chat_dto.WSIncomingEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		g.nack(client, "", "malformed event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch ev.Type {
	case chat_dto.EventJoinConversation:
		g.handleJoin(ctx, client, ev)
	case chat_dto.EventMessageSend:
		g.handleSend(ctx, client, ev)
	case chat_dto.EventMessagesRead:
		g.handleRead(ctx, client, ev)
	case chat_dto.EventTypingStart, chat_dto.EventTypingStop:
		g.handleTyping(ctx, client, ev)
	default:
		g.nack(client, ev.AckID, "unknown event type")
	}
}

func (g *Gateway) handleJoin(ctx context.Context, client *Client, ev chat_dto.WSIncomingEvent) {
	var payload chat_dto.JoinConversationEvent
	if !g.decode(client, ev, &payload) {
		return
	}

	convID, perr := uuid.Parse(payload.ConversationID)
	if perr != nil {
		g.nack(client, ev.AckID, "invalid conversation id")
		return
	}
	// Membership gates the room: GetFullConversation rejects non-members.
	if _, err := g.chat.GetFullConversation(ctx, convID, client.UserID); err != nil {
		g.nackErr(client, ev.AckID, err)
		return
	}

	g.hub.Join(payload.ConversationID, client)
	g.ack(client, ev.AckID, nil)
}

func (g *Gateway) handleSend(ctx context.Context, client *Client, ev chat_dto.WSIncomingEvent) {
	var payload chat_dto.SendMessageEvent
	if !g.decode(client, ev, &payload) {
		return
	}

	result, err := g.chat.SendMessage(ctx, client.UserID, payload)
	if err != nil {
		g.nackErr(client, ev.AckID, err)
		return
	}

	convID := result.Conversation.ID
	if result.IsNewConversation {
		g.hub.Join(convID, client)
	}

	g.ack(client, ev.AckID, result.Message)
	g.broadcaster.MessageToRoom(ctx, convID, result.Message)

	memberIDs := memberIDs(result.Conversation)
	parsed, perr := uuid.Parse(convID)
	if perr == nil {
		g.broadcaster.ConversationUpdate(ctx, parsed, memberIDs)
	}
}

func (g *Gateway) handleRead(ctx context.Context, client *Client, ev chat_dto.WSIncomingEvent) {
	var payload chat_dto.MessagesReadEvent
	if !g.decode(client, ev, &payload) {
		return
	}

	convID, perr := uuid.Parse(payload.ConversationID)
	if perr != nil {
		g.nack(client, ev.AckID, "invalid conversation id")
		return
	}
	result, err := g.chat.MarkMessagesAsRead(ctx, convID, client.UserID)
	if err != nil {
		g.nackErr(client, ev.AckID, err)
		return
	}

	g.ack(client, ev.AckID, nil)

	if len(result.MessageIDs) > 0 {
		g.broadcaster.StatusUpdate(ctx, result.SenderIDs, chat_dto.StatusUpdatePayload{
			ConversationID: result.ConversationID,
			MessageIDs:     result.MessageIDs,
			Status:         chat_dto.StatusRead,
		})
	}
	// The reader's own summary changed (unread count back to zero).
	g.broadcaster.ConversationUpdate(ctx, convID, []string{client.UserID})
}

func (g *Gateway) handleTyping(ctx context.Context, client *Client, ev chat_dto.WSIncomingEvent) {
	var payload chat_dto.TypingEvent
	if !g.decode(client, ev, &payload) {
		return
	}

	convID, perr := uuid.Parse(payload.ConversationID)
	if perr != nil {
		g.nack(client, ev.AckID, "invalid conversation id")
		return
	}
	view, err := g.chat.GetFullConversation(ctx, convID, client.UserID)
	if err != nil {
		g.nackErr(client, ev.AckID, err)
		return
	}

	user := chat_dto.UserProfile{EnrollmentNumber: client.UserID, Name: client.UserID}
	for _, m := range view.Members {
		if m.EnrollmentNumber == client.UserID {
			user = m.UserProfile
			break
		}
	}
	g.broadcaster.Typing(ctx, ev.Type, chat_dto.TypingPayload{
		ConversationID: payload.ConversationID,
		User:           user,
	})
}

func (g *Gateway) decode(client *Client, ev chat_dto.WSIncomingEvent, dst any) bool {
	if err := json.Unmarshal(ev.Data, dst); err != nil {
		g.nack(client, ev.AckID, "malformed event data")
		return false
	}
	if err := g.validate.Struct(dst); err != nil {
		g.nack(client, ev.AckID, "invalid event data")
		return false
	}
	return true
}

// ack always emits a frame, even when the client sent no ack_id; every
// request-shaped event gets a response.
func (g *Gateway) ack(client *Client, ackID string, msg *chat_dto.MessageView) {
	frame, ok := marshalEvent(chat_dto.EventAck, chat_dto.WSAck{AckID: ackID, Success: true, Message: msg})
	if !ok {
		return
	}
	client.Enqueue(frame)
}

func (g *Gateway) nack(client *Client, ackID, reason string) {
	frame, ok := marshalEvent(chat_dto.EventAck, chat_dto.WSAck{AckID: ackID, Success: false, Error: reason})
	if !ok {
		return
	}
	client.Enqueue(frame)
}

func (g *Gateway) nackErr(client *Client, ackID string, err *app_error.AppError) {
	reason := "internal error"
	if err.IsClientSafe() {
		reason = err.Message
	} else {
		log.Error().Str("error", err.Message).Str("field", err.Field).Msg("ws: event handling failed")
	}
	g.nack(client, ackID, reason)
}

func memberIDs(view *chat_dto.ConversationView) []string {
	ids := make([]string, 0, len(view.Members))
	for _, m := range view.Members {
		ids = append(ids, m.EnrollmentNumber)
	}
	return ids
}
