package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/iamKIVOUS/CampusConnect/internal/dtos/chat_dto"
	app_error "github.com/iamKIVOUS/CampusConnect/internal/errors"
)

// ProjectionSource builds one member's view of a conversation. Conversation
// summaries are viewer-relative (own unread count, own archived flag), so the
// broadcaster must not ship a shared payload to every member.
type ProjectionSource interface {
	GetFullConversation(ctx context.Context, conversationID uuid.UUID, viewerID string) (*chat_dto.ConversationView, *app_error.AppError)
	ConversationMemberIDs(ctx context.Context, conversationID uuid.UUID) ([]string, *app_error.AppError)
}

// Broadcaster fans server events out to local connections through the hub
// and to the rest of the cluster through the backplane. All methods are
// called only after the originating transaction has committed.
type Broadcaster struct {
	hub       *Hub
	backplane *Backplane
	source    ProjectionSource
}

func NewBroadcaster(hub *Hub, backplane *Backplane, source ProjectionSource) *Broadcaster {
	return &Broadcaster{hub: hub, backplane: backplane, source: source}
}

func marshalEvent(eventType string, data any) ([]byte, bool) {
	frame, err := json.Marshal(chat_dto.WSOutgoingEvent{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("ws: failed to marshal outgoing event")
		return nil, false
	}
	return frame, true
}

// MessageToRoom delivers a message_receive event to everyone joined to the
// conversation room, here and on other instances.
func (b *Broadcaster) MessageToRoom(ctx context.Context, conversationID string, msg *chat_dto.MessageView) {
	frame, ok := marshalEvent(chat_dto.EventMessageReceive, msg)
	if !ok {
		return
	}
	b.hub.BroadcastToRoom(conversationID, frame, "")
	b.backplane.PublishRoom(ctx, conversationID, frame, "")
}

// Typing relays a typing indicator to the room, skipping the typist's own
// connections.
func (b *Broadcaster) Typing(ctx context.Context, eventType string, payload chat_dto.TypingPayload) {
	frame, ok := marshalEvent(eventType, payload)
	if !ok {
		return
	}
	b.hub.BroadcastToRoom(payload.ConversationID, frame, payload.User.EnrollmentNumber)
	b.backplane.PublishRoom(ctx, payload.ConversationID, frame, payload.User.EnrollmentNumber)
}

// StatusUpdate notifies the given users that some of their sent messages
// changed delivery state.
func (b *Broadcaster) StatusUpdate(ctx context.Context, userIDs []string, payload chat_dto.StatusUpdatePayload) {
	if len(userIDs) == 0 {
		return
	}
	frame, ok := marshalEvent(chat_dto.EventMessageStatusUpdate, payload)
	if !ok {
		return
	}
	for _, id := range userIDs {
		b.hub.SendToUser(id, frame)
	}
	b.backplane.PublishUsers(ctx, userIDs, frame)
}

// ConversationUpdate pushes each member their own projection of the
// conversation. Only locally connected members are projected here; the
// refresh envelope makes every other instance do the same for its own.
func (b *Broadcaster) ConversationUpdate(ctx context.Context, conversationID uuid.UUID, memberIDs []string) {
	b.refreshLocal(ctx, conversationID, memberIDs)
	b.backplane.PublishRefresh(ctx, conversationID.String(), memberIDs)
}

// ConversationChanged is ConversationUpdate for callers that do not already
// hold the member list, such as after a member left.
func (b *Broadcaster) ConversationChanged(ctx context.Context, conversationID uuid.UUID) {
	memberIDs, err := b.source.ConversationMemberIDs(ctx, conversationID)
	if err != nil {
		log.Error().Str("conversationID", conversationID.String()).Str("error", err.Message).Msg("ws: member lookup for refresh failed")
		return
	}
	b.ConversationUpdate(ctx, conversationID, memberIDs)
}

func (b *Broadcaster) refreshLocal(ctx context.Context, conversationID uuid.UUID, memberIDs []string) {
	for _, userID := range b.hub.LocalOnlineUsers(memberIDs) {
		view, err := b.source.GetFullConversation(ctx, conversationID, userID)
		if err != nil {
			// A member who just left no longer has a view to push.
			continue
		}
		frame, ok := marshalEvent(chat_dto.EventConversationUpdate, view)
		if !ok {
			continue
		}
		b.hub.SendToUser(userID, frame)
	}
}

// HandleEnvelope applies a foreign instance's envelope to local connections.
func (b *Broadcaster) HandleEnvelope(ctx context.Context, env Envelope) {
	switch env.Kind {
	case envelopeRoom:
		b.hub.BroadcastToRoom(env.Room, env.Frame, env.ExceptUserID)
	case envelopeUser:
		for _, id := range env.UserIDs {
			b.hub.SendToUser(id, env.Frame)
		}
	case envelopeRefresh:
		convID, err := uuid.Parse(env.ConversationID)
		if err != nil {
			log.Error().Str("conversationID", env.ConversationID).Msg("backplane: bad conversation id in refresh")
			return
		}
		b.refreshLocal(ctx, convID, env.UserIDs)
	default:
		log.Warn().Str("kind", env.Kind).Msg("backplane: unknown envelope kind")
	}
}
