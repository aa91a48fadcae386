package realtime

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventsChannel is the single pub/sub channel every instance subscribes to.
const EventsChannel = "campusconnect:ws:events"

const (
	envelopeRoom    = "room"
	envelopeUser    = "user"
	envelopeRefresh = "refresh"
)

// Envelope is the cross-instance fan-out unit. Room and user envelopes carry
// a pre-marshaled frame to relay as-is; refresh envelopes carry only the
// conversation and its members, because each instance must project the
// conversation per viewer before sending.
type Envelope struct {
	Origin         string              `json:"origin"`
	Kind           string              `json:"kind"`
	Room           string              `json:"room,omitempty"`
	UserIDs        []string            `json:"user_ids,omitempty"`
	ExceptUserID   string              `json:"except_user_id,omitempty"`
	ConversationID string              `json:"conversation_id,omitempty"`
	Frame          jsoniter.RawMessage `json:"frame,omitempty"`
}

// Backplane relays websocket traffic between horizontally scaled instances
// over Redis pub/sub. Every instance publishes with its own origin id and
// ignores its own messages on receipt.
type Backplane struct {
	rdb        *redis.Client
	instanceID string
}

func NewBackplane(rdb *redis.Client, instanceID string) *Backplane {
	return &Backplane{rdb: rdb, instanceID: instanceID}
}

func (b *Backplane) publish(ctx context.Context, env Envelope) {
	env.Origin = b.instanceID
	payload, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Msg("backplane: failed to marshal envelope")
		return
	}
	if err := b.rdb.Publish(ctx, EventsChannel, payload).Err(); err != nil {
		log.Error().Err(err).Str("kind", env.Kind).Msg("backplane: publish failed")
	}
}

// PublishRoom relays a frame to a conversation room on every other instance.
func (b *Backplane) PublishRoom(ctx context.Context, roomID string, frame []byte, exceptUserID string) {
	b.publish(ctx, Envelope{Kind: envelopeRoom, Room: roomID, Frame: frame, ExceptUserID: exceptUserID})
}

// PublishUsers relays a frame to every connection of the given users.
func (b *Backplane) PublishUsers(ctx context.Context, userIDs []string, frame []byte) {
	b.publish(ctx, Envelope{Kind: envelopeUser, UserIDs: userIDs, Frame: frame})
}

// PublishRefresh tells other instances to recompute and push the given
// members' views of a conversation.
func (b *Backplane) PublishRefresh(ctx context.Context, conversationID string, memberIDs []string) {
	b.publish(ctx, Envelope{Kind: envelopeRefresh, ConversationID: conversationID, UserIDs: memberIDs})
}

// Subscribe consumes the events channel until ctx is canceled, passing every
// foreign envelope to handle. Runs in its own goroutine.
func (b *Backplane) Subscribe(ctx context.Context, handle func(ctx context.Context, env Envelope)) {
	sub := b.rdb.Subscribe(ctx, EventsChannel)

	go func() {
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		log.Info().Str("channel", EventsChannel).Str("instanceID", b.instanceID).Msg("backplane: subscribed")

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					log.Warn().Msg("backplane: subscription channel closed")
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					log.Error().Err(err).Msg("backplane: bad envelope payload")
					continue
				}
				if env.Origin == b.instanceID {
					continue
				}
				handle(ctx, env)
			}
		}
	}()
}
