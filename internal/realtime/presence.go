package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const presenceTTL = 24 * time.Hour

func presenceKey(userID string) string {
	return fmt.Sprintf("presence:user:%s", userID)
}

// ClusterPresence answers online checks across all instances. The local hub
// is consulted first; users connected elsewhere are found through a Redis
// connection counter each instance maintains for its own clients. A crashed
// instance leaves its counts stale until the TTL clears them.
type ClusterPresence struct {
	hub *Hub
	rdb *redis.Client
}

func NewClusterPresence(hub *Hub, rdb *redis.Client) *ClusterPresence {
	return &ClusterPresence{hub: hub, rdb: rdb}
}

// IsOnline satisfies the message pipeline's presence check.
func (p *ClusterPresence) IsOnline(ctx context.Context, userID string) bool {
	if p.hub.IsUserOnline(userID) {
		return true
	}
	n, err := p.rdb.Get(ctx, presenceKey(userID)).Int64()
	if err != nil {
		return false
	}
	return n > 0
}

// Connected bumps the user's cluster-wide connection count.
func (p *ClusterPresence) Connected(ctx context.Context, userID string) {
	pipe := p.rdb.TxPipeline()
	pipe.Incr(ctx, presenceKey(userID))
	pipe.Expire(ctx, presenceKey(userID), presenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("presence: failed to record connection")
	}
}

// Disconnected decrements the count and removes the key once it reaches zero.
func (p *ClusterPresence) Disconnected(ctx context.Context, userID string) {
	n, err := p.rdb.Decr(ctx, presenceKey(userID)).Result()
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("presence: failed to record disconnect")
		return
	}
	if n <= 0 {
		_ = p.rdb.Del(ctx, presenceKey(userID)).Err()
	}
}
