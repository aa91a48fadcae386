package realtime

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestClusterPresenceCounter(t *testing.T) {
	mr, rdb := newTestRedis(t)
	hub := NewHub()
	defer hub.Close()
	presence := NewClusterPresence(hub, rdb)
	ctx := context.Background()

	presence.Connected(ctx, "u1")
	presence.Connected(ctx, "u1")

	got, err := mr.Get(presenceKey("u1"))
	require.NoError(t, err)
	assert.Equal(t, "2", got)
	assert.True(t, presence.IsOnline(ctx, "u1"))

	presence.Disconnected(ctx, "u1")
	got, err = mr.Get(presenceKey("u1"))
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	assert.True(t, presence.IsOnline(ctx, "u1"))

	// The last disconnect removes the key entirely.
	presence.Disconnected(ctx, "u1")
	assert.False(t, mr.Exists(presenceKey("u1")))
	assert.False(t, presence.IsOnline(ctx, "u1"))
}

func TestClusterPresenceSeesOtherInstances(t *testing.T) {
	mr, rdb := newTestRedis(t)
	hub := NewHub()
	defer hub.Close()
	presence := NewClusterPresence(hub, rdb)
	ctx := context.Background()

	// A counter written by another instance counts as online here.
	require.NoError(t, mr.Set(presenceKey("u9"), "1"))
	assert.True(t, presence.IsOnline(ctx, "u9"))

	assert.False(t, presence.IsOnline(ctx, "u8"))
}

func TestClusterPresenceLocalHubShortCircuit(t *testing.T) {
	_, rdb := newTestRedis(t)
	hub := NewHub()
	defer hub.Close()
	presence := NewClusterPresence(hub, rdb)

	registerClient(t, hub, "u1")

	// No Redis state needed when the connection is on this instance.
	assert.True(t, presence.IsOnline(context.Background(), "u1"))
}
