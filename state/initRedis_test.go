package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := InitRedis(mr.Addr(), "", 0)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	ctx := context.Background()
	assert.NoError(t, client.Ping(ctx).Err())

	require.NoError(t, client.Set(ctx, "health-key", "1", time.Minute).Err())
	val, err := client.Get(ctx, "health-key").Result()
	assert.NoError(t, err)
	assert.Equal(t, "1", val)
}

func TestInitRedis_WithPassword(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("sekrit")

	client, err := InitRedis(mr.Addr(), "sekrit", 0)
	require.NoError(t, err)
	require.NotNil(t, client)
	client.Close()
}

func TestInitRedis_WrongPassword(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("sekrit")

	client, err := InitRedis(mr.Addr(), "wrong", 0)

	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestInitRedis_UnreachableAddress(t *testing.T) {
	client, err := InitRedis("127.0.0.1:16379", "", 0)

	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}
