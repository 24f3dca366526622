package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientConnects(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), Options{URL: "redis://" + mr.Addr(), PoolSize: 7})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "loan:1", "cached", time.Minute).Err())
	assert.True(t, mr.Exists("loan:1"))

	c, ok := client.(*goredis.Client)
	require.True(t, ok)
	assert.Equal(t, 7, c.Options().PoolSize)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(context.Background(), Options{URL: "://bad-url"})
	assert.ErrorContains(t, err, "invalid REDIS_URL")
}

func TestNewClientFailsWhenServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	url := "redis://" + mr.Addr()
	mr.Close()

	_, err := NewClient(context.Background(), Options{URL: url, PingTimeout: time.Second})
	assert.ErrorContains(t, err, "redis unreachable")
}
