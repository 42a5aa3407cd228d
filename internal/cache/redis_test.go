package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient_EmptyAddr(t *testing.T) {
	rdb, err := NewRedisClient(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestSignedURLCache_TTLBelowURLLifetime(t *testing.T) {
	c := NewSignedURLCache(nil, time.Hour)
	assert.Equal(t, 50*time.Minute, c.TTL())
}

func TestSignedURLCache_NilClientMisses(t *testing.T) {
	c := NewSignedURLCache(nil, time.Hour)

	require.NoError(t, c.Set(context.Background(), "a/front.jpg", "https://signed"))
	_, ok, err := c.Get(context.Background(), "a/front.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	var nilCache *SignedURLCache
	_, ok, err = nilCache.Get(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "storefront:signed_url:o1/top.jpg", SignedURLKey("o1/top.jpg"))
	assert.Equal(t, "storefront:rate_limit:upload:ip:10.0.0.1", RateLimitKey("upload", "10.0.0.1"))
}
