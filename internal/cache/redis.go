package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// NewRedisClient connects and pings. An empty addr returns a nil client;
// callers treat that as "no cache, no rate limit".
func NewRedisClient(ctx context.Context, addr string, db int) (*rd.Client, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := rd.NewClient(&rd.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// SignedURLKey is the cache key for a signed URL of one storage path.
func SignedURLKey(storagePath string) string {
	return "storefront:signed_url:" + storagePath
}

// RateLimitKey scopes the upload limiter to a client address.
func RateLimitKey(scope, clientIP string) string {
	return fmt.Sprintf("storefront:rate_limit:%s:ip:%s", scope, clientIP)
}

// SignedURLCache keeps signed URLs for a little less than their lifetime.
// A nil receiver or nil client is a valid, always-missing cache.
type SignedURLCache struct {
	rdb *rd.Client
	ttl time.Duration
}

func NewSignedURLCache(rdb *rd.Client, urlTTL time.Duration) *SignedURLCache {
	ttl := urlTTL - urlTTL/6
	if ttl <= 0 {
		ttl = urlTTL
	}
	return &SignedURLCache{rdb: rdb, ttl: ttl}
}

func (c *SignedURLCache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

func (c *SignedURLCache) Get(ctx context.Context, storagePath string) (string, bool, error) {
	if c == nil || c.rdb == nil {
		return "", false, nil
	}
	v, err := c.rdb.Get(ctx, SignedURLKey(storagePath)).Result()
	if errors.Is(err, rd.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *SignedURLCache) Set(ctx context.Context, storagePath, signedURL string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Set(ctx, SignedURLKey(storagePath), signedURL, c.ttl).Err()
}
