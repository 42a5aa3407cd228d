package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"schuppenweg-backend/internal/cache"
	"schuppenweg-backend/internal/models"
	"schuppenweg-backend/internal/observability"
)

// Sliding window in a sorted set. Returns the count after admitting this
// request, or -1 when the window is full.
// KEYS[1]=key ARGV: now, windowStart, windowSec, member, limit
const luaRateLimit = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowSec = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)

local count = redis.call('ZCARD', key)
if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, windowSec)
  return count + 1
else
  return -1
end
`

// RedisRateLimit limits requests per client IP. With a nil client it is a
// pass-through; on redis errors it fails open.
func RedisRateLimit(rdb *rd.Client, scope string, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	logger = observability.OrNop(logger)
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		now := time.Now()
		windowSec := int64(window.Seconds())
		if windowSec < 1 {
			windowSec = 1
		}
		key := cache.RateLimitKey(scope, c.ClientIP())
		member := fmt.Sprintf("%d-%d", now.Unix(), now.UnixNano())

		res, err := rdb.Eval(c.Request.Context(), luaRateLimit, []string{key},
			now.Unix(), now.Unix()-windowSec, windowSec, member, limit).Int()
		if err != nil {
			logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if res < 0 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:   "rate limit exceeded",
				Message: "too many uploads, try again shortly",
			})
			return
		}
		c.Next()
	}
}
