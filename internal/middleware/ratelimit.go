package middleware

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/photofeed/backend/internal/cache"
	"github.com/photofeed/backend/internal/logger"
	"github.com/photofeed/backend/internal/metrics"
)

// RedisRateLimitMiddleware is a fixed-window distributed rate limiter keyed
// by client IP. It shares counters across instances through Redis.
//
// When Redis is down requests are allowed through: the toggle endpoint this
// protects already fails closed on its own when the counter store is
// unreachable, so rejecting here would only double-punish reads.
func RedisRateLimitMiddleware(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		redisClient := cache.GetRedisClient()
		if redisClient == nil {
			logger.Log.Warn("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		clientIP := clientAddr(c.Request.RemoteAddr)
		key := fmt.Sprintf("rate_limit:%s", clientIP)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		val, err := redisClient.GetInt(ctx, key)
		if err != nil && !cache.IsNil(err) {
			logger.Log.Warn("Rate limit check failed, allowing request",
				logger.WithIP(clientIP),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if val >= int64(maxRequests) {
			metrics.Get().RateLimitExceededTotal.Inc()
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(clientIP),
				zap.Int("max_requests", maxRequests),
				zap.Int64("current_requests", val),
			)
			c.JSON(429, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		newVal, err := redisClient.IncrBy(ctx, key, 1)
		if err != nil {
			logger.Log.Warn("Rate limit increment failed, allowing request",
				logger.WithIP(clientIP),
				zap.Error(err),
			)
			c.Next()
			return
		}

		// First request in this window starts the clock
		if newVal == 1 {
			if err := redisClient.Expire(ctx, key, window); err != nil {
				logger.Log.Warn("Failed to set rate limit expiration",
					logger.WithIP(clientIP),
					zap.Error(err),
				)
			}
		}

		c.Next()
	}
}

func clientAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
