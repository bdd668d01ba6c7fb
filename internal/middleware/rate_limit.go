package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redisClient *redis.Client
}

type RateLimit struct {
	Requests int
	Window   time.Duration
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
	}
}

// Limit counts requests per client IP in Redis. When Redis is unreachable
// the request is allowed through; lending must not stop because the
// counter store is down.
func (rl *RateLimiter) Limit(limit RateLimit) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()

		key := fmt.Sprintf("rate_limit:%s", c.ClientIP())

		val, err := rl.redisClient.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			c.Next()
			return
		}

		var count int
		if !errors.Is(err, redis.Nil) {
			count, _ = strconv.Atoi(val)
		}

		if count >= limit.Requests {
			ttl, _ := rl.redisClient.TTL(ctx, key).Result()

			c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Too many requests. Please try again later.",
				},
			})
			c.Abort()
			return
		}

		pipe := rl.redisClient.Pipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, limit.Window)
		if _, err := pipe.Exec(ctx); err != nil {
			c.Next()
			return
		}

		remaining := limit.Requests - count - 1
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(limit.Window).Unix(), 10))

		c.Next()
	}
}

// AuthLimit protects login and password reset endpoints.
func (rl *RateLimiter) AuthLimit() gin.HandlerFunc {
	return rl.Limit(RateLimit{
		Requests: 5,
		Window:   time.Minute,
	})
}

// APILimit is the general per-IP ceiling.
func (rl *RateLimiter) APILimit() gin.HandlerFunc {
	return rl.Limit(RateLimit{
		Requests: 100,
		Window:   time.Minute,
	})
}

// SubmitLimit throttles loan request submission so a stuck client cannot
// hammer the pending queue.
func (rl *RateLimiter) SubmitLimit() gin.HandlerFunc {
	return rl.Limit(RateLimit{
		Requests: 10,
		Window:   time.Minute,
	})
}
