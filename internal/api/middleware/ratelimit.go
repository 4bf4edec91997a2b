package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pandeygsundaram/gameforge/pkg/logger"
	"github.com/pandeygsundaram/gameforge/pkg/ratelimit"
)

// RateLimitConfig holds rate limit configuration
type RateLimitConfig struct {
	Limiter  *ratelimit.RateLimiter
	Capacity int64                     // Maximum number of requests
	KeyFunc  func(*gin.Context) string // Function to extract rate limit key
}

// RedisRateLimitConfig Redis 기반 Rate Limit 설정
type RedisRateLimitConfig struct {
	Limiter *ratelimit.RedisRateLimiter // Redis Rate Limiter
	KeyFunc func(*gin.Context) string   // 키 추출 함수
}

// IPKeyFunc uses only IP address (for public endpoints)
func IPKeyFunc(c *gin.Context) string {
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

func tooManyRequests(c *gin.Context, retryAfter int) {
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":       "Rate limit exceeded",
		"retry_after": retryAfter,
	})
	c.Abort()
}

// RateLimitMiddleware 프로세스 메모리 기반 Rate Limiting (Redis 미사용 시)
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = IPKeyFunc
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)

		c.Header("X-RateLimit-Limit", strconv.FormatInt(config.Capacity, 10))

		if !config.Limiter.Allow(key) {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))
			tooManyRequests(c, 1)
			return
		}

		c.Next()
	}
}

// RedisRateLimitMiddleware Redis 기반 분산 Rate Limiting 미들웨어
func RedisRateLimitMiddleware(config RedisRateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = IPKeyFunc
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)

		allowed, info, err := config.Limiter.AllowWithInfo(c.Request.Context(), key)
		if err != nil {
			// Redis 오류 시 로깅하고 요청 허용 (Fail-open)
			logger.Warn("Redis rate limit error", "key", key, "error", err)
			c.Next()
			return
		}

		// Rate Limit 헤더 추가
		c.Header("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(info.ResetTime).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			tooManyRequests(c, retryAfter)
			return
		}

		c.Next()
	}
}

// APIRateLimit 분당 perMinute회 (IP 기준). redisLimiter가 있으면 Redis 사용.
func APIRateLimit(redisLimiter *ratelimit.RedisRateLimiter, memoryLimiter *ratelimit.RateLimiter, perMinute int) gin.HandlerFunc {
	if redisLimiter != nil {
		return RedisRateLimitMiddleware(RedisRateLimitConfig{
			Limiter: redisLimiter,
			KeyFunc: IPKeyFunc,
		})
	}
	return RateLimitMiddleware(RateLimitConfig{
		Limiter:  memoryLimiter,
		Capacity: int64(perMinute),
		KeyFunc:  IPKeyFunc,
	})
}
