package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/metime/identity/pkg/logger"
)

// RateLimiter tracks request timestamps per client IP inside a sliding
// window. Login and OTP endpoints sit behind it to slow down guessing.
type RateLimiter struct {
	tokens     map[string][]time.Time
	maxRequest int
	duration   time.Duration
	mu         sync.Mutex
}

func NewRateLimiter(maxRequest int, duration time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     make(map[string][]time.Time),
		maxRequest: maxRequest,
		duration:   duration,
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	for ip, tokens := range rl.tokens {
		valid := tokens[:0]
		for _, t := range tokens {
			if now.Sub(t) <= rl.duration {
				valid = append(valid, t)
			}
		}
		if len(valid) > 0 {
			rl.tokens[ip] = valid
		} else {
			delete(rl.tokens, ip)
		}
	}
}

// Allow records the request and reports whether the client is within its
// budget.
func (rl *RateLimiter) Allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanup(now)

	if len(rl.tokens[ip]) >= rl.maxRequest {
		return false
	}

	rl.tokens[ip] = append(rl.tokens[ip], now)
	return true
}

// RateLimit rejects clients that exceed maxRequest calls per duration.
func RateLimit(maxRequest int, duration time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(maxRequest, duration)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		if !limiter.Allow(ip, time.Now()) {
			logger.GetLogger().Warn("Rate limit exceeded",
				zap.String("client_ip", ip),
				zap.String("path", c.Request.URL.Path),
				zap.Int("max_request", maxRequest),
			)
			c.Header("Retry-After", fmt.Sprintf("%d", int(duration.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"message": "Too many requests",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
