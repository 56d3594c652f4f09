package ratelimiter

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for rate limiting
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !rl.IsAllowed(clientIP) {
			_, retryAfter := rl.Remaining(clientIP)
			retrySeconds := int(math.Ceil(retryAfter.Seconds()))

			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(retrySeconds))
			c.Header("X-Error-Code", "RATE_LIMIT_EXCEEDED")

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  http.StatusTooManyRequests,
				"message": "Too many requests. Rate limit exceeded.",
				"error":   fmt.Sprintf("maximum %d requests per %s allowed", rl.limit, rl.window),
			})
			return
		}

		remaining, _ := rl.Remaining(clientIP)
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		c.Next()
	}
}
