package server

import (
	"errors"
	"net/http"
	"time"

	"charity-auction/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var errRateLimited = errors.New("too many bid submissions")

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	})
}

// RateLimitMiddleware rejects requests with 429 once limiter has no tokens left.
// A nil limiter lets every request through.
func RateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limiter.Allow() {
			c.Next()
			return
		}
		utils.JSONRejection(c, http.StatusTooManyRequests, errRateLimited, "rate limit exceeded", "rate_limited", nil)
		c.Abort()
		utils.Warn("RateLimitMiddleware: request rejected", map[string]any{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})
	}
}
