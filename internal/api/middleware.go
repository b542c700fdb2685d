package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nvandessel/reciprocity/internal/ratelimit"
)

// requestLogger logs every request at debug level.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// rateLimit allows perMinute requests per client address.
func rateLimit(perMinute float64) gin.HandlerFunc {
	limiter := ratelimit.NewLimiter(perMinute/60.0, max(1, int(perMinute/12)))
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": ratelimit.ErrRateLimited.Error()})
			return
		}
		c.Next()
	}
}
