package middleware

import (
	"math"
	"net/http"
	"strconv"

	"mypalette/internal/infra/logger"
	"mypalette/internal/infra/ratelimit"

	"github.com/gin-gonic/gin"
)

// SubmissionRateLimit limits submission attempts per authenticated user.
// Redis errors let the request through.
func SubmissionRateLimit(l *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetUint("user_id")
		if l == nil || uid == 0 {
			c.Next()
			return
		}

		ok, remaining, retry, err := l.Allow(c.Request.Context(), strconv.FormatUint(uint64(uid), 10))
		if err != nil {
			logger.FromGin(c).Warn("rate limit check failed", "error", err)
			c.Next()
			return
		}
		if remaining >= 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(l.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}
		if !ok {
			secs := int(math.Ceil(retry.Seconds()))
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many submissions, try again later",
				"retry_after": secs,
			})
			return
		}
		c.Next()
	}
}
