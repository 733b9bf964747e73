package middleware

import (
	"context"
	"net/http"
	"strconv"

	"studynotes/internal/redis"
	"studynotes/internal/services"
	"studynotes/internal/transport/httpdto"
	"studynotes/pkg/logger"

	"github.com/gin-gonic/gin"
)

// LimitFunc checks one per-user limit, e.g. (*redis.RateLimiter).AllowUpload.
type LimitFunc func(ctx context.Context, userID string) (*redis.RateLimitResult, error)

// UserRateLimitMiddleware applies check to authenticated requests. It must
// run after AuthMiddleware. A nil check disables limiting.
func UserRateLimitMiddleware(check LimitFunc, message string, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check == nil {
			c.Next()
			return
		}
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		result, err := check(c.Request.Context(), userID.String())
		if err != nil {
			if l != nil {
				l.WithContext(c.Request.Context()).Error("rate limit check failed", "error", err)
			}
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("rate limit error", "INTERNAL_ERROR"))
			c.Abort()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(message, "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
