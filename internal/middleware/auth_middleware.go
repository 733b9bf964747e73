package middleware

import (
	"net/http"
	"strings"

	"studynotes/internal/services"
	"studynotes/internal/transport/httpdto"
	"studynotes/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware rejects requests without a valid access token.
func AuthMiddleware(service *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := service.Authenticate(extractToken(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}
		attachIdentity(c, id)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches the identity when a valid token is present
// and lets anonymous requests through otherwise.
func OptionalAuthMiddleware(service *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" {
			if id, err := service.Authenticate(token); err == nil {
				attachIdentity(c, id)
			}
		}
		c.Next()
	}
}

func attachIdentity(c *gin.Context, id services.Identity) {
	ctx := services.WithIdentity(c.Request.Context(), id)
	ctx = logger.WithUserID(ctx, id.UserID.String())
	c.Request = c.Request.WithContext(ctx)
}

// extractToken reads a bearer token, falling back to the token query
// parameter for websocket clients that cannot set headers.
func extractToken(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(c.Query("token"))
}
