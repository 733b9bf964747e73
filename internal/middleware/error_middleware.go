package middleware

import (
	"studynotes/internal/transport/httpdto"
	"studynotes/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders errors attached with c.Error when the handler did not
// write a response itself.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.WithContext(c.Request.Context()).Error("request error", "path", c.Request.URL.Path, "error", err)
		}
		if c.Writer.Written() {
			return
		}
		c.JSON(httpdto.ErrorResponseFor(err))
	}
}
