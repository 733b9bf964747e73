package handler

import (
	"errors"
	"net/http"

	"studynotes/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

const msgRequestTooLarge = "File too large (max 15MB)."

// writeError renders a pipeline error with its user-facing message. Bodies
// cut off by http.MaxBytesReader are reported as 413.
func writeError(c *gin.Context, err error) {
	if isTooLarge(err) {
		c.JSON(http.StatusRequestEntityTooLarge, httpdto.NewErrorResponse(msgRequestTooLarge, "VALIDATION_FAILED"))
		return
	}
	_ = c.Error(err)
	c.JSON(httpdto.ErrorResponseFor(err))
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}
