package handler

import (
	"context"
	"net/http"

	"studynotes/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type CodeLister interface {
	Codes(ctx context.Context) ([]string, error)
}

type CourseHandler struct {
	courses CodeLister
}

func NewCourseHandler(courses CodeLister) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// Codes returns the distinct canonical course codes for filter pickers.
func (h *CourseHandler) Codes(c *gin.Context) {
	codes, err := h.courses.Codes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if codes == nil {
		codes = []string{}
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.CourseCodesResponse{Codes: codes}))
}
