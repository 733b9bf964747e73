package handler

import (
	"context"
	"io"
	"net/http"

	"studynotes/internal/transport/httpdto"
	notes_errors "studynotes/pkg/errors"

	"github.com/gin-gonic/gin"
)

type SummaryWriter interface {
	Summarize(ctx context.Context, contentType string, size int64, body io.Reader) (string, error)
}

type SummaryHandler struct {
	summaries       SummaryWriter
	maxRequestBytes int64
}

func NewSummaryHandler(summaries SummaryWriter, maxRequestBytes int64) *SummaryHandler {
	return &SummaryHandler{summaries: summaries, maxRequestBytes: maxRequestBytes}
}

// Create summarizes the uploaded file so the client can pre-fill a body.
func (h *SummaryHandler) Create(c *gin.Context) {
	if h.maxRequestBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxRequestBytes)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			writeError(c, err)
			return
		}
		writeError(c, notes_errors.Wrap(notes_errors.ErrValidation, "Attach a PDF or image.", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, notes_errors.Wrap(notes_errors.ErrValidation, "Could not read the attached file.", err))
		return
	}
	defer f.Close()

	text, err := h.summaries.Summarize(c.Request.Context(), fh.Header.Get("Content-Type"), fh.Size, f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.SummaryResponse{Summary: text}))
}
