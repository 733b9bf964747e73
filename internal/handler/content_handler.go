package handler

import (
	"context"
	"mime/multipart"
	"net/http"
	"time"

	"studynotes/internal/services"
	"studynotes/internal/transport/httpdto"
	notes_errors "studynotes/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ItemSubmitter interface {
	Submit(ctx context.Context, ownerID uuid.UUID, in services.SubmitInput) (services.SubmitResult, error)
	SubmitText(ctx context.Context, ownerID uuid.UUID, in services.TextInput) (services.SubmitResult, error)
}

type FeedReader interface {
	Query(ctx context.Context, requester uuid.UUID, q services.FeedQuery) (services.FeedResult, error)
	OwnedBy(ctx context.Context, owner uuid.UUID) (services.FeedResult, error)
}

type ContentHandler struct {
	submitter       ItemSubmitter
	feed            FeedReader
	urls            services.URLBuilder
	maxRequestBytes int64
}

func NewContentHandler(submitter ItemSubmitter, feed FeedReader, urls services.URLBuilder, maxRequestBytes int64) *ContentHandler {
	return &ContentHandler{submitter: submitter, feed: feed, urls: urls, maxRequestBytes: maxRequestBytes}
}

// Create handles the multipart submission of one content item.
func (h *ContentHandler) Create(c *gin.Context) {
	ownerID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	if h.maxRequestBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxRequestBytes)
	}

	var req httpdto.CreateItemRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, notes_errors.Wrap(notes_errors.ErrValidation, "Invalid form submission.", err))
		return
	}

	var headers []*multipart.FileHeader
	if form := c.Request.MultipartForm; form != nil {
		headers = form.File["file"]
	}
	files := make([]services.Attachment, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(c, notes_errors.Wrap(notes_errors.ErrValidation, "Could not read the attached file.", err))
			return
		}
		defer f.Close()
		files = append(files, services.Attachment{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}

	result, err := h.submitter.Submit(c.Request.Context(), ownerID, services.SubmitInput{
		CourseCode: req.CourseCode,
		Title:      req.Title,
		Body:       req.Body,
		Files:      files,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	h.writeCreated(c, result)
}

// CreateText handles a post with no attachment.
func (h *ContentHandler) CreateText(c *gin.Context) {
	ownerID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	var req httpdto.CreateTextItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, notes_errors.Wrap(notes_errors.ErrValidation, "Invalid request body.", err))
		return
	}

	result, err := h.submitter.SubmitText(c.Request.Context(), ownerID, services.TextInput{
		CourseCode: req.CourseCode,
		Title:      req.Title,
		Body:       req.Body,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	h.writeCreated(c, result)
}

func (h *ContentHandler) writeCreated(c *gin.Context, result services.SubmitResult) {
	resp := httpdto.CreateItemResponse{
		ID:       result.ItemID.String(),
		CourseID: result.CourseID.String(),
		BlobPath: result.BlobPath,
	}
	if h.urls != nil && result.BlobPath != "" {
		resp.FileURL = h.urls.PublicURL(result.BlobPath)
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(resp))
}

// Feed lists recent items. Anonymous requests are served with no "mine"
// marking.
func (h *ContentHandler) Feed(c *gin.Context) {
	var req httpdto.FeedRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, notes_errors.Wrap(notes_errors.ErrValidation, "Invalid query.", err))
		return
	}
	requester, _ := services.UserIDFromContext(c.Request.Context())

	result, err := h.feed.Query(c.Request.Context(), requester, services.FeedQuery{
		CourseCode: req.Course,
		Search:     req.Query,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeFeed(c, result)
}

func (h *ContentHandler) Mine(c *gin.Context) {
	ownerID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	result, err := h.feed.OwnedBy(c.Request.Context(), ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	writeFeed(c, result)
}

func writeFeed(c *gin.Context, result services.FeedResult) {
	items := make([]httpdto.ItemDTO, 0, len(result.Items))
	for _, it := range result.Items {
		items = append(items, httpdto.ItemDTO{
			ID:         it.ID.String(),
			OwnerID:    it.OwnerID.String(),
			CourseID:   it.CourseID.String(),
			CourseCode: it.CourseCode,
			Professor:  it.Professor,
			School:     it.School,
			Title:      it.Title,
			Body:       it.Body,
			BlobPath:   it.BlobPath,
			FileURL:    it.FileURL,
			Upvotes:    it.Upvotes,
			Mine:       it.Mine,
			CreatedAt:  it.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	resp := httpdto.NewSuccessResponse(httpdto.FeedResponse{
		Items:    items,
		Partial:  result.Partial,
		Warnings: result.Warnings,
	})
	c.JSON(http.StatusOK, resp)
}
