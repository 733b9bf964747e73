package handler

import (
	"context"
	"net/http"

	"studynotes/internal/services"
	"studynotes/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Voter interface {
	Upvote(ctx context.Context, voterID, itemID uuid.UUID) (services.VoteResult, error)
	RemoveUpvote(ctx context.Context, voterID, itemID uuid.UUID) (services.VoteResult, error)
}

type EngagementHandler struct {
	votes Voter
}

func NewEngagementHandler(votes Voter) *EngagementHandler {
	return &EngagementHandler{votes: votes}
}

func (h *EngagementHandler) Upvote(c *gin.Context) {
	h.vote(c, h.votes.Upvote)
}

func (h *EngagementHandler) RemoveUpvote(c *gin.Context) {
	h.vote(c, h.votes.RemoveUpvote)
}

func (h *EngagementHandler) vote(c *gin.Context, apply func(context.Context, uuid.UUID, uuid.UUID) (services.VoteResult, error)) {
	voterID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid item id", "INVALID_REQUEST"))
		return
	}
	result, err := apply(c.Request.Context(), voterID, itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.VoteResponse{
		ItemID:  result.ItemID.String(),
		Upvotes: result.Upvotes,
		Changed: result.Changed,
	}))
}
