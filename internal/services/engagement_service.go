package services

import (
	"context"
	"errors"
	"time"

	"studynotes/internal/events"
	"studynotes/internal/repository"
	notes_errors "studynotes/pkg/errors"
	"studynotes/pkg/logger"

	"github.com/google/uuid"
)

type EngagementService struct {
	items     repository.ContentRepository
	votes     repository.EngagementRepository
	publisher events.Publisher
	log       *logger.Logger
}

func NewEngagementService(items repository.ContentRepository, votes repository.EngagementRepository, publisher events.Publisher, log *logger.Logger) *EngagementService {
	return &EngagementService{items: items, votes: votes, publisher: publisher, log: log}
}

// VoteResult is the item's vote count after the change. Changed is false
// when the vote was already in the requested state.
type VoteResult struct {
	ItemID  uuid.UUID
	Upvotes int
	Changed bool
}

func (s *EngagementService) Upvote(ctx context.Context, voterID, itemID uuid.UUID) (VoteResult, error) {
	return s.apply(ctx, voterID, itemID, events.OpCreated, s.votes.Add)
}

func (s *EngagementService) RemoveUpvote(ctx context.Context, voterID, itemID uuid.UUID) (VoteResult, error) {
	return s.apply(ctx, voterID, itemID, events.OpDeleted, s.votes.Remove)
}

func (s *EngagementService) apply(
	ctx context.Context,
	voterID, itemID uuid.UUID,
	op events.Op,
	write func(context.Context, uuid.UUID, uuid.UUID) (bool, error),
) (VoteResult, error) {
	if voterID == uuid.Nil {
		return VoteResult{}, notes_errors.New(notes_errors.ErrUnauthorized, "Sign in to vote.")
	}
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, notes_errors.ErrNotFound) {
			return VoteResult{}, notes_errors.New(notes_errors.ErrNotFound, "Post not found.")
		}
		return VoteResult{}, notes_errors.Wrap(notes_errors.ErrQuery, "Could not load post.", err)
	}

	changed, err := write(ctx, itemID, voterID)
	if err != nil {
		return VoteResult{}, notes_errors.Wrap(notes_errors.ErrPersistence, "Could not save your vote.", err)
	}

	counts, err := s.votes.CountByItems(ctx, []uuid.UUID{itemID})
	if err != nil {
		return VoteResult{}, notes_errors.Wrap(notes_errors.ErrQuery, "Could not load votes.", err)
	}
	result := VoteResult{ItemID: itemID, Upvotes: counts[itemID], Changed: changed}

	if changed && s.publisher != nil {
		event := events.ChangeEvent{
			Collection: events.CollectionEngagement,
			Op:         op,
			RecordID:   itemID,
			ActorID:    voterID,
			CourseID:   uuid.NullUUID{UUID: item.CourseID, Valid: true},
			OccurredAt: time.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.log.WithContext(ctx).Warn("change event publish failed", "collection", event.Collection, "record_id", itemID, "error", err)
		}
	}
	return result, nil
}
