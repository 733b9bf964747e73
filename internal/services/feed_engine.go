package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"studynotes/internal/repository"
	notes_errors "studynotes/pkg/errors"
	"studynotes/pkg/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FeedResultCap bounds every feed query.
const FeedResultCap = 50

const (
	UnknownCourseCode = "Unknown course"
	engagementWarning = "Loaded posts, but error loading upvotes"
)

// CourseIDResolver returns every course id matching a canonical code.
type CourseIDResolver interface {
	Tolerant(ctx context.Context, code string) ([]uuid.UUID, error)
}

// URLBuilder turns a blob path into a public URL.
type URLBuilder interface {
	PublicURL(path string) string
}

type FeedQuery struct {
	CourseCode string
	Search     string
}

type FeedItem struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	CourseID   uuid.UUID
	CourseCode string
	Professor  string
	School     string
	Title      string
	Body       string
	BlobPath   string
	FileURL    string
	CreatedAt  time.Time
	Upvotes    int
	Mine       bool
}

// FeedResult is a page of the feed. Partial is set when enrichment failed
// and the items carry default counts; Warnings says why.
type FeedResult struct {
	Items    []FeedItem
	Partial  bool
	Warnings []string
}

type FeedEngine struct {
	courses CourseIDResolver
	items   repository.ContentRepository
	votes   repository.EngagementRepository
	urls    URLBuilder
	log     *logger.Logger
	tracer  trace.Tracer
}

func NewFeedEngine(
	courses CourseIDResolver,
	items repository.ContentRepository,
	votes repository.EngagementRepository,
	urls URLBuilder,
	log *logger.Logger,
) *FeedEngine {
	return &FeedEngine{
		courses: courses,
		items:   items,
		votes:   votes,
		urls:    urls,
		log:     log,
		tracer:  otel.Tracer("studynotes/feed"),
	}
}

// Query returns the newest items, optionally scoped to a course and a search
// term, with the requester's own items first.
func (e *FeedEngine) Query(ctx context.Context, requester uuid.UUID, q FeedQuery) (FeedResult, error) {
	ctx, span := e.tracer.Start(ctx, "feed.query")
	defer span.End()

	filter := repository.FeedFilter{
		Search: strings.TrimSpace(q.Search),
		Limit:  FeedResultCap,
	}
	if raw := strings.TrimSpace(q.CourseCode); raw != "" {
		ids, err := e.courses.Tolerant(ctx, raw)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "course resolution failed")
			return FeedResult{}, err
		}
		span.SetAttributes(attribute.Int("feed.course_ids", len(ids)))
		if len(ids) == 0 {
			return FeedResult{Items: []FeedItem{}}, nil
		}
		filter.CourseIDs = ids
	}
	return e.run(ctx, span, requester, filter)
}

// OwnedBy lists the owner's items, newest first.
func (e *FeedEngine) OwnedBy(ctx context.Context, owner uuid.UUID) (FeedResult, error) {
	ctx, span := e.tracer.Start(ctx, "feed.owned_by")
	defer span.End()

	filter := repository.FeedFilter{
		OwnerID: uuid.NullUUID{UUID: owner, Valid: true},
		Limit:   FeedResultCap,
	}
	return e.run(ctx, span, owner, filter)
}

func (e *FeedEngine) run(ctx context.Context, span trace.Span, requester uuid.UUID, filter repository.FeedFilter) (FeedResult, error) {
	rows, err := e.items.ListFeed(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "item query failed")
		return FeedResult{}, notes_errors.Wrap(notes_errors.ErrQuery, "Could not load posts.", err)
	}
	if len(rows) > FeedResultCap {
		rows = rows[:FeedResultCap]
	}

	result := FeedResult{Items: make([]FeedItem, 0, len(rows))}
	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	counts, err := e.votes.CountByItems(ctx, ids)
	if err != nil {
		e.log.WithContext(ctx).Warn("engagement counts unavailable", "items", len(ids), "error", err)
		span.AddEvent("engagement counts unavailable")
		result.Partial = true
		result.Warnings = append(result.Warnings, engagementWarning)
		counts = nil
	}

	for _, row := range rows {
		item := FeedItem{
			ID:         row.ID,
			OwnerID:    row.OwnerID,
			CourseID:   row.CourseID,
			CourseCode: UnknownCourseCode,
			Title:      row.Title,
			CreatedAt:  row.CreatedAt,
			Upvotes:    counts[row.ID],
			Mine:       requester != uuid.Nil && row.OwnerID == requester,
		}
		if row.CourseCode.Valid {
			item.CourseCode = row.CourseCode.String
		}
		if row.CourseProfessor.Valid {
			item.Professor = row.CourseProfessor.String
		}
		if row.CourseSchool.Valid {
			item.School = row.CourseSchool.String
		}
		if row.Body.Valid {
			item.Body = row.Body.String
		}
		if row.BlobPath.Valid {
			item.BlobPath = row.BlobPath.String
			if e.urls != nil {
				item.FileURL = e.urls.PublicURL(row.BlobPath.String)
			}
		}
		result.Items = append(result.Items, item)
	}

	// Rows arrive newest first; a stable partition keeps that order on both sides.
	sort.SliceStable(result.Items, func(i, j int) bool {
		return result.Items[i].Mine && !result.Items[j].Mine
	})

	span.SetAttributes(
		attribute.Int("feed.items", len(result.Items)),
		attribute.Bool("feed.partial", result.Partial),
	)
	return result, nil
}
