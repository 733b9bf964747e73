package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"studynotes/internal/domain/content"
	"studynotes/internal/domain/course"
)

type CourseRepository interface {
	Create(ctx context.Context, c *course.Course) error
	// ListCatalog returns every course row, oldest first.
	ListCatalog(ctx context.Context) ([]course.Course, error)
}

type ContentRepository interface {
	Create(ctx context.Context, item *content.Item) error
	GetByID(ctx context.Context, id uuid.UUID) (content.Item, error)
	ListFeed(ctx context.Context, filter FeedFilter) ([]FeedRow, error)
	// ReferencedBlobPaths returns the subset of paths that some content row points at.
	ReferencedBlobPaths(ctx context.Context, paths []string) (map[string]struct{}, error)
}

type EngagementRepository interface {
	// Add records a vote and reports whether a new row was written.
	Add(ctx context.Context, itemID, voterID uuid.UUID) (bool, error)
	Remove(ctx context.Context, itemID, voterID uuid.UUID) (bool, error)
	CountByItems(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

// FeedFilter narrows ListFeed. A nil CourseIDs slice means no course
// restriction; a non-nil empty slice matches nothing.
type FeedFilter struct {
	CourseIDs []uuid.UUID
	OwnerID   uuid.NullUUID
	Search    string
	Limit     int
}

// FeedRow is a content item joined with its course's display attributes.
// Course columns are null when the referenced course row is missing.
type FeedRow struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	CourseID        uuid.UUID
	Title           string
	Body            sql.NullString
	BlobPath        sql.NullString
	CreatedAt       time.Time
	CourseCode      sql.NullString
	CourseProfessor sql.NullString
	CourseSchool    sql.NullString
}
