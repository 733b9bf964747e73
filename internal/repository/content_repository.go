package repository

import (
	"context"
	"errors"

	"studynotes/internal/domain/content"
	notes_errors "studynotes/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresContentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) ContentRepository {
	return &PostgresContentRepository{db: db}
}

func (r *PostgresContentRepository) Create(ctx context.Context, item *content.Item) error {
	res := r.db.WithContext(ctx).Create(item)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return notes_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresContentRepository) GetByID(ctx context.Context, id uuid.UUID) (content.Item, error) {
	var item content.Item
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return content.Item{}, notes_errors.ErrNotFound
		}
		return content.Item{}, err
	}
	return item, nil
}

const feedColumns = "ci.id, ci.owner_id, ci.course_id, ci.title, ci.body, ci.blob_path, ci.created_at, " +
	"c.code AS course_code, c.professor AS course_professor, c.school AS course_school"

func (r *PostgresContentRepository) ListFeed(ctx context.Context, filter FeedFilter) ([]FeedRow, error) {
	if filter.CourseIDs != nil && len(filter.CourseIDs) == 0 {
		return []FeedRow{}, nil
	}

	q := r.db.WithContext(ctx).
		Table("content_items AS ci").
		Select(feedColumns).
		Joins("LEFT JOIN courses AS c ON c.id = ci.course_id")

	if filter.CourseIDs != nil {
		q = q.Where("ci.course_id IN ?", filter.CourseIDs)
	}
	if filter.OwnerID.Valid {
		q = q.Where("ci.owner_id = ?", filter.OwnerID.UUID)
	}
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		q = q.Where(`(LOWER(ci.title) LIKE ? ESCAPE '\' OR LOWER(COALESCE(ci.body, '')) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []FeedRow
	err := q.Order("ci.created_at DESC").
		Order("ci.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *PostgresContentRepository) ReferencedBlobPaths(ctx context.Context, paths []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(paths))
	if len(paths) == 0 {
		return found, nil
	}
	var hits []string
	err := r.db.WithContext(ctx).
		Model(&content.Item{}).
		Where("blob_path IN ?", paths).
		Pluck("blob_path", &hits).Error
	if err != nil {
		return nil, err
	}
	for _, p := range hits {
		found[p] = struct{}{}
	}
	return found, nil
}
