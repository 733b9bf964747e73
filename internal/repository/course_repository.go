package repository

import (
	"context"

	"studynotes/internal/domain/course"
	notes_errors "studynotes/pkg/errors"

	"gorm.io/gorm"
)

type PostgresCourseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &PostgresCourseRepository{db: db}
}

func (r *PostgresCourseRepository) Create(ctx context.Context, c *course.Course) error {
	res := r.db.WithContext(ctx).Create(c)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return notes_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresCourseRepository) ListCatalog(ctx context.Context) ([]course.Course, error) {
	var courses []course.Course
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&courses).Error
	if err != nil {
		return nil, err
	}
	return courses, nil
}
