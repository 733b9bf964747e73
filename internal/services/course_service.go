package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"studynotes/internal/coursecode"
	"studynotes/internal/domain/course"
	"studynotes/internal/repository"
	notes_errors "studynotes/pkg/errors"
	"studynotes/pkg/logger"

	"github.com/google/uuid"
)

type CourseService struct {
	repo     repository.CourseRepository
	resolver *CourseResolver
	log      *logger.Logger
}

func NewCourseService(repo repository.CourseRepository, resolver *CourseResolver, log *logger.Logger) *CourseService {
	return &CourseService{repo: repo, resolver: resolver, log: log}
}

type CreateCourseInput struct {
	Code      string
	Professor string
	School    string
}

// Create stores a course under its canonical code. A code that collides
// canonically with any existing row is rejected, even though reads tolerate
// such duplicates.
func (s *CourseService) Create(ctx context.Context, in CreateCourseInput) (course.Course, error) {
	canonical := coursecode.Normalize(in.Code)
	if canonical == "" {
		return course.Course{}, notes_errors.New(notes_errors.ErrValidation, "Course code is required.")
	}

	courses, err := s.repo.ListCatalog(ctx)
	if err != nil {
		return course.Course{}, notes_errors.Wrap(notes_errors.ErrQuery, "Could not load courses.", err)
	}
	if len(matchCode(courses, canonical)) > 0 {
		return course.Course{}, notes_errors.New(notes_errors.ErrAlreadyExists, fmt.Sprintf("Course %s already exists.", canonical))
	}

	c := course.Course{
		ID:        uuid.New(),
		Code:      canonical,
		Professor: optionalString(in.Professor),
		School:    optionalString(in.School),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, &c); err != nil {
		if errors.Is(err, notes_errors.ErrAlreadyExists) {
			return course.Course{}, notes_errors.Wrap(notes_errors.ErrAlreadyExists, fmt.Sprintf("Course %s already exists.", canonical), err)
		}
		return course.Course{}, notes_errors.Wrap(notes_errors.ErrPersistence, "Could not save course.", err)
	}
	s.resolver.Invalidate(ctx)
	s.log.WithContext(ctx).Info("course created", "course_id", c.ID, "code", c.Code)
	return c, nil
}

func (s *CourseService) List(ctx context.Context) ([]course.Course, error) {
	courses, err := s.repo.ListCatalog(ctx)
	if err != nil {
		return nil, notes_errors.Wrap(notes_errors.ErrQuery, "Could not load courses.", err)
	}
	return courses, nil
}

func optionalString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
