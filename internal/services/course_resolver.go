package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"studynotes/internal/coursecode"
	"studynotes/internal/domain/course"
	"studynotes/internal/repository"
	notes_errors "studynotes/pkg/errors"
	"studynotes/pkg/logger"

	"github.com/google/uuid"
)

// CatalogCache holds a copy of the course catalog. A nil cache is allowed.
type CatalogCache interface {
	GetCatalog(ctx context.Context) ([]course.Course, bool, error)
	SetCatalog(ctx context.Context, courses []course.Course) error
	InvalidateCatalog(ctx context.Context) error
}

// CourseResolver maps canonical course codes to course rows. Stored codes are
// normalized before comparison, so rows saved as "cs 101" still match CS101.
type CourseResolver struct {
	repo  repository.CourseRepository
	cache CatalogCache
	log   *logger.Logger

	// reloadEvery bounds how often a cached miss may force a store reload.
	reloadEvery time.Duration
	now         func() time.Time

	mu         sync.Mutex
	lastReload time.Time
}

// minCatalogReload is the default spacing between forced catalog reloads.
const minCatalogReload = 5 * time.Second

func NewCourseResolver(repo repository.CourseRepository, cache CatalogCache, log *logger.Logger) *CourseResolver {
	return &CourseResolver{repo: repo, cache: cache, log: log, reloadEvery: minCatalogReload, now: time.Now}
}

// Exact returns the single course for code. When several rows share the
// canonical code, the oldest row whose stored code is already canonical wins,
// falling back to the oldest match.
func (r *CourseResolver) Exact(ctx context.Context, code string) (course.Course, error) {
	canonical := coursecode.Normalize(code)
	if canonical == "" {
		return course.Course{}, notes_errors.New(notes_errors.ErrValidation, "Course code is required.")
	}
	matches, err := r.lookup(ctx, canonical)
	if err != nil {
		return course.Course{}, notes_errors.Wrap(notes_errors.ErrQuery, "Could not look up course.", err)
	}
	if len(matches) == 0 {
		return course.Course{}, notes_errors.New(notes_errors.ErrNotFound, fmt.Sprintf("Course %s not found.", canonical))
	}
	if len(matches) > 1 {
		r.log.WithContext(ctx).Warn("course code matches multiple rows", "code", canonical, "rows", len(matches))
	}
	for _, c := range matches {
		if c.Code == canonical {
			return c, nil
		}
	}
	return matches[0], nil
}

// Tolerant returns every course id whose stored code normalizes to code. An
// empty result is not an error.
func (r *CourseResolver) Tolerant(ctx context.Context, code string) ([]uuid.UUID, error) {
	canonical := coursecode.Normalize(code)
	if canonical == "" {
		return []uuid.UUID{}, nil
	}
	matches, err := r.lookup(ctx, canonical)
	if err != nil {
		return nil, notes_errors.Wrap(notes_errors.ErrQuery, "Could not load courses.", err)
	}
	ids := make([]uuid.UUID, len(matches))
	for i, c := range matches {
		ids[i] = c.ID
	}
	return ids, nil
}

// Codes returns the distinct canonical codes in the catalog, sorted.
func (r *CourseResolver) Codes(ctx context.Context) ([]string, error) {
	courses, _, err := r.catalog(ctx, false)
	if err != nil {
		return nil, notes_errors.Wrap(notes_errors.ErrQuery, "Could not load courses.", err)
	}
	seen := make(map[string]struct{}, len(courses))
	codes := make([]string, 0, len(courses))
	for _, c := range courses {
		code := coursecode.Normalize(c.Code)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

// Invalidate drops the cached catalog after a write.
func (r *CourseResolver) Invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateCatalog(ctx); err != nil {
		r.log.WithContext(ctx).Warn("course catalog cache invalidation failed", "error", err)
	}
}

// lookup serves from the cache first and reloads from the store once when
// the cached catalog has no match, so freshly created courses resolve.
// Forced reloads are spaced by reloadEvery; misses in between are answered
// from the cached catalog.
func (r *CourseResolver) lookup(ctx context.Context, canonical string) ([]course.Course, error) {
	courses, cached, err := r.catalog(ctx, false)
	if err != nil {
		return nil, err
	}
	matches := matchCode(courses, canonical)
	if len(matches) == 0 && cached && r.reloadDue() {
		courses, _, err = r.catalog(ctx, true)
		if err != nil {
			return nil, err
		}
		matches = matchCode(courses, canonical)
	}
	return matches, nil
}

func (r *CourseResolver) catalog(ctx context.Context, fresh bool) ([]course.Course, bool, error) {
	if r.cache != nil && !fresh {
		courses, ok, err := r.cache.GetCatalog(ctx)
		if err != nil {
			r.log.WithContext(ctx).Warn("course catalog cache read failed", "error", err)
		} else if ok {
			return courses, true, nil
		}
	}
	courses, err := r.repo.ListCatalog(ctx)
	if err != nil {
		return nil, false, err
	}
	r.mu.Lock()
	r.lastReload = r.now()
	r.mu.Unlock()
	if r.cache != nil {
		if err := r.cache.SetCatalog(ctx, courses); err != nil {
			r.log.WithContext(ctx).Warn("course catalog cache write failed", "error", err)
		}
	}
	return courses, false, nil
}

func (r *CourseResolver) reloadDue() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now().Sub(r.lastReload) >= r.reloadEvery
}

func matchCode(courses []course.Course, canonical string) []course.Course {
	var matches []course.Course
	for _, c := range courses {
		if coursecode.Normalize(c.Code) == canonical {
			matches = append(matches, c)
		}
	}
	return matches
}
