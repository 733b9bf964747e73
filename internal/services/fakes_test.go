package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"studynotes/internal/domain/content"
	"studynotes/internal/domain/course"
	"studynotes/internal/events"
	"studynotes/internal/repository"
	"studynotes/internal/storage"
	notes_errors "studynotes/pkg/errors"

	"github.com/google/uuid"
)

type fakeCourseRepo struct {
	courses   []course.Course
	listErr   error
	createErr error
	listCalls int
}

func (f *fakeCourseRepo) Create(_ context.Context, c *course.Course) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.courses = append(f.courses, *c)
	return nil
}

func (f *fakeCourseRepo) ListCatalog(_ context.Context) ([]course.Course, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]course.Course, len(f.courses))
	copy(out, f.courses)
	return out, nil
}

type fakeContentRepo struct {
	mu        sync.Mutex
	items     []content.Item
	courses   map[uuid.UUID]course.Course
	createErr error
	// storedErr is returned after the row has been stored.
	storedErr  error
	listErr    error
	getErr     error
	creates    int
	gets       int
	listCalls  int
	lastFilter repository.FeedFilter
}

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{courses: make(map[uuid.UUID]course.Course)}
}

func (f *fakeContentRepo) Create(_ context.Context, item *content.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	f.items = append(f.items, *item)
	return f.storedErr
}

func (f *fakeContentRepo) GetByID(_ context.Context, id uuid.UUID) (content.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return content.Item{}, f.getErr
	}
	for _, it := range f.items {
		if it.ID == id {
			return it, nil
		}
	}
	return content.Item{}, notes_errors.ErrNotFound
}

func (f *fakeContentRepo) ListFeed(_ context.Context, filter repository.FeedFilter) ([]repository.FeedRow, error) {
	f.listCalls++
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	var allowed map[uuid.UUID]bool
	if filter.CourseIDs != nil {
		allowed = make(map[uuid.UUID]bool, len(filter.CourseIDs))
		for _, id := range filter.CourseIDs {
			allowed[id] = true
		}
	}
	var rows []repository.FeedRow
	for _, it := range f.items {
		if allowed != nil && !allowed[it.CourseID] {
			continue
		}
		if filter.OwnerID.Valid && it.OwnerID != filter.OwnerID.UUID {
			continue
		}
		row := repository.FeedRow{
			ID:        it.ID,
			OwnerID:   it.OwnerID,
			CourseID:  it.CourseID,
			Title:     it.Title,
			Body:      it.Body,
			BlobPath:  it.BlobPath,
			CreatedAt: it.CreatedAt,
		}
		if c, ok := f.courses[it.CourseID]; ok {
			row.CourseCode.String, row.CourseCode.Valid = c.Code, true
			row.CourseProfessor = c.Professor
			row.CourseSchool = c.School
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}
	return rows, nil
}

func (f *fakeContentRepo) ReferencedBlobPaths(_ context.Context, paths []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	for _, p := range paths {
		for _, it := range f.items {
			if it.BlobPath.Valid && it.BlobPath.String == p {
				found[p] = struct{}{}
			}
		}
	}
	return found, nil
}

type fakeEngagementRepo struct {
	votes    map[uuid.UUID]map[uuid.UUID]bool
	countErr error
	writeErr error
}

func newFakeEngagementRepo() *fakeEngagementRepo {
	return &fakeEngagementRepo{votes: make(map[uuid.UUID]map[uuid.UUID]bool)}
}

func (f *fakeEngagementRepo) Add(_ context.Context, itemID, voterID uuid.UUID) (bool, error) {
	if f.writeErr != nil {
		return false, f.writeErr
	}
	if f.votes[itemID] == nil {
		f.votes[itemID] = make(map[uuid.UUID]bool)
	}
	if f.votes[itemID][voterID] {
		return false, nil
	}
	f.votes[itemID][voterID] = true
	return true, nil
}

func (f *fakeEngagementRepo) Remove(_ context.Context, itemID, voterID uuid.UUID) (bool, error) {
	if f.writeErr != nil {
		return false, f.writeErr
	}
	if !f.votes[itemID][voterID] {
		return false, nil
	}
	delete(f.votes[itemID], voterID)
	return true, nil
}

func (f *fakeEngagementRepo) CountByItems(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	if f.countErr != nil {
		return nil, f.countErr
	}
	counts := make(map[uuid.UUID]int)
	for _, id := range ids {
		if n := len(f.votes[id]); n > 0 {
			counts[id] = n
		}
	}
	return counts, nil
}

type fakeBlobStore struct {
	mu        sync.Mutex
	objects   map[string]storage.Object
	puts      []string
	deletes   []string
	putErr    error
	deleteErr error
	// afterPut runs once a put has stored the object.
	afterPut      func()
	deleteCtxErrs []error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string]storage.Object)}
}

func (f *fakeBlobStore) Put(_ context.Context, path string, body io.Reader, _ int64, _ string) error {
	f.mu.Lock()
	f.puts = append(f.puts, path)
	if f.putErr != nil {
		f.mu.Unlock()
		return f.putErr
	}
	if _, exists := f.objects[path]; exists {
		f.mu.Unlock()
		return notes_errors.Wrap(notes_errors.ErrConflict, "exists", nil)
	}
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, body)
	f.objects[path] = storage.Object{Key: path, Size: int64(buf.Len()), LastModified: time.Now()}
	hook := f.afterPut
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, path)
	f.deleteCtxErrs = append(f.deleteCtxErrs, ctx.Err())
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, path)
	return nil
}

func (f *fakeBlobStore) List(_ context.Context, prefix string, fn func(storage.Object) error) error {
	f.mu.Lock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	f.mu.Unlock()
	sort.Strings(keys)
	for _, k := range keys {
		if prefix != "" && len(k) >= len(prefix) && k[:len(prefix)] != prefix {
			continue
		}
		if err := fn(f.objects[k]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeBlobStore) PublicURL(path string) string {
	return storage.PublicURL("https://cdn.test", "notes", path)
}

func (f *fakeBlobStore) has(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[path]
	return ok
}

type fakeCatalogCache struct {
	courses     []course.Course
	present     bool
	getErr      error
	sets        int
	invalidates int
}

func (f *fakeCatalogCache) GetCatalog(context.Context) ([]course.Course, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.courses, f.present, nil
}

func (f *fakeCatalogCache) SetCatalog(_ context.Context, courses []course.Course) error {
	f.sets++
	f.courses, f.present = courses, true
	return nil
}

func (f *fakeCatalogCache) InvalidateCatalog(context.Context) error {
	f.invalidates++
	f.courses, f.present = nil, false
	return nil
}

type recordingPublisher struct {
	events []events.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.ChangeEvent) error {
	p.events = append(p.events, e)
	return p.err
}

var testEpoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testCourse(code string, offset time.Duration) course.Course {
	return course.Course{ID: uuid.New(), Code: code, CreatedAt: testEpoch.Add(offset)}
}
