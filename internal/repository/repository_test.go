package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"studynotes/internal/domain/content"
	"studynotes/internal/domain/course"
	notes_errors "studynotes/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&course.Course{}, &content.Item{}, &content.Engagement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func mustCourse(t *testing.T, repo CourseRepository, code string, offset time.Duration) course.Course {
	t.Helper()
	c := course.Course{
		ID:        uuid.New(),
		Code:      code,
		Professor: sql.NullString{String: "Dr. " + code, Valid: true},
		CreatedAt: baseTime.Add(offset),
	}
	if err := repo.Create(context.Background(), &c); err != nil {
		t.Fatalf("create course %s: %v", code, err)
	}
	return c
}

func mustItem(t *testing.T, repo ContentRepository, owner, courseID uuid.UUID, title, body string, offset time.Duration) content.Item {
	t.Helper()
	id := uuid.New()
	item := content.Item{
		ID:        id,
		OwnerID:   owner,
		CourseID:  courseID,
		Title:     title,
		Body:      sql.NullString{String: body, Valid: body != ""},
		BlobPath:  sql.NullString{String: owner.String() + "/" + id.String() + ".pdf", Valid: true},
		CreatedAt: baseTime.Add(offset),
	}
	if err := repo.Create(context.Background(), &item); err != nil {
		t.Fatalf("create item %s: %v", title, err)
	}
	return item
}

func TestCourseRepositoryListCatalogOrdersOldestFirst(t *testing.T) {
	db := openTestDB(t)
	repo := NewCourseRepository(db)
	second := mustCourse(t, repo, "cs-101", 2*time.Minute)
	first := mustCourse(t, repo, "CS101", time.Minute)

	got, err := repo.ListCatalog(context.Background())
	if err != nil {
		t.Fatalf("list catalog: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("catalog size: want=2 got=%d", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatalf("catalog order: want=[%s %s] got=[%s %s]", first.ID, second.ID, got[0].ID, got[1].ID)
	}
	if !got[0].Professor.Valid || got[0].School.Valid {
		t.Fatalf("nullable columns not preserved: %+v", got[0])
	}
}

func TestContentRepositoryCreateDuplicateID(t *testing.T) {
	db := openTestDB(t)
	courses := NewCourseRepository(db)
	repo := NewContentRepository(db)
	c := mustCourse(t, courses, "CS101", 0)
	item := mustItem(t, repo, uuid.New(), c.ID, "Notes", "body", 0)

	dup := item
	dup.BlobPath = sql.NullString{String: "other/path.pdf", Valid: true}
	err := repo.Create(context.Background(), &dup)
	if !errors.Is(err, notes_errors.ErrAlreadyExists) {
		t.Fatalf("duplicate id: want=%v got=%v", notes_errors.ErrAlreadyExists, err)
	}
}

func TestContentRepositoryGetByID(t *testing.T) {
	db := openTestDB(t)
	repo := NewContentRepository(db)
	c := mustCourse(t, NewCourseRepository(db), "CS101", 0)
	item := mustItem(t, repo, uuid.New(), c.ID, "Notes", "", 0)

	got, err := repo.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Notes" || got.Body.Valid {
		t.Fatalf("unexpected item: %+v", got)
	}

	_, err = repo.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, notes_errors.ErrNotFound) {
		t.Fatalf("missing item: want=%v got=%v", notes_errors.ErrNotFound, err)
	}
}

func TestContentRepositoryListFeedFiltersAndOrders(t *testing.T) {
	db := openTestDB(t)
	courses := NewCourseRepository(db)
	repo := NewContentRepository(db)
	ctx := context.Background()

	cs := mustCourse(t, courses, "CS101", 0)
	csDup := mustCourse(t, courses, "cs 101", time.Second)
	math := mustCourse(t, courses, "MATH2250", 2*time.Second)
	owner := uuid.New()

	old := mustItem(t, repo, owner, cs.ID, "Recursion basics", "trees and lists", time.Minute)
	mid := mustItem(t, repo, owner, csDup.ID, "Pointers", "Memory LAYOUT cheatsheet", 2*time.Minute)
	newest := mustItem(t, repo, uuid.New(), math.ID, "Integrals", "layout of proofs", 3*time.Minute)

	all, err := repo.ListFeed(ctx, FeedFilter{Limit: 50})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	wantOrder := []uuid.UUID{newest.ID, mid.ID, old.ID}
	if len(all) != len(wantOrder) {
		t.Fatalf("all size: want=%d got=%d", len(wantOrder), len(all))
	}
	for i, id := range wantOrder {
		if all[i].ID != id {
			t.Fatalf("order[%d]: want=%s got=%s", i, id, all[i].ID)
		}
	}
	if !all[0].CourseCode.Valid || all[0].CourseCode.String != "MATH2250" {
		t.Fatalf("joined course code: got=%+v", all[0].CourseCode)
	}

	scoped, err := repo.ListFeed(ctx, FeedFilter{CourseIDs: []uuid.UUID{cs.ID, csDup.ID}, Limit: 50})
	if err != nil {
		t.Fatalf("list scoped: %v", err)
	}
	if len(scoped) != 2 {
		t.Fatalf("scoped size: want=2 got=%d", len(scoped))
	}
	for _, row := range scoped {
		if row.CourseID != cs.ID && row.CourseID != csDup.ID {
			t.Fatalf("row outside course set: %+v", row)
		}
	}

	searched, err := repo.ListFeed(ctx, FeedFilter{Search: "layout", Limit: 50})
	if err != nil {
		t.Fatalf("list search: %v", err)
	}
	if len(searched) != 2 || searched[0].ID != newest.ID || searched[1].ID != mid.ID {
		t.Fatalf("search by body: got=%v", feedIDs(searched))
	}

	byTitle, err := repo.ListFeed(ctx, FeedFilter{Search: "RECUR", Limit: 50})
	if err != nil {
		t.Fatalf("list title search: %v", err)
	}
	if len(byTitle) != 1 || byTitle[0].ID != old.ID {
		t.Fatalf("search by title: got=%v", feedIDs(byTitle))
	}

	mine, err := repo.ListFeed(ctx, FeedFilter{OwnerID: uuid.NullUUID{UUID: owner, Valid: true}, Limit: 50})
	if err != nil {
		t.Fatalf("list owner: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("owner size: want=2 got=%d", len(mine))
	}

	capped, err := repo.ListFeed(ctx, FeedFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list capped: %v", err)
	}
	if len(capped) != 2 || capped[0].ID != newest.ID {
		t.Fatalf("capped: got=%v", feedIDs(capped))
	}

	none, err := repo.ListFeed(ctx, FeedFilter{CourseIDs: []uuid.UUID{}, Limit: 50})
	if err != nil {
		t.Fatalf("list empty set: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("empty course set: want=0 got=%d", len(none))
	}
}

func TestContentRepositoryListFeedSearchEscapesWildcards(t *testing.T) {
	db := openTestDB(t)
	repo := NewContentRepository(db)
	c := mustCourse(t, NewCourseRepository(db), "CS101", 0)
	owner := uuid.New()
	hit := mustItem(t, repo, owner, c.ID, "100% pass rate", "", 0)
	mustItem(t, repo, owner, c.ID, "1000 pass rate", "", time.Second)

	rows, err := repo.ListFeed(context.Background(), FeedFilter{Search: "100%", Limit: 50})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != hit.ID {
		t.Fatalf("literal percent: got=%v", feedIDs(rows))
	}
}

func TestContentRepositoryListFeedMissingCourse(t *testing.T) {
	db := openTestDB(t)
	repo := NewContentRepository(db)
	item := mustItem(t, repo, uuid.New(), uuid.New(), "Orphaned course", "", 0)

	rows, err := repo.ListFeed(context.Background(), FeedFilter{Limit: 50})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != item.ID {
		t.Fatalf("rows: got=%v", feedIDs(rows))
	}
	if rows[0].CourseCode.Valid {
		t.Fatalf("course code should be null: %+v", rows[0].CourseCode)
	}
}

func TestContentRepositoryReferencedBlobPaths(t *testing.T) {
	db := openTestDB(t)
	repo := NewContentRepository(db)
	item := mustItem(t, repo, uuid.New(), uuid.New(), "Notes", "", 0)

	found, err := repo.ReferencedBlobPaths(context.Background(), []string{item.BlobPath.String, "nobody/orphan.pdf"})
	if err != nil {
		t.Fatalf("referenced: %v", err)
	}
	if _, ok := found[item.BlobPath.String]; !ok || len(found) != 1 {
		t.Fatalf("referenced paths: got=%v", found)
	}
}

func TestContentRepositoryTextItemsStoreNullBlobPath(t *testing.T) {
	db := openTestDB(t)
	repo := NewContentRepository(db)
	c := mustCourse(t, NewCourseRepository(db), "CS101", 0)
	owner := uuid.New()
	for i, title := range []string{"Study group", "Office hours"} {
		item := content.Item{ID: uuid.New(), OwnerID: owner, CourseID: c.ID, Title: title, CreatedAt: baseTime.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(context.Background(), &item); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}

	var nulls int64
	if err := db.Model(&content.Item{}).Where("blob_path IS NULL").Count(&nulls).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if nulls != 2 {
		t.Fatalf("rows with null blob_path: want=2 got=%d", nulls)
	}
	rows, err := repo.ListFeed(context.Background(), FeedFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || rows[0].BlobPath.Valid || rows[0].Title != "Office hours" {
		t.Fatalf("rows: %+v", rows)
	}
}

func TestEngagementRepositoryAddRemoveCount(t *testing.T) {
	db := openTestDB(t)
	repo := NewEngagementRepository(db)
	ctx := context.Background()
	a, b, untouched := uuid.New(), uuid.New(), uuid.New()
	voter1, voter2 := uuid.New(), uuid.New()

	for _, v := range []struct {
		item, voter uuid.UUID
		want        bool
	}{
		{a, voter1, true},
		{a, voter2, true},
		{a, voter1, false},
		{b, voter1, true},
	} {
		added, err := repo.Add(ctx, v.item, v.voter)
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if added != v.want {
			t.Fatalf("add(%s,%s): want=%v got=%v", v.item, v.voter, v.want, added)
		}
	}

	counts, err := repo.CountByItems(ctx, []uuid.UUID{a, b, untouched})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[a] != 2 || counts[b] != 1 || counts[untouched] != 0 {
		t.Fatalf("counts: got=%v", counts)
	}

	removed, err := repo.Remove(ctx, a, voter2)
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	removed, err = repo.Remove(ctx, a, voter2)
	if err != nil || removed {
		t.Fatalf("second remove: removed=%v err=%v", removed, err)
	}

	counts, err = repo.CountByItems(ctx, []uuid.UUID{a})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[a] != 1 {
		t.Fatalf("count after remove: want=1 got=%d", counts[a])
	}
}

func feedIDs(rows []FeedRow) []uuid.UUID {
	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}
