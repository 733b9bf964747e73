package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"studynotes/config"
	"studynotes/internal/domain/content"
	"studynotes/internal/storage"
	notes_errors "studynotes/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func useTempDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.db")
	prev := openDB
	openDB = func(*config.Config) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormlogger.Discard, TranslateError: true})
	}
	t.Cleanup(func() { openDB = prev })
	return path
}

func testConfig() *config.Config {
	return &config.Config{AppMode: "test", Upload: config.UploadConfig{OrphanGracePeriod: time.Hour}}
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(cfg)
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCoursesLifecycle(t *testing.T) {
	useTempDB(t)
	cfg := testConfig()

	if _, err := run(t, cfg, "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	out, err := run(t, cfg, "seed")
	if err != nil || !strings.Contains(out, "seeded 5 courses (0 already present)") {
		t.Fatalf("seed: out=%q err=%v", out, err)
	}
	out, err = run(t, cfg, "seed")
	if err != nil || !strings.Contains(out, "seeded 0 courses (5 already present)") {
		t.Fatalf("reseed: out=%q err=%v", out, err)
	}

	out, err = run(t, cfg, "courses", "add", "engl 1101", "--professor", "Dr. Reed")
	if err != nil || !strings.Contains(out, "created ENGL1101") {
		t.Fatalf("add: out=%q err=%v", out, err)
	}
	_, err = run(t, cfg, "courses", "add", "ENGL-1101")
	if !errors.Is(err, notes_errors.ErrAlreadyExists) {
		t.Fatalf("duplicate add: want=%v got=%v", notes_errors.ErrAlreadyExists, err)
	}

	out, err = run(t, cfg, "--json", "courses", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var listed []courseOutput
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 6 || listed[5].Code != "ENGL1101" || listed[5].Professor != "Dr. Reed" {
		t.Fatalf("listed: %+v", listed)
	}
}

type memBlobs struct {
	objects map[string]storage.Object
	deleted []string
}

func (m *memBlobs) Put(context.Context, string, io.Reader, int64, string) error { return nil }

func (m *memBlobs) Delete(_ context.Context, path string) error {
	m.deleted = append(m.deleted, path)
	delete(m.objects, path)
	return nil
}

func (m *memBlobs) PublicURL(string) string { return "" }

func (m *memBlobs) List(_ context.Context, prefix string, fn func(storage.Object) error) error {
	for k, obj := range m.objects {
		if strings.HasPrefix(k, prefix) {
			if err := fn(obj); err != nil {
				return err
			}
		}
	}
	return nil
}

func TestOrphansSweep(t *testing.T) {
	useTempDB(t)
	cfg := testConfig()
	if _, err := run(t, cfg, "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	old := time.Now().Add(-48 * time.Hour)
	kept := "owner/kept.pdf"
	blobs := &memBlobs{objects: map[string]storage.Object{
		kept:              {Key: kept, LastModified: old},
		"owner/gone.pdf":  {Key: "owner/gone.pdf", LastModified: old},
		"owner/fresh.pdf": {Key: "owner/fresh.pdf", LastModified: time.Now()},
	}}
	prev := openBlobs
	openBlobs = func(context.Context, config.ObjectStoreConfig) (storage.Backend, func() error, error) {
		return blobs, func() error { return nil }, nil
	}
	t.Cleanup(func() { openBlobs = prev })

	db, err := openDB(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := db.Create(&content.Item{
		ID:       uuid.New(),
		OwnerID:  uuid.New(),
		CourseID: uuid.New(),
		Title:    "kept",
		BlobPath: sql.NullString{String: kept, Valid: true},
	}).Error; err != nil {
		t.Fatalf("insert item: %v", err)
	}

	out, err := run(t, cfg, "orphans", "sweep", "--dry-run")
	if err != nil || !strings.Contains(out, "dry run: scanned 3 blobs, 1 orphaned") {
		t.Fatalf("dry run: out=%q err=%v", out, err)
	}
	if len(blobs.deleted) != 0 {
		t.Fatalf("dry run deleted %v", blobs.deleted)
	}

	out, err = run(t, cfg, "orphans", "sweep")
	if err != nil || !strings.Contains(out, "deleted 1 of 1 orphaned") {
		t.Fatalf("sweep: out=%q err=%v", out, err)
	}
	if len(blobs.deleted) != 1 || blobs.deleted[0] != "owner/gone.pdf" {
		t.Fatalf("deleted: %v", blobs.deleted)
	}
}
