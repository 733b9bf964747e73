package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studynotes/internal/coursecode"
	"studynotes/internal/domain/course"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeedCourse is one catalog entry inserted by Seed.
type SeedCourse struct {
	Code      string
	Professor string
	School    string
}

// DefaultSeedCourses returns a small demo catalog.
func DefaultSeedCourses() []SeedCourse {
	return []SeedCourse{
		{Code: "CSCI1302", Professor: "Dr. Plaue", School: "University of Georgia"},
		{Code: "CSCI2610", Professor: "Dr. Barnes", School: "University of Georgia"},
		{Code: "MATH2250", Professor: "Dr. Smith", School: "University of Georgia"},
		{Code: "PHYS1211", Professor: "Dr. Kim", School: "University of Georgia"},
		{Code: "CHEM1211", Professor: "Dr. Lopez", School: "University of Georgia"},
	}
}

// SeedResult holds the result of the seeding operation
type SeedResult struct {
	Created []course.Course
	Skipped []string
}

// Seed inserts the given courses, skipping any whose canonical code is
// already present in the catalog. Safe to run repeatedly.
func Seed(ctx context.Context, db *gorm.DB, courses []SeedCourse) (*SeedResult, error) {
	if courses == nil {
		courses = DefaultSeedCourses()
	}

	var existing []course.Course
	if err := db.WithContext(ctx).Select("code").Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		seen[coursecode.Normalize(c.Code)] = struct{}{}
	}

	result := &SeedResult{}
	now := time.Now().UTC()
	for i, sc := range courses {
		code := coursecode.Normalize(sc.Code)
		if code == "" {
			return nil, fmt.Errorf("seed course %d: empty code", i)
		}
		if _, ok := seen[code]; ok {
			result.Skipped = append(result.Skipped, code)
			continue
		}
		c := course.Course{
			ID:        uuid.New(),
			Code:      code,
			Professor: nullString(sc.Professor),
			School:    nullString(sc.School),
			CreatedAt: now.Add(-time.Duration(len(courses)-i) * time.Millisecond),
		}
		if err := db.WithContext(ctx).Create(&c).Error; err != nil {
			return nil, fmt.Errorf("failed to seed course %s: %w", code, err)
		}
		seen[code] = struct{}{}
		result.Created = append(result.Created, c)
	}
	return result, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
