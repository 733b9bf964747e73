package course

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Course represents courses. Code is stored as entered by whoever created the
// row; readers normalize it before comparing.
type Course struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Code      string         `gorm:"not null;index"`
	Professor sql.NullString `gorm:"type:text"`
	School    sql.NullString `gorm:"type:text"`
	CreatedAt time.Time      `gorm:"not null"`
}

func (Course) TableName() string {
	return "courses"
}
