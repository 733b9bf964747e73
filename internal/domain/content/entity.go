package content

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Item represents content_items. ID is allocated by the upload coordinator
// before any write and doubles as the blob path component.
type Item struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	OwnerID   uuid.UUID      `gorm:"type:uuid;not null;index"`
	CourseID  uuid.UUID      `gorm:"type:uuid;not null;index"`
	Title     string         `gorm:"not null"`
	Body      sql.NullString `gorm:"type:text"`
	BlobPath  sql.NullString `gorm:"type:text;uniqueIndex"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

func (Item) TableName() string {
	return "content_items"
}

// Engagement represents engagement, one row per (item, voter).
type Engagement struct {
	ContentItemID uuid.UUID `gorm:"type:uuid;primaryKey"`
	VoterID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (Engagement) TableName() string {
	return "engagement"
}
