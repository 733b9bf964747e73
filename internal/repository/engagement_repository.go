package repository

import (
	"context"
	"time"

	"studynotes/internal/domain/content"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresEngagementRepository struct {
	db *gorm.DB
}

func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &PostgresEngagementRepository{db: db}
}

func (r *PostgresEngagementRepository) Add(ctx context.Context, itemID, voterID uuid.UUID) (bool, error) {
	row := content.Engagement{ContentItemID: itemID, VoterID: voterID, CreatedAt: time.Now().UTC()}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresEngagementRepository) Remove(ctx context.Context, itemID, voterID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("content_item_id = ? AND voter_id = ?", itemID, voterID).
		Delete(&content.Engagement{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

type engagementCount struct {
	ContentItemID uuid.UUID
	Total         int
}

func (r *PostgresEngagementRepository) CountByItems(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(itemIDs))
	if len(itemIDs) == 0 {
		return counts, nil
	}
	var rows []engagementCount
	err := r.db.WithContext(ctx).
		Model(&content.Engagement{}).
		Select("content_item_id, COUNT(*) AS total").
		Where("content_item_id IN ?", itemIDs).
		Group("content_item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ContentItemID] = row.Total
	}
	return counts, nil
}
