package postgres

import (
	"context"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"gorm.io/gorm"
)

type knowledgeRepo struct {
	db *gorm.DB
}

var _ repositories.KnowledgeRepository = (*knowledgeRepo)(nil)

func NewKnowledgeRepo(db *gorm.DB) repositories.KnowledgeRepository {
	return &knowledgeRepo{db: db}
}

// InsertBatch writes all entries in one transaction; either every point lands or none.
func (r *knowledgeRepo) InsertBatch(ctx context.Context, entries []models.KnowledgeEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(entries, 100).Error
	})
}

func (r *knowledgeRepo) ListByPlatform(ctx context.Context, platform, avatarID string, limit int) ([]models.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	q := r.db.WithContext(ctx).Where("platform = ?", platform)
	if avatarID != "" {
		q = q.Where("avatar_id = ?", avatarID)
	}
	var rows []models.KnowledgeEntry
	err := q.Order("timestamp DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
