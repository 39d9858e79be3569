package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type learnedResponseRepo struct {
	db *gorm.DB
}

var _ repositories.LearnedResponseRepository = (*learnedResponseRepo)(nil)

func NewLearnedResponseRepo(db *gorm.DB) repositories.LearnedResponseRepository {
	return &learnedResponseRepo{db: db}
}

func (r *learnedResponseRepo) Get(ctx context.Context, avatarID, fingerprint string) (*models.LearnedResponse, error) {
	var lr models.LearnedResponse
	err := r.db.WithContext(ctx).
		Where("avatar_id = ? AND fingerprint = ?", avatarID, fingerprint).
		Take(&lr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &lr, err
}

// Upsert leaves hit_count and created_at alone on conflict.
func (r *learnedResponseRepo) Upsert(ctx context.Context, lr *models.LearnedResponse) error {
	now := time.Now().UTC()
	if lr.CreatedAt.IsZero() {
		lr.CreatedAt = now
	}
	lr.UpdatedAt = now
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "avatar_id"}, {Name: "fingerprint"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"scenario_id", "customer_utterance", "content", "quality_score",
				"source_session_id", "source_message_id", "updated_at",
			}),
		}).
		Create(lr).Error
}

func (r *learnedResponseRepo) IncrementHit(ctx context.Context, avatarID, fingerprint string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.LearnedResponse{}).
		Where("avatar_id = ? AND fingerprint = ?", avatarID, fingerprint).
		Updates(map[string]any{
			"hit_count":    gorm.Expr("hit_count + 1"),
			"last_used_at": at.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}
