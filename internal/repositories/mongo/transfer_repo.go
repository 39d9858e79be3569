package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type transferRepo struct {
	col *mongo.Collection
}

var _ repositories.TransferRepository = (*transferRepo)(nil)

func NewTransferRepo(db *mongo.Database) repositories.TransferRepository {
	return &transferRepo{col: db.Collection("knowledge_transfers")}
}

func (r *transferRepo) Insert(ctx context.Context, rec *models.KnowledgeTransferRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return utils.ErrConflict
	}
	return err
}

func (r *transferRepo) GetBySession(ctx context.Context, sessionID string) (*models.KnowledgeTransferRecord, error) {
	var rec models.KnowledgeTransferRecord
	err := r.col.FindOne(ctx, bson.M{"source_session_id": sessionID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &rec, err
}
