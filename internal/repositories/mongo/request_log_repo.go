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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// requestLogTTL bounds how long a remembered request id survives even when the
// session sees no further traffic.
const requestLogTTL = 24 * time.Hour

type requestLogRepo struct {
	col *mongo.Collection
}

var _ repositories.RequestLog = (*requestLogRepo)(nil)

func NewRequestLogRepo(db *mongo.Database) repositories.RequestLog {
	return &requestLogRepo{col: db.Collection("request_log")}
}

func (r *requestLogRepo) Lookup(ctx context.Context, sessionID, requestID string) (*models.RequestRecord, error) {
	var rec models.RequestRecord
	err := r.col.FindOne(ctx, bson.M{"session_id": sessionID, "request_id": requestID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &rec, err
}

func (r *requestLogRepo) Record(ctx context.Context, rec *models.RequestRecord, window int) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.Seq == 0 {
		rec.Seq = now.UnixNano()
	}
	rec.ExpiresAt = rec.CreatedAt.Add(requestLogTTL)

	if _, err := r.col.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return err
	}
	if window <= 0 {
		return nil
	}

	// find the newest entry that falls outside the window, then drop it and everything older
	var oldest models.RequestRecord
	err := r.col.FindOne(ctx,
		bson.M{"session_id": rec.SessionID},
		options.FindOne().
			SetSort(bson.D{{Key: "seq", Value: -1}}).
			SetSkip(int64(window)),
	).Decode(&oldest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = r.col.DeleteMany(ctx, bson.M{
		"session_id": rec.SessionID,
		"seq":        bson.M{"$lte": oldest.Seq},
	})
	return err
}
