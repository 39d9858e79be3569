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

type sessionRepo struct {
	col *mongo.Collection
}

var _ repositories.SessionRepository = (*sessionRepo)(nil)

func NewSessionRepo(db *mongo.Database) repositories.SessionRepository {
	return &sessionRepo{col: db.Collection("sessions")}
}

func (r *sessionRepo) Create(ctx context.Context, s *models.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Messages == nil {
		// $size and $push need an array, not null
		s.Messages = []models.Message{}
	}
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *sessionRepo) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	var s models.Session
	err := r.col.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *sessionRepo) AppendMessages(ctx context.Context, sessionID string, expectedLen int, msgs ...models.Message) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{
			"session_id": sessionID,
			"status":     models.SessionActive,
			"messages":   bson.M{"$size": expectedLen},
		},
		bson.M{"$push": bson.M{"messages": bson.M{"$each": msgs}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, sessionID)
	}
	return nil
}

func (r *sessionRepo) AttachCorrection(ctx context.Context, sessionID, messageID string, c models.Correction) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{
			"session_id": sessionID,
			"messages": bson.M{"$elemMatch": bson.M{
				"message_id": messageID,
				"role":       models.RoleAvatar,
				"correction": bson.M{"$exists": false},
			}},
		},
		bson.M{"$set": bson.M{"messages.$.correction": c}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	s, err := r.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	m := s.Message(messageID)
	if m == nil || m.Role != models.RoleAvatar {
		return utils.ErrNotFound
	}
	return utils.ErrConflict
}

func (r *sessionRepo) Complete(ctx context.Context, sessionID string, summary models.SessionSummary, completedAt time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "status": models.SessionActive},
		bson.M{"$set": bson.M{
			"status":       models.SessionCompleted,
			"summary":      summary,
			"completed_at": completedAt.UTC(),
		}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	if _, err := r.Get(ctx, sessionID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *sessionRepo) missOrConflict(ctx context.Context, sessionID string) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return err
	}
	if n == 0 {
		return utils.ErrNotFound
	}
	return utils.ErrConflict
}
