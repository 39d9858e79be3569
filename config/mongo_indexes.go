package config

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureMongoIndexes creates the indexes the repositories rely on for
// uniqueness (one session per id, one transfer per session, one record per request id).
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	sessions := db.Collection("sessions")
	_, err := sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_session_id").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_user_created"),
		},
	})
	if err != nil {
		return err
	}

	requests := db.Collection("request_log")
	_, err = requests.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_expires_at").
				SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "request_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_session_request").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "seq", Value: -1}},
			Options: options.Index().SetName("by_session_seq"),
		},
	})
	if err != nil {
		return err
	}

	transfers := db.Collection("knowledge_transfers")
	_, err = transfers.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "source_session_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_source_session").
				SetUnique(true),
		},
	})
	return err
}
