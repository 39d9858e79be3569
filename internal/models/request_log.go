package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestRecord remembers the outcome of a client request id within a session.
type RequestRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID string             `bson:"session_id" json:"session_id"`
	RequestID string             `bson:"request_id" json:"request_id"`
	Operation string             `bson:"operation" json:"operation"` // advance|correction|complete
	Seq       int64              `bson:"seq" json:"seq"`
	Result    []byte             `bson:"result" json:"result"` // json encoded
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`

	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
