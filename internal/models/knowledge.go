package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

const (
	KnowledgeAvatarResponse    = "avatar_response"
	KnowledgeTrainingObjective = "training_objective"

	TransferCompleted = "completed"
	TransferSkipped   = "skipped"
	TransferFailed    = "failed"
)

type KnowledgePoint struct {
	Type      string    `bson:"type" json:"type"` // avatar_response|training_objective
	Content   string    `bson:"content" json:"content"`
	Quality   int       `bson:"quality" json:"quality"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// KnowledgeTransferRecord is append-only; one per completed session.
type KnowledgeTransferRecord struct {
	TransferID      string           `bson:"transfer_id" json:"transfer_id"`
	SourceSessionID string           `bson:"source_session_id" json:"source_session_id"`
	AvatarID        string           `bson:"avatar_id" json:"avatar_id"`
	TargetPlatform  string           `bson:"target_platform" json:"target_platform"`
	Points          []KnowledgePoint `bson:"points" json:"points"`
	Status          string           `bson:"status" json:"status"` // completed|skipped|failed
	Reason          string           `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt       time.Time        `bson:"created_at" json:"created_at"`
}

// KnowledgeEntry is a published point in a target platform's knowledge base.
type KnowledgeEntry struct {
	ID              string           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Platform        string           `gorm:"column:platform;type:text;index" json:"platform"`
	AvatarID        string           `gorm:"column:avatar_id;type:text;index" json:"avatar_id"`
	SourceSessionID string           `gorm:"column:source_session_id;type:text;index" json:"source_session_id"`
	Type            string           `gorm:"column:type;type:text" json:"type"`
	Content         string           `gorm:"column:content;type:text" json:"content"`
	Quality         int              `gorm:"column:quality" json:"quality"`
	Tags            pq.StringArray   `gorm:"column:tags;type:text[]" json:"tags"`
	Embedding       *pgvector.Vector `gorm:"column:embedding;type:vector(768)" json:"-"`
	Metadata        datatypes.JSON   `gorm:"column:metadata;type:jsonb" json:"metadata"`
	Timestamp       time.Time        `gorm:"column:timestamp;type:timestamptz;index" json:"timestamp"`
}

func (KnowledgeEntry) TableName() string { return "knowledge_entries" }
