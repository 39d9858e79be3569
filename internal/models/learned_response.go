package models

import "time"

// LearnedResponse is keyed by (AvatarID, Fingerprint). Content is last-writer-wins;
// HitCount only grows through atomic increments.
type LearnedResponse struct {
	AvatarID          string    `gorm:"column:avatar_id;type:text;primaryKey" json:"avatar_id"`
	Fingerprint       string    `gorm:"column:fingerprint;type:text;primaryKey" json:"fingerprint"`
	ScenarioID        string    `gorm:"column:scenario_id;type:text;index" json:"scenario_id"`
	CustomerUtterance string    `gorm:"column:customer_utterance;type:text" json:"customer_utterance"`
	Content           string    `gorm:"column:content;type:text" json:"content"`
	QualityScore      int       `gorm:"column:quality_score" json:"quality_score"`
	HitCount          int64     `gorm:"column:hit_count;default:0" json:"hit_count"`
	LastUsedAt        time.Time `gorm:"column:last_used_at;type:timestamptz" json:"last_used_at"`
	SourceSessionID   string    `gorm:"column:source_session_id;type:text" json:"source_session_id"`
	SourceMessageID   string    `gorm:"column:source_message_id;type:text" json:"source_message_id"`
	CreatedAt         time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (LearnedResponse) TableName() string { return "learned_responses" }
