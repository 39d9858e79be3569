package models

import "time"

const (
	RoleCustomer = "customer"
	RoleAvatar   = "avatar"

	SourceGenerated = "generated"
	SourceLearned   = "learned"
	SourceChoice    = "choice"
)

type Message struct {
	ID      string `bson:"message_id" json:"message_id"`
	Index   int    `bson:"index" json:"index"`
	Role    string `bson:"role" json:"role"` // customer|avatar
	Content string `bson:"content" json:"content"`

	// customer turns
	Emotion Mood `bson:"emotion,omitempty" json:"emotion,omitempty"`

	// avatar turns
	QualityScore *int        `bson:"quality_score,omitempty" json:"quality_score,omitempty"`
	Choices      []string    `bson:"choices,omitempty" json:"choices,omitempty"`
	Fingerprint  string      `bson:"fingerprint,omitempty" json:"fingerprint,omitempty"`
	Correction   *Correction `bson:"correction,omitempty" json:"correction,omitempty"`

	Source    string    `bson:"source,omitempty" json:"source,omitempty"` // generated|learned|choice
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// EffectiveScore prefers the reviewer-improved score over the original one.
func (m *Message) EffectiveScore() int {
	if m.Correction != nil {
		return m.Correction.ImprovedScore
	}
	if m.QualityScore != nil {
		return *m.QualityScore
	}
	return 0
}

// EffectiveContent prefers the reviewer-improved content over the original one.
func (m *Message) EffectiveContent() string {
	if m.Correction != nil && m.Correction.ImprovedContent != "" {
		return m.Correction.ImprovedContent
	}
	return m.Content
}

func (m Message) Clone() Message {
	out := m
	if m.QualityScore != nil {
		v := *m.QualityScore
		out.QualityScore = &v
	}
	out.Choices = append([]string(nil), m.Choices...)
	if m.Correction != nil {
		c := *m.Correction
		out.Correction = &c
	}
	return out
}

// Correction is attached at most once to an avatar message and never replaced.
type Correction struct {
	ReviewerID      string    `bson:"reviewer_id" json:"reviewer_id"`
	Comment         string    `bson:"comment" json:"comment"`
	Rating          int       `bson:"rating" json:"rating"` // 1..5, metadata only
	ImprovedContent string    `bson:"improved_content" json:"improved_content"`
	ImprovedScore   int       `bson:"improved_score" json:"improved_score"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}

func IntPtr(v int) *int { return &v }
