package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

type Session struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID  string             `bson:"session_id" json:"session_id"` // uuid v4
	UserID     string             `bson:"user_id" json:"user_id"`
	AvatarID   string             `bson:"avatar_id" json:"avatar_id"`
	ScenarioID string             `bson:"scenario_id" json:"scenario_id"`

	Status   string    `bson:"status" json:"status"` // active|completed
	Messages []Message `bson:"messages" json:"messages"`

	Summary *SessionSummary `bson:"summary,omitempty" json:"summary,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

func (s *Session) Active() bool { return s.Status == SessionActive }

// Message returns the message with the given id, or nil.
func (s *Session) Message(messageID string) *Message {
	for i := range s.Messages {
		if s.Messages[i].ID == messageID {
			return &s.Messages[i]
		}
	}
	return nil
}

// LastAvatarMessage returns the most recent avatar turn, or nil when none exists.
func (s *Session) LastAvatarMessage() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAvatar {
			return &s.Messages[i]
		}
	}
	return nil
}

// Clone returns a deep copy safe to hand to callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		out.Messages[i] = m.Clone()
	}
	if s.Summary != nil {
		sum := *s.Summary
		if s.Summary.ObjectivesTouched != nil {
			sum.ObjectivesTouched = make([]string, len(s.Summary.ObjectivesTouched))
			copy(sum.ObjectivesTouched, s.Summary.ObjectivesTouched)
		}
		out.Summary = &sum
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

type SessionSummary struct {
	TurnCount         int       `bson:"turn_count" json:"turn_count"`
	AverageQuality    float64   `bson:"average_quality" json:"average_quality"`
	ObjectivesTouched []string  `bson:"objectives_touched" json:"objectives_touched"`
	CorrectionCount   int       `bson:"correction_count" json:"correction_count"`
	CompletedAt       time.Time `bson:"completed_at" json:"completed_at"`
}
