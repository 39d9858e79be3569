package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	EventTurnAppended       = "turn_appended"
	EventCorrectionAttached = "correction_attached"
	EventSessionCompleted   = "session_completed"
)

type SessionEvent struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"session_id"`
	Messages  []models.Message       `json:"messages,omitempty"`
	Summary   *models.SessionSummary `json:"summary,omitempty"`
	At        time.Time              `json:"at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, ev SessionEvent) error
}

func SessionChannel(sessionID string) string { return "session:" + sessionID + ":events" }

type NopEvents struct{}

func (NopEvents) Publish(context.Context, SessionEvent) error { return nil }

// RedisEvents fans session events out over pub/sub for websocket listeners.
type RedisEvents struct {
	rdb *redis.Client
}

func NewRedisEvents(rdb *redis.Client) *RedisEvents { return &RedisEvents{rdb: rdb} }

func (e *RedisEvents) Publish(ctx context.Context, ev SessionEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return e.rdb.Publish(ctx, SessionChannel(ev.SessionID), b).Err()
}
