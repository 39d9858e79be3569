// Package memory holds process-local repository backends used when no
// database is configured and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
)

type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

var _ repositories.SessionRepository = (*SessionRepo)(nil)

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[string]*models.Session)}
}

func (r *SessionRepo) Create(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.SessionID]; ok {
		return utils.ErrConflict
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	r.sessions[s.SessionID] = s.Clone()
	return nil
}

func (r *SessionRepo) Get(_ context.Context, sessionID string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *SessionRepo) AppendMessages(_ context.Context, sessionID string, expectedLen int, msgs ...models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return utils.ErrNotFound
	}
	if !s.Active() || len(s.Messages) != expectedLen {
		return utils.ErrConflict
	}
	for _, m := range msgs {
		s.Messages = append(s.Messages, m.Clone())
	}
	return nil
}

func (r *SessionRepo) AttachCorrection(_ context.Context, sessionID, messageID string, c models.Correction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return utils.ErrNotFound
	}
	m := s.Message(messageID)
	if m == nil || m.Role != models.RoleAvatar {
		return utils.ErrNotFound
	}
	if m.Correction != nil {
		return utils.ErrConflict
	}
	m.Correction = &c
	return nil
}

func (r *SessionRepo) Complete(_ context.Context, sessionID string, summary models.SessionSummary, completedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return false, utils.ErrNotFound
	}
	if !s.Active() {
		return false, nil
	}
	t := completedAt.UTC()
	s.Status = models.SessionCompleted
	s.CompletedAt = &t
	s.Summary = &summary
	return true, nil
}
