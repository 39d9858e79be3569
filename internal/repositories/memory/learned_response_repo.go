package memory

import (
	"context"
	"sync"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
)

type learnedKey struct{ avatar, fingerprint string }

type LearnedResponseRepo struct {
	mu   sync.Mutex
	rows map[learnedKey]models.LearnedResponse
}

var _ repositories.LearnedResponseRepository = (*LearnedResponseRepo)(nil)

func NewLearnedResponseRepo() *LearnedResponseRepo {
	return &LearnedResponseRepo{rows: make(map[learnedKey]models.LearnedResponse)}
}

func (r *LearnedResponseRepo) Get(_ context.Context, avatarID, fingerprint string) (*models.LearnedResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lr, ok := r.rows[learnedKey{avatarID, fingerprint}]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &lr, nil
}

func (r *LearnedResponseRepo) Upsert(_ context.Context, lr *models.LearnedResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := learnedKey{lr.AvatarID, lr.Fingerprint}
	now := time.Now().UTC()
	next := *lr
	next.UpdatedAt = now
	if prev, ok := r.rows[k]; ok {
		next.HitCount = prev.HitCount
		next.LastUsedAt = prev.LastUsedAt
		next.CreatedAt = prev.CreatedAt
	} else if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	r.rows[k] = next
	return nil
}

func (r *LearnedResponseRepo) IncrementHit(_ context.Context, avatarID, fingerprint string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := learnedKey{avatarID, fingerprint}
	lr, ok := r.rows[k]
	if !ok {
		return utils.ErrNotFound
	}
	lr.HitCount++
	lr.LastUsedAt = at.UTC()
	r.rows[k] = lr
	return nil
}

// Len reports the number of stored responses.
func (r *LearnedResponseRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}
