package memory

import (
	"context"
	"sync"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
)

type KnowledgeRepo struct {
	mu      sync.Mutex
	entries []models.KnowledgeEntry
}

var _ repositories.KnowledgeRepository = (*KnowledgeRepo)(nil)

func NewKnowledgeRepo() *KnowledgeRepo { return &KnowledgeRepo{} }

func (r *KnowledgeRepo) InsertBatch(_ context.Context, entries []models.KnowledgeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

// ListByPlatform returns newest entries first.
func (r *KnowledgeRepo) ListByPlatform(_ context.Context, platform, avatarID string, limit int) ([]models.KnowledgeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var out []models.KnowledgeEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.entries[i]
		if e.Platform != platform || (avatarID != "" && e.AvatarID != avatarID) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
