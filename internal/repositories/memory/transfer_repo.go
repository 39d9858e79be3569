package memory

import (
	"context"
	"sync"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
)

type TransferRepo struct {
	mu        sync.Mutex
	bySession map[string]models.KnowledgeTransferRecord
}

var _ repositories.TransferRepository = (*TransferRepo)(nil)

func NewTransferRepo() *TransferRepo {
	return &TransferRepo{bySession: make(map[string]models.KnowledgeTransferRecord)}
}

func (r *TransferRepo) Insert(_ context.Context, rec *models.KnowledgeTransferRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySession[rec.SourceSessionID]; ok {
		return utils.ErrConflict
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	cp := *rec
	cp.Points = append([]models.KnowledgePoint(nil), rec.Points...)
	r.bySession[rec.SourceSessionID] = cp
	return nil
}

func (r *TransferRepo) GetBySession(_ context.Context, sessionID string) (*models.KnowledgeTransferRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.bySession[sessionID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &rec, nil
}

// Count reports how many records exist.
func (r *TransferRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bySession)
}
