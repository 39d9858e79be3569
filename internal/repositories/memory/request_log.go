package memory

import (
	"context"
	"sync"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
)

// RequestLog keeps the newest request records per session in insertion order.
type RequestLog struct {
	mu        sync.Mutex
	bySession map[string][]models.RequestRecord
}

var _ repositories.RequestLog = (*RequestLog)(nil)

func NewRequestLog() *RequestLog {
	return &RequestLog{bySession: make(map[string][]models.RequestRecord)}
}

func (l *RequestLog) Lookup(_ context.Context, sessionID, requestID string) (*models.RequestRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range l.bySession[sessionID] {
		if rec.RequestID == requestID {
			out := rec
			return &out, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (l *RequestLog) Record(_ context.Context, rec *models.RequestRecord, window int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	recs := l.bySession[rec.SessionID]
	for _, existing := range recs {
		if existing.RequestID == rec.RequestID {
			return nil
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	recs = append(recs, *rec)
	if window > 0 && len(recs) > window {
		recs = append([]models.RequestRecord(nil), recs[len(recs)-window:]...)
	}
	l.bySession[rec.SessionID] = recs
	return nil
}
