// Package repositories declares the storage contracts of the training core.
// Backends live in the mongo, postgres, sqlite and memory subpackages.
package repositories

import (
	"context"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, sessionID string) (*models.Session, error)

	// AppendMessages appends msgs only if the session is still active and holds
	// exactly expectedLen messages. Otherwise it returns utils.ErrConflict and
	// nothing is written.
	AppendMessages(ctx context.Context, sessionID string, expectedLen int, msgs ...models.Message) error

	// AttachCorrection sets the correction of an avatar message only if it has none.
	// A message that already carries one yields utils.ErrConflict.
	AttachCorrection(ctx context.Context, sessionID, messageID string, c models.Correction) error

	// Complete transitions active -> completed and stores the summary. It reports
	// false when the session was already completed.
	Complete(ctx context.Context, sessionID string, summary models.SessionSummary, completedAt time.Time) (bool, error)
}

type LearnedResponseRepository interface {
	Get(ctx context.Context, avatarID, fingerprint string) (*models.LearnedResponse, error)
	// Upsert replaces content and score, keeping hit count and created time.
	Upsert(ctx context.Context, lr *models.LearnedResponse) error
	// IncrementHit atomically bumps the hit count and last-used time.
	IncrementHit(ctx context.Context, avatarID, fingerprint string, at time.Time) error
}

type TransferRepository interface {
	// Insert stores a record; a second record for the same session yields utils.ErrConflict.
	Insert(ctx context.Context, rec *models.KnowledgeTransferRecord) error
	GetBySession(ctx context.Context, sessionID string) (*models.KnowledgeTransferRecord, error)
}

// RequestLog remembers the last N request ids per session.
type RequestLog interface {
	Lookup(ctx context.Context, sessionID, requestID string) (*models.RequestRecord, error)
	// Record stores rec and evicts entries older than the newest window.
	Record(ctx context.Context, rec *models.RequestRecord, window int) error
}

type KnowledgeRepository interface {
	InsertBatch(ctx context.Context, entries []models.KnowledgeEntry) error
	ListByPlatform(ctx context.Context, platform, avatarID string, limit int) ([]models.KnowledgeEntry, error)
}
