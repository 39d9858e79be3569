// Package sqlite stores learned responses in a local SQLite file for
// single-node deployments without Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS learned_responses (
	avatar_id          TEXT NOT NULL,
	fingerprint        TEXT NOT NULL,
	scenario_id        TEXT NOT NULL DEFAULT '',
	customer_utterance TEXT NOT NULL DEFAULT '',
	content            TEXT NOT NULL,
	quality_score      INTEGER NOT NULL DEFAULT 0,
	hit_count          INTEGER NOT NULL DEFAULT 0,
	last_used_at       INTEGER NOT NULL DEFAULT 0,
	source_session_id  TEXT NOT NULL DEFAULT '',
	source_message_id  TEXT NOT NULL DEFAULT '',
	created_at         INTEGER NOT NULL,
	updated_at         INTEGER NOT NULL,
	PRIMARY KEY (avatar_id, fingerprint)
);
CREATE INDEX IF NOT EXISTS idx_learned_scenario ON learned_responses(scenario_id);
`

type learnedResponseRepo struct {
	db *sql.DB
}

var _ repositories.LearnedResponseRepository = (*learnedResponseRepo)(nil)

// NewLearnedResponseRepo creates the schema if needed.
func NewLearnedResponseRepo(db *sql.DB) (repositories.LearnedResponseRepository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &learnedResponseRepo{db: db}, nil
}

func (r *learnedResponseRepo) Get(ctx context.Context, avatarID, fingerprint string) (*models.LearnedResponse, error) {
	var (
		lr                        models.LearnedResponse
		lastUsed, created, update int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT avatar_id, fingerprint, scenario_id, customer_utterance, content, quality_score,
		       hit_count, last_used_at, source_session_id, source_message_id, created_at, updated_at
		FROM learned_responses WHERE avatar_id = ? AND fingerprint = ?`,
		avatarID, fingerprint,
	).Scan(&lr.AvatarID, &lr.Fingerprint, &lr.ScenarioID, &lr.CustomerUtterance, &lr.Content,
		&lr.QualityScore, &lr.HitCount, &lastUsed, &lr.SourceSessionID, &lr.SourceMessageID,
		&created, &update)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	if lastUsed > 0 {
		lr.LastUsedAt = time.UnixMilli(lastUsed).UTC()
	}
	lr.CreatedAt = time.UnixMilli(created).UTC()
	lr.UpdatedAt = time.UnixMilli(update).UTC()
	return &lr, nil
}

func (r *learnedResponseRepo) Upsert(ctx context.Context, lr *models.LearnedResponse) error {
	now := time.Now().UTC()
	if lr.CreatedAt.IsZero() {
		lr.CreatedAt = now
	}
	lr.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO learned_responses (avatar_id, fingerprint, scenario_id, customer_utterance, content,
			quality_score, source_session_id, source_message_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(avatar_id, fingerprint) DO UPDATE SET
			scenario_id = excluded.scenario_id,
			customer_utterance = excluded.customer_utterance,
			content = excluded.content,
			quality_score = excluded.quality_score,
			source_session_id = excluded.source_session_id,
			source_message_id = excluded.source_message_id,
			updated_at = excluded.updated_at`,
		lr.AvatarID, lr.Fingerprint, lr.ScenarioID, lr.CustomerUtterance, lr.Content,
		lr.QualityScore, lr.SourceSessionID, lr.SourceMessageID,
		lr.CreatedAt.UnixMilli(), lr.UpdatedAt.UnixMilli(),
	)
	return classify(err)
}

func (r *learnedResponseRepo) IncrementHit(ctx context.Context, avatarID, fingerprint string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE learned_responses SET hit_count = hit_count + 1, last_used_at = ?
		WHERE avatar_id = ? AND fingerprint = ?`,
		at.UnixMilli(), avatarID, fingerprint,
	)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return utils.ErrNotFound
	}
	return nil
}

// ErrBusy wraps SQLITE_BUSY and "database is locked" failures.
var ErrBusy = errors.New("sqlite busy")

func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return err
}
