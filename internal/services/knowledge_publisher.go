package services

import (
	"context"
	"encoding/json"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/providers/llm"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// KnowledgeBasePublisher stores transferred points as knowledge entries,
// embedding each one when an embedder is configured.
type KnowledgeBasePublisher struct {
	entries  repositories.KnowledgeRepository
	embedder llm.Embedder
	log      *logrus.Logger
}

func NewKnowledgeBasePublisher(entries repositories.KnowledgeRepository, embedder llm.Embedder, log *logrus.Logger) *KnowledgeBasePublisher {
	if log == nil {
		log = logrus.New()
	}
	return &KnowledgeBasePublisher{entries: entries, embedder: embedder, log: log}
}

func (p *KnowledgeBasePublisher) Publish(ctx context.Context, rec *models.KnowledgeTransferRecord) error {
	const op = "KnowledgeBasePublisher.Publish"

	if len(rec.Points) == 0 {
		return nil
	}

	meta, err := json.Marshal(map[string]string{
		"transfer_id": rec.TransferID,
		"source":      "avatar_training",
	})
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to encode metadata", err)
	}

	rows := make([]models.KnowledgeEntry, 0, len(rec.Points))
	for _, pt := range rec.Points {
		row := models.KnowledgeEntry{
			ID:              uuid.NewString(),
			Platform:        rec.TargetPlatform,
			AvatarID:        rec.AvatarID,
			SourceSessionID: rec.SourceSessionID,
			Type:            pt.Type,
			Content:         pt.Content,
			Quality:         pt.Quality,
			Tags:            []string{pt.Type, rec.AvatarID},
			Metadata:        datatypes.JSON(meta),
			Timestamp:       pt.Timestamp,
		}
		if p.embedder != nil {
			vec, err := p.embedder.Embed(ctx, pt.Content)
			if err != nil {
				// entries stay searchable by text
				p.log.WithError(err).WithField("transfer_id", rec.TransferID).Warn("embedding failed")
			} else {
				v := pgvector.NewVector(vec)
				row.Embedding = &v
			}
		}
		rows = append(rows, row)
	}

	if err := p.entries.InsertBatch(ctx, rows); err != nil {
		return utils.E(utils.CodeStoreUnavailable, op, "failed to insert knowledge entries", err)
	}
	return nil
}
