package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/catalog"
	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const objectiveQuality = 85

// KnowledgePublisher pushes extracted points to a target platform.
type KnowledgePublisher interface {
	Publish(ctx context.Context, rec *models.KnowledgeTransferRecord) error
}

type TransferConfig struct {
	TargetPlatform string
	// EligibleAvatars lists avatar ids registered for the target platform; "*" admits all.
	EligibleAvatars []string
	Threshold       int
}

// TransferBridge republishes a completed session's best content. It writes
// exactly one record per session and never returns publish failures as errors.
type TransferBridge struct {
	transfers repositories.TransferRepository
	publisher KnowledgePublisher
	catalog   catalog.Catalog
	cfg       TransferConfig
	eligible  map[string]bool
	log       *logrus.Logger
}

func NewTransferBridge(transfers repositories.TransferRepository, publisher KnowledgePublisher, cat catalog.Catalog, cfg TransferConfig, log *logrus.Logger) *TransferBridge {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 80
	}
	if log == nil {
		log = logrus.New()
	}
	eligible := make(map[string]bool, len(cfg.EligibleAvatars))
	for _, a := range cfg.EligibleAvatars {
		eligible[strings.TrimSpace(a)] = true
	}
	return &TransferBridge{
		transfers: transfers,
		publisher: publisher,
		catalog:   cat,
		cfg:       cfg,
		eligible:  eligible,
		log:       log,
	}
}

func (b *TransferBridge) isEligible(avatarID string) bool {
	return b.eligible["*"] || b.eligible[avatarID]
}

// ExtractPoints selects avatar turns scoring above the threshold plus the
// scenario objectives.
func (b *TransferBridge) ExtractPoints(s *models.Session, sc *models.ScenarioDefinition) []models.KnowledgePoint {
	var points []models.KnowledgePoint
	for i := range s.Messages {
		m := &s.Messages[i]
		if m.Role != models.RoleAvatar || m.EffectiveScore() <= b.cfg.Threshold {
			continue
		}
		ts := m.CreatedAt
		if m.Correction != nil {
			ts = m.Correction.CreatedAt
		}
		points = append(points, models.KnowledgePoint{
			Type:      models.KnowledgeAvatarResponse,
			Content:   m.EffectiveContent(),
			Quality:   m.EffectiveScore(),
			Timestamp: ts,
		})
	}
	if sc != nil {
		now := time.Now().UTC()
		for _, o := range sc.Objectives {
			points = append(points, models.KnowledgePoint{
				Type:      models.KnowledgeTrainingObjective,
				Content:   o,
				Quality:   objectiveQuality,
				Timestamp: now,
			})
		}
	}
	return points
}

// Transfer runs the bridge for a completed session. A session that already
// has a record gets that record back.
func (b *TransferBridge) Transfer(ctx context.Context, s *models.Session) (*models.KnowledgeTransferRecord, error) {
	const op = "TransferBridge.Transfer"

	if s == nil || s.Status != models.SessionCompleted {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session must be completed", nil)
	}
	if existing, err := b.transfers.GetBySession(ctx, s.SessionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeStoreUnavailable, op, "failed to read transfer log", err)
	}

	rec := &models.KnowledgeTransferRecord{
		TransferID:      uuid.NewString(),
		SourceSessionID: s.SessionID,
		AvatarID:        s.AvatarID,
		TargetPlatform:  b.cfg.TargetPlatform,
		CreatedAt:       time.Now().UTC(),
	}
	log := b.log.WithFields(logrus.Fields{
		"session_id":  s.SessionID,
		"avatar_id":   s.AvatarID,
		"transfer_id": rec.TransferID,
	})

	switch {
	case !b.isEligible(s.AvatarID):
		rec.Status = models.TransferSkipped
		rec.Reason = "avatar " + s.AvatarID + " is not eligible for platform " + b.cfg.TargetPlatform
	default:
		var sc *models.ScenarioDefinition
		if b.catalog != nil {
			sc, _ = b.catalog.Get(s.ScenarioID)
		}
		rec.Points = b.ExtractPoints(s, sc)
		if err := b.publisher.Publish(ctx, rec); err != nil {
			rec.Status = models.TransferFailed
			rec.Reason = err.Error()
			log.WithError(err).Warn("knowledge publish failed")
		} else {
			rec.Status = models.TransferCompleted
		}
	}

	if err := b.transfers.Insert(ctx, rec); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			// another worker recorded it first
			return b.transfers.GetBySession(ctx, s.SessionID)
		}
		return nil, utils.E(utils.CodeStoreUnavailable, op, "failed to record transfer", err)
	}
	log.WithFields(logrus.Fields{"status": rec.Status, "points": len(rec.Points)}).Info("knowledge transfer recorded")
	return rec, nil
}
