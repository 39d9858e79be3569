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

type SessionService interface {
	Create(ctx context.Context, userID, avatarID, scenarioID string) (*models.Session, error)
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	// Complete moves an active session to completed and triggers the knowledge
	// transfer once. Completing a completed session returns it unchanged.
	Complete(ctx context.Context, sessionID string) (*models.Session, error)
}

type SessionDeps struct {
	Sessions   repositories.SessionRepository
	Catalog    catalog.Catalog
	Locks      *SessionLocks
	Dispatcher TransferDispatcher
	Events     EventPublisher
	Archiver   *TranscriptArchiver // optional
	Logger     *logrus.Logger
}

type sessionService struct {
	SessionDeps
}

func NewSessionService(d SessionDeps) SessionService {
	if d.Locks == nil {
		d.Locks = NewSessionLocks()
	}
	if d.Events == nil {
		d.Events = NopEvents{}
	}
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	return &sessionService{SessionDeps: d}
}

func (s *sessionService) Create(ctx context.Context, userID, avatarID, scenarioID string) (*models.Session, error) {
	const op = "SessionService.Create"

	userID, avatarID = strings.TrimSpace(userID), strings.TrimSpace(avatarID)
	if userID == "" || avatarID == "" || scenarioID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id, avatar_id, and scenario_id are required", nil)
	}
	if _, err := s.Catalog.Get(scenarioID); err != nil {
		return nil, utils.E(utils.CodeScenarioNotFound, op, "scenario not found", err)
	}

	session := &models.Session{
		SessionID:  uuid.NewString(),
		UserID:     userID,
		AvatarID:   avatarID,
		ScenarioID: scenarioID,
		Status:     models.SessionActive,
		Messages:   []models.Message{},
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Sessions.Create(ctx, session); err != nil {
		return nil, utils.E(utils.CodeStoreUnavailable, op, "failed to create session", err)
	}

	s.Logger.WithFields(logrus.Fields{
		"session_id":  session.SessionID,
		"avatar_id":   avatarID,
		"scenario_id": scenarioID,
	}).Info("training session created")
	return session, nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	const op = "SessionService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	return loadSession(ctx, s.Sessions, op, sessionID)
}

func (s *sessionService) Complete(ctx context.Context, sessionID string) (*models.Session, error) {
	const op = "SessionService.Complete"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	release, err := s.Locks.Acquire(ctx, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeTimeout, op, "gave up waiting for session", err)
	}
	defer release()

	sess, err := loadSession(ctx, s.Sessions, op, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Active() {
		return sess, nil
	}

	sc, _ := s.Catalog.Get(sess.ScenarioID)
	// stores keep millisecond timestamps; repeated calls must return the same summary
	now := time.Now().UTC().Truncate(time.Millisecond)
	summary := buildSummary(sess, sc, now)

	changed, err := s.Sessions.Complete(ctx, sessionID, summary, now)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeSessionNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeStoreUnavailable, op, "failed to complete session", err)
	}
	if !changed {
		// completed elsewhere between our read and write
		return loadSession(ctx, s.Sessions, op, sessionID)
	}

	sess.Status = models.SessionCompleted
	sess.Summary = &summary
	sess.CompletedAt = &now

	log := s.Logger.WithField("session_id", sessionID)
	log.WithFields(logrus.Fields{
		"turns":           summary.TurnCount,
		"average_quality": summary.AverageQuality,
		"corrections":     summary.CorrectionCount,
	}).Info("training session completed")

	if s.Dispatcher != nil {
		s.Dispatcher.Dispatch(ctx, sess.Clone())
	}
	if s.Archiver != nil {
		if where, err := s.Archiver.Archive(ctx, sess); err != nil {
			log.WithError(err).Warn("transcript archive failed")
		} else {
			log.WithField("object", where).Debug("transcript archived")
		}
	}
	if err := s.Events.Publish(ctx, SessionEvent{Type: EventSessionCompleted, SessionID: sessionID, Summary: &summary}); err != nil {
		log.WithError(err).Warn("failed to publish completion event")
	}
	return sess, nil
}

func loadSession(ctx context.Context, repo repositories.SessionRepository, op, sessionID string) (*models.Session, error) {
	sess, err := repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeSessionNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeStoreUnavailable, op, "failed to get session", err)
	}
	return sess, nil
}
