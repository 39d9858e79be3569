package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/catalog"
	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/providers/llm"
	"github.com/brezcode/brezcode-platform-sub008/internal/providers/scoring"
	"github.com/brezcode/brezcode-platform-sub008/internal/providers/stt"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"github.com/sirupsen/logrus"
)

type CorrectionRequest struct {
	SessionID  string
	MessageID  string
	ReviewerID string
	Comment    string
	Rating     int // 1..5
	RequestID  string
}

type CorrectionResult struct {
	Session        *models.Session         `json:"session"`
	Message        models.Message          `json:"message"`
	Learned        *models.LearnedResponse `json:"learned_response"`
	LearningCached bool                    `json:"learning_cached"`
}

type FeedbackService interface {
	// SubmitCorrection attaches a reviewer correction to an avatar turn and
	// teaches the learned-response store. A partial error (utils.IsPartial)
	// comes with a non-nil result: the correction is stored, learning is not.
	SubmitCorrection(ctx context.Context, req CorrectionRequest) (*CorrectionResult, error)
	// SubmitVoiceCorrection transcribes a recorded comment first.
	SubmitVoiceCorrection(ctx context.Context, req CorrectionRequest, audio []byte, language string) (*CorrectionResult, error)
}

type FeedbackDeps struct {
	Sessions    repositories.SessionRepository
	Catalog     catalog.Catalog
	Learned     *LearnedStore
	Generator   llm.TextGenerator
	Scorer      scoring.Scorer
	Transcriber stt.Transcriber // optional, voice corrections only
	Locks       *SessionLocks
	Requests    repositories.RequestLog
	Events      EventPublisher
	Logger      *logrus.Logger

	GenerationTimeout time.Duration
	DedupWindow       int
}

type feedbackService struct {
	sessions    repositories.SessionRepository
	catalog     catalog.Catalog
	learned     *LearnedStore
	gen         *boundedGenerator
	scorer      scoring.Scorer
	transcriber stt.Transcriber
	locks       *SessionLocks
	dedup       *requestDedup
	events      EventPublisher
	log         *logrus.Logger
}

func NewFeedbackService(d FeedbackDeps) FeedbackService {
	if d.Locks == nil {
		d.Locks = NewSessionLocks()
	}
	if d.Events == nil {
		d.Events = NopEvents{}
	}
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	if d.GenerationTimeout <= 0 {
		d.GenerationTimeout = 20 * time.Second
	}
	return &feedbackService{
		sessions:    d.Sessions,
		catalog:     d.Catalog,
		learned:     d.Learned,
		gen:         &boundedGenerator{gen: d.Generator, timeout: d.GenerationTimeout, log: d.Logger},
		scorer:      d.Scorer,
		transcriber: d.Transcriber,
		locks:       d.Locks,
		dedup:       &requestDedup{log: d.Requests, window: d.DedupWindow, logger: d.Logger},
		events:      d.Events,
		log:         d.Logger,
	}
}

func (f *feedbackService) SubmitCorrection(ctx context.Context, req CorrectionRequest) (*CorrectionResult, error) {
	const op = "FeedbackService.SubmitCorrection"

	req.Comment = strings.TrimSpace(req.Comment)
	if req.SessionID == "" || req.MessageID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id and message_id are required", nil)
	}
	if req.Comment == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "comment is required", nil)
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "rating must be between 1 and 5", nil)
	}

	release, err := f.locks.Acquire(ctx, req.SessionID)
	if err != nil {
		return nil, utils.E(utils.CodeTimeout, op, "gave up waiting for session", err)
	}
	defer release()

	var replayed CorrectionResult
	if ok, err := f.dedup.replay(ctx, opCorrection, req.SessionID, req.RequestID, &replayed); err != nil {
		return nil, err
	} else if ok {
		return &replayed, nil
	}

	sess, err := loadSession(ctx, f.sessions, op, req.SessionID)
	if err != nil {
		return nil, err
	}
	msg := sess.Message(req.MessageID)
	if msg == nil || msg.Role != models.RoleAvatar {
		return nil, utils.E(utils.CodeMessageNotFound, op, "avatar message not found in session", nil)
	}
	if msg.Correction != nil {
		return nil, utils.E(utils.CodeCorrectionAlreadyExists, op, "message already has a correction", nil)
	}
	sc, err := f.catalog.Get(sess.ScenarioID)
	if err != nil {
		return nil, utils.E(utils.CodeScenarioNotFound, op, "scenario of session is no longer available", err)
	}

	pos := 0
	for i := range sess.Messages {
		if sess.Messages[i].ID == msg.ID {
			pos = i
			break
		}
	}
	before := sess.Messages[:pos]
	customer := ""
	if n := len(before); n > 0 && before[n-1].Role == models.RoleCustomer {
		customer = before[n-1].Content
	}

	improved, err := f.gen.generate(ctx, op, revisionPrompt(sc, before, msg.Content, req.Comment))
	if err != nil {
		return nil, err
	}
	score, err := f.scorer.Score(ctx, improved, scoring.Context{
		CustomerUtterance: customer,
		CustomerMood:      sc.CustomerMood,
		Objectives:        sc.Objectives,
	})
	if err != nil {
		return nil, utils.E(utils.CodeGenerationFailed, op, "quality scoring failed", err)
	}

	correction := models.Correction{
		ReviewerID:      req.ReviewerID,
		Comment:         req.Comment,
		Rating:          req.Rating,
		ImprovedContent: improved,
		ImprovedScore:   scoring.Clamp(score),
		CreatedAt:       time.Now().UTC(),
	}
	if err := f.sessions.AttachCorrection(ctx, sess.SessionID, msg.ID, correction); err != nil {
		switch {
		case errors.Is(err, utils.ErrConflict):
			return nil, utils.E(utils.CodeCorrectionAlreadyExists, op, "message already has a correction", err)
		case errors.Is(err, utils.ErrNotFound):
			return nil, utils.E(utils.CodeMessageNotFound, op, "avatar message not found in session", err)
		default:
			return nil, utils.E(utils.CodeStoreUnavailable, op, "failed to attach correction", err)
		}
	}
	msg.Correction = &correction

	fp := msg.Fingerprint
	if fp == "" {
		fp = utils.Fingerprint(sc.ID, sess.AvatarID, customer)
	}
	lr := &models.LearnedResponse{
		AvatarID:          sess.AvatarID,
		Fingerprint:       fp,
		ScenarioID:        sc.ID,
		CustomerUtterance: customer,
		Content:           improved,
		QualityScore:      correction.ImprovedScore,
		SourceSessionID:   sess.SessionID,
		SourceMessageID:   msg.ID,
	}

	log := f.log.WithFields(logrus.Fields{
		"session_id":  sess.SessionID,
		"message_id":  msg.ID,
		"fingerprint": fp,
	})
	learnErr := f.learned.Learn(ctx, lr)

	res := &CorrectionResult{
		Session:        sess,
		Message:        msg.Clone(),
		Learned:        lr,
		LearningCached: learnErr == nil,
	}
	if err := f.events.Publish(ctx, SessionEvent{Type: EventCorrectionAttached, SessionID: sess.SessionID, Messages: []models.Message{res.Message}}); err != nil {
		log.WithError(err).Warn("failed to publish correction event")
	}
	f.dedup.remember(ctx, opCorrection, sess.SessionID, req.RequestID, res)

	if learnErr != nil {
		log.WithError(learnErr).Error("correction stored but learned response update failed")
		return res, utils.Partial(utils.CodeStoreUnavailable, op, "correction saved; learned response not updated", learnErr)
	}
	log.WithFields(logrus.Fields{
		"rating":         req.Rating,
		"improved_score": correction.ImprovedScore,
	}).Info("correction attached")
	return res, nil
}

func (f *feedbackService) SubmitVoiceCorrection(ctx context.Context, req CorrectionRequest, audio []byte, language string) (*CorrectionResult, error) {
	const op = "FeedbackService.SubmitVoiceCorrection"

	if f.transcriber == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "voice corrections are not configured", nil)
	}
	if len(audio) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio is required", nil)
	}
	text, conf, err := f.transcriber.Transcribe(ctx, audio, language)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "transcription failed", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no speech recognized in audio", nil)
	}
	f.log.WithFields(logrus.Fields{"session_id": req.SessionID, "confidence": conf}).Debug("voice correction transcribed")

	req.Comment = text
	return f.SubmitCorrection(ctx, req)
}
