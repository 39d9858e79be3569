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
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AdvanceRequest struct {
	SessionID      string
	SelectedChoice string // optional, must be one of the last avatar turn's choices
	RequestID      string // optional client id for safe retries
}

type TurnEngine interface {
	// Advance appends exactly one customer turn and one avatar turn.
	Advance(ctx context.Context, req AdvanceRequest) (*models.Session, error)
}

type TurnEngineDeps struct {
	Sessions  repositories.SessionRepository
	Catalog   catalog.Catalog
	Learned   *LearnedStore
	Generator llm.TextGenerator
	Scorer    scoring.Scorer
	Locks     *SessionLocks
	Requests  repositories.RequestLog // optional
	Events    EventPublisher
	Logger    *logrus.Logger

	GenerationTimeout time.Duration
	DedupWindow       int
	ChoicesEnabled    bool
}

type turnEngine struct {
	sessions repositories.SessionRepository
	catalog  catalog.Catalog
	learned  *LearnedStore
	gen      *boundedGenerator
	scorer   scoring.Scorer
	locks    *SessionLocks
	dedup    *requestDedup
	events   EventPublisher
	log      *logrus.Logger
	choices  bool
}

func NewTurnEngine(d TurnEngineDeps) TurnEngine {
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
	return &turnEngine{
		sessions: d.Sessions,
		catalog:  d.Catalog,
		learned:  d.Learned,
		gen:      &boundedGenerator{gen: d.Generator, timeout: d.GenerationTimeout, log: d.Logger},
		scorer:   d.Scorer,
		locks:    d.Locks,
		dedup:    &requestDedup{log: d.Requests, window: d.DedupWindow, logger: d.Logger},
		events:   d.Events,
		log:      d.Logger,
		choices:  d.ChoicesEnabled,
	}
}

func (e *turnEngine) Advance(ctx context.Context, req AdvanceRequest) (*models.Session, error) {
	const op = "TurnEngine.Advance"

	if req.SessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	release, err := e.locks.Acquire(ctx, req.SessionID)
	if err != nil {
		return nil, utils.E(utils.CodeTimeout, op, "gave up waiting for session", err)
	}
	defer release()

	var replayed models.Session
	if ok, err := e.dedup.replay(ctx, opAdvance, req.SessionID, req.RequestID, &replayed); err != nil {
		return nil, err
	} else if ok {
		return &replayed, nil
	}

	sess, err := loadSession(ctx, e.sessions, op, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Active() {
		return nil, utils.E(utils.CodeSessionClosed, op, "session is completed", nil)
	}
	sc, err := e.catalog.Get(sess.ScenarioID)
	if err != nil {
		return nil, utils.E(utils.CodeScenarioNotFound, op, "scenario of session is no longer available", err)
	}

	log := e.log.WithFields(logrus.Fields{"session_id": sess.SessionID, "avatar_id": sess.AvatarID})

	customer, customerSource, err := e.customerUtterance(ctx, op, sess, sc, req.SelectedChoice)
	if err != nil {
		return nil, err
	}
	fp := utils.Fingerprint(sc.ID, sess.AvatarID, customer)

	learned, err := e.learned.Lookup(ctx, sess.AvatarID, fp)
	if err != nil {
		log.WithError(err).WithField("fingerprint", fp).Warn("learned response lookup failed; generating instead")
		learned = nil
	}

	avatar := models.Message{Role: models.RoleAvatar, Fingerprint: fp}
	if learned != nil {
		avatar.Content = learned.Content
		avatar.QualityScore = models.IntPtr(learned.QualityScore)
		avatar.Source = models.SourceLearned
	} else {
		reply, err := e.gen.generate(ctx, op, avatarTurnPrompt(sc, sess.Messages, customer))
		if err != nil {
			return nil, err
		}
		score, err := e.scorer.Score(ctx, reply, scoring.Context{
			CustomerUtterance: customer,
			CustomerMood:      sc.CustomerMood,
			Objectives:        sc.Objectives,
		})
		if err != nil {
			return nil, utils.E(utils.CodeGenerationFailed, op, "quality scoring failed", err)
		}
		avatar.Content = reply
		avatar.QualityScore = models.IntPtr(scoring.Clamp(score))
		avatar.Source = models.SourceGenerated
		if e.choices {
			avatar.Choices = e.followUpChoices(ctx, op, sc, customer, reply, log)
		}
	}

	now := time.Now().UTC()
	base := len(sess.Messages)
	pair := []models.Message{
		{
			ID:        uuid.NewString(),
			Index:     base,
			Role:      models.RoleCustomer,
			Content:   customer,
			Emotion:   sc.CustomerMood,
			Source:    customerSource,
			CreatedAt: now,
		},
		avatar,
	}
	pair[1].ID = uuid.NewString()
	pair[1].Index = base + 1
	pair[1].CreatedAt = now

	if err := e.sessions.AppendMessages(ctx, sess.SessionID, base, pair...); err != nil {
		switch {
		case errors.Is(err, utils.ErrNotFound):
			return nil, utils.E(utils.CodeSessionNotFound, op, "session not found", err)
		case errors.Is(err, utils.ErrConflict):
			// another process advanced or completed the session; nothing was written
			if cur, gerr := e.sessions.Get(ctx, sess.SessionID); gerr == nil && !cur.Active() {
				return nil, utils.E(utils.CodeSessionClosed, op, "session is completed", err)
			}
			return nil, utils.E(utils.CodeConflict, op, "session changed concurrently; retry", err)
		default:
			return nil, utils.E(utils.CodeStoreUnavailable, op, "failed to append turn", err)
		}
	}
	sess.Messages = append(sess.Messages, pair...)

	if learned != nil {
		if err := e.learned.RecordHit(ctx, sess.AvatarID, fp); err != nil {
			log.WithError(err).WithField("fingerprint", fp).Warn("failed to record learned response hit")
		}
	}
	log.WithFields(logrus.Fields{
		"turn":        base/2 + 1,
		"source":      avatar.Source,
		"fingerprint": fp,
	}).Debug("turn appended")

	if err := e.events.Publish(ctx, SessionEvent{Type: EventTurnAppended, SessionID: sess.SessionID, Messages: pair}); err != nil {
		log.WithError(err).Warn("failed to publish turn event")
	}
	e.dedup.remember(ctx, opAdvance, sess.SessionID, req.RequestID, sess)
	return sess, nil
}

// customerUtterance synthesizes the customer's turn from a selected choice or
// asks the text service for one.
func (e *turnEngine) customerUtterance(ctx context.Context, op string, sess *models.Session, sc *models.ScenarioDefinition, selected string) (string, string, error) {
	selected = strings.TrimSpace(selected)
	if selected == "" {
		text, err := e.gen.generate(ctx, op, customerTurnPrompt(sc, sess.Messages))
		if err != nil {
			return "", "", err
		}
		return text, models.SourceGenerated, nil
	}

	last := sess.LastAvatarMessage()
	if last == nil || len(last.Choices) == 0 {
		return "", "", utils.E(utils.CodeInvalidArgument, op, "the last avatar turn offered no choices", nil)
	}
	for _, c := range last.Choices {
		if strings.EqualFold(strings.TrimSpace(c), selected) {
			return ChoiceToStatement(c), models.SourceChoice, nil
		}
	}
	return "", "", utils.E(utils.CodeInvalidArgument, op, "selected_choice is not one of the offered choices", nil)
}

// followUpChoices is optional decoration; failures only drop the choices.
func (e *turnEngine) followUpChoices(ctx context.Context, op string, sc *models.ScenarioDefinition, customer, reply string, log *logrus.Entry) []string {
	out, err := e.gen.generate(ctx, op, choicesPrompt(sc, customer, reply))
	if err != nil {
		log.WithError(err).Warn("choice generation failed; continuing without choices")
		return nil
	}
	return parseChoices(out)
}
