package services

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/logger"
	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories/memory"
)

func TestCompleteIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	s := env.advance(t, env.newSession(t).SessionID)
	ctx := context.Background()

	first, err := env.sessionSvc.Complete(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if first.Status != models.SessionCompleted || first.Summary == nil || first.CompletedAt == nil {
		t.Fatalf("completed session = %+v", first)
	}
	if first.Summary.TurnCount != 1 || first.Summary.AverageQuality != 72 {
		t.Fatalf("summary = %+v", first.Summary)
	}
	if len(first.Summary.ObjectivesTouched) == 0 {
		t.Fatal("expected the avatar turn to touch an objective")
	}

	second, err := env.sessionSvc.Complete(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Fatalf("completed_at moved: %v -> %v", first.CompletedAt, second.CompletedAt)
	}
	if !reflect.DeepEqual(first.Summary, second.Summary) {
		t.Fatalf("summary changed:\n%+v\n%+v", first.Summary, second.Summary)
	}
	if env.transfers.Count() != 1 {
		t.Fatalf("transfer records = %d, want 1", env.transfers.Count())
	}
}

func TestConcurrentCompleteTransfersOnce(t *testing.T) {
	env := newTestEnv(t)
	s := env.advance(t, env.newSession(t).SessionID)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.sessionSvc.Complete(context.Background(), s.SessionID); err != nil {
				t.Errorf("Complete: %v", err)
			}
		}()
	}
	wg.Wait()
	if env.transfers.Count() != 1 {
		t.Fatalf("transfer records = %d, want 1", env.transfers.Count())
	}
}

func TestTransferPointsAndObjectives(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.newSession(t)
	s = env.advance(t, s.SessionID)
	s = env.advance(t, s.SessionID)
	if _, err := env.feedback.SubmitCorrection(ctx, correctionFor(s.SessionID, s.Messages[3].ID)); err != nil {
		t.Fatalf("SubmitCorrection: %v", err)
	}
	if _, err := env.sessionSvc.Complete(ctx, s.SessionID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	rec, err := env.transfers.GetBySession(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("GetBySession: %v", err)
	}
	if rec.Status != models.TransferCompleted || rec.TargetPlatform != "brezcode" {
		t.Fatalf("record = %+v", rec)
	}

	var responses, objectives int
	for _, p := range rec.Points {
		switch p.Type {
		case models.KnowledgeAvatarResponse:
			responses++
			if p.Quality != 92 || p.Content != revisedLine {
				t.Fatalf("response point = %+v", p)
			}
		case models.KnowledgeTrainingObjective:
			objectives++
			if p.Quality != 85 {
				t.Fatalf("objective quality = %d", p.Quality)
			}
		}
	}
	// the uncorrected turn scored 72 and stays below the threshold
	if responses != 1 || objectives != 4 {
		t.Fatalf("responses=%d objectives=%d", responses, objectives)
	}

	entries, err := env.knowledge.ListByPlatform(ctx, "brezcode", "dr_sakura", 0)
	if err != nil || len(entries) != 5 {
		t.Fatalf("knowledge entries: %v, %d", err, len(entries))
	}
}

func TestTransferThresholdIsExclusive(t *testing.T) {
	env := newTestEnv(t)
	sess := &models.Session{
		Status: models.SessionCompleted,
		Messages: []models.Message{
			{Role: models.RoleAvatar, Content: "at threshold", QualityScore: models.IntPtr(80)},
			{Role: models.RoleAvatar, Content: "above threshold", QualityScore: models.IntPtr(81)},
			{Role: models.RoleCustomer, Content: "customer", QualityScore: models.IntPtr(99)},
		},
	}
	points := env.bridge.ExtractPoints(sess, nil)
	if len(points) != 1 || points[0].Content != "above threshold" {
		t.Fatalf("points = %+v", points)
	}
}

func TestTransferSkippedForIneligibleAvatar(t *testing.T) {
	env := newTestEnv(t, withEligible("someone_else"))
	s := env.advance(t, env.newSession(t).SessionID)
	if _, err := env.sessionSvc.Complete(context.Background(), s.SessionID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	rec, err := env.transfers.GetBySession(context.Background(), s.SessionID)
	if err != nil {
		t.Fatalf("GetBySession: %v", err)
	}
	if rec.Status != models.TransferSkipped || len(rec.Points) != 0 || rec.Reason == "" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestTransferWildcardEligibility(t *testing.T) {
	env := newTestEnv(t, withEligible("*"))
	ctx := context.Background()
	s, err := env.sessionSvc.Create(ctx, "user-1", "coach_mia", "breast_health_anxiety")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	env.advance(t, s.SessionID)
	if _, err := env.sessionSvc.Complete(ctx, s.SessionID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	rec, _ := env.transfers.GetBySession(ctx, s.SessionID)
	if rec == nil || rec.Status != models.TransferCompleted {
		t.Fatalf("record = %+v", rec)
	}
}

func TestTransferFailedWhenPublishFails(t *testing.T) {
	env := newTestEnv(t, withPublisher(failingPublisher{}))
	s := env.advance(t, env.newSession(t).SessionID)

	done, err := env.sessionSvc.Complete(context.Background(), s.SessionID)
	if err != nil {
		t.Fatalf("Complete must not fail on transfer errors: %v", err)
	}
	if done.Status != models.SessionCompleted {
		t.Fatalf("status = %s", done.Status)
	}
	rec, _ := env.transfers.GetBySession(context.Background(), s.SessionID)
	if rec == nil || rec.Status != models.TransferFailed || rec.Reason == "" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestTransferRequiresCompletedSession(t *testing.T) {
	env := newTestEnv(t)
	s := env.newSession(t)
	if _, err := env.bridge.Transfer(context.Background(), s); err == nil {
		t.Fatal("expected an error for an active session")
	}
}

func TestBreastHealthWalkthrough(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	s, err := env.sessionSvc.Create(ctx, "user-42", "dr_sakura", "breast_health_anxiety")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	s, err = env.engine.Advance(ctx, AdvanceRequest{SessionID: s.SessionID})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if len(s.Messages) != 2 || s.Messages[0].Role != models.RoleCustomer || s.Messages[1].Role != models.RoleAvatar {
		t.Fatalf("messages = %+v", s.Messages)
	}
	score := *s.Messages[1].QualityScore
	if score < 0 || score > 100 {
		t.Fatalf("quality score %d out of range", score)
	}

	res, err := env.feedback.SubmitCorrection(ctx, CorrectionRequest{
		SessionID:  s.SessionID,
		MessageID:  s.Messages[1].ID,
		ReviewerID: "reviewer-7",
		Comment:    "too vague",
		Rating:     2,
	})
	if err != nil {
		t.Fatalf("SubmitCorrection: %v", err)
	}
	c := res.Message.Correction
	if c == nil || c.ImprovedContent == "" || c.ImprovedScore < 0 || c.ImprovedScore > 100 {
		t.Fatalf("correction = %+v", c)
	}

	done, err := env.sessionSvc.Complete(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != models.SessionCompleted || done.Summary.CorrectionCount != 1 {
		t.Fatalf("completed = %+v", done)
	}
	if env.transfers.Count() != 1 {
		t.Fatalf("transfer records = %d, want 1", env.transfers.Count())
	}
}

// msSessionRepo keeps completion times at millisecond precision, as BSON datetimes do.
type msSessionRepo struct {
	*memory.SessionRepo
}

func (r msSessionRepo) Complete(ctx context.Context, sessionID string, summary models.SessionSummary, completedAt time.Time) (bool, error) {
	summary.CompletedAt = summary.CompletedAt.Truncate(time.Millisecond)
	return r.SessionRepo.Complete(ctx, sessionID, summary, completedAt.Truncate(time.Millisecond))
}

func TestCompleteSummaryStableAcrossStorePrecision(t *testing.T) {
	env := newTestEnv(t)
	s := env.advance(t, env.newSession(t).SessionID)
	ctx := context.Background()

	svc := NewSessionService(SessionDeps{
		Sessions: msSessionRepo{SessionRepo: env.sessions},
		Catalog:  env.catalog,
		Logger:   logger.Discard(),
	})
	first, err := svc.Complete(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	second, err := svc.Complete(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if !reflect.DeepEqual(first.Summary, second.Summary) {
		t.Fatalf("summary changed:\n%+v\n%+v", first.Summary, second.Summary)
	}
	if !first.CompletedAt.Equal(*second.CompletedAt) || first.CompletedAt.Nanosecond()%int(time.Millisecond) != 0 {
		t.Fatalf("completed_at = %v then %v", first.CompletedAt, second.CompletedAt)
	}
}

func TestCompleteWithoutObjectivesKeepsEmptyList(t *testing.T) {
	env := newTestEnv(t)
	s := env.newSession(t)
	ctx := context.Background()

	first, err := env.sessionSvc.Complete(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	second, err := env.sessionSvc.Complete(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if first.Summary.ObjectivesTouched == nil || second.Summary.ObjectivesTouched == nil {
		t.Fatalf("objectives = %#v then %#v", first.Summary.ObjectivesTouched, second.Summary.ObjectivesTouched)
	}
	if !reflect.DeepEqual(first.Summary, second.Summary) {
		t.Fatalf("summary changed:\n%+v\n%+v", first.Summary, second.Summary)
	}
}
