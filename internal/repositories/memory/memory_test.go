package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
)

func msg(id, role string, index int) models.Message {
	return models.Message{ID: id, Role: role, Index: index, Content: id}
}

func TestSessionRepoConditionalWrites(t *testing.T) {
	ctx := context.Background()
	r := NewSessionRepo()
	if err := r.Create(ctx, &models.Session{SessionID: "s1", Status: models.SessionActive}); err != nil {
		t.Fatal(err)
	}
	if err := r.Create(ctx, &models.Session{SessionID: "s1"}); !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("duplicate create: %v", err)
	}

	if err := r.AppendMessages(ctx, "s1", 0, msg("c0", models.RoleCustomer, 0), msg("a1", models.RoleAvatar, 1)); err != nil {
		t.Fatal(err)
	}
	if err := r.AppendMessages(ctx, "s1", 0, msg("c2", models.RoleCustomer, 2)); !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("stale append: %v", err)
	}

	if err := r.AttachCorrection(ctx, "s1", "c0", models.Correction{Comment: "x"}); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("correction on customer turn: %v", err)
	}
	if err := r.AttachCorrection(ctx, "s1", "a1", models.Correction{Comment: "first"}); err != nil {
		t.Fatal(err)
	}
	if err := r.AttachCorrection(ctx, "s1", "a1", models.Correction{Comment: "second"}); !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("second correction: %v", err)
	}

	got, _ := r.Get(ctx, "s1")
	got.Messages[1].Correction.Comment = "mutated"
	again, _ := r.Get(ctx, "s1")
	if again.Messages[1].Correction.Comment != "first" {
		t.Fatal("Get leaked internal state")
	}

	ok, err := r.Complete(ctx, "s1", models.SessionSummary{TurnCount: 1}, time.Now())
	if err != nil || !ok {
		t.Fatalf("Complete: %v %v", ok, err)
	}
	if ok, _ := r.Complete(ctx, "s1", models.SessionSummary{}, time.Now()); ok {
		t.Fatal("second Complete reported a change")
	}
	if err := r.AppendMessages(ctx, "s1", 2, msg("c2", models.RoleCustomer, 2)); !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("append to completed: %v", err)
	}
}

func TestLearnedResponseRepoUpsertKeepsHits(t *testing.T) {
	ctx := context.Background()
	r := NewLearnedResponseRepo()
	_ = r.Upsert(ctx, &models.LearnedResponse{AvatarID: "a", Fingerprint: "f", Content: "v1"})
	for i := 0; i < 3; i++ {
		if err := r.IncrementHit(ctx, "a", "f", time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	_ = r.Upsert(ctx, &models.LearnedResponse{AvatarID: "a", Fingerprint: "f", Content: "v2"})

	got, err := r.Get(ctx, "a", "f")
	if err != nil || got.Content != "v2" || got.HitCount != 3 {
		t.Fatalf("got %+v, %v", got, err)
	}
	if err := r.IncrementHit(ctx, "a", "missing", time.Now()); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("increment missing: %v", err)
	}
}

func TestRequestLogWindow(t *testing.T) {
	ctx := context.Background()
	l := NewRequestLog()
	for i := 0; i < 5; i++ {
		_ = l.Record(ctx, &models.RequestRecord{SessionID: "s1", RequestID: fmt.Sprintf("r%d", i), Operation: "advance"}, 3)
	}
	if _, err := l.Lookup(ctx, "s1", "r1"); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("r1 should be evicted: %v", err)
	}
	if rec, err := l.Lookup(ctx, "s1", "r4"); err != nil || rec.Operation != "advance" {
		t.Fatalf("r4: %+v %v", rec, err)
	}
	if _, err := l.Lookup(ctx, "s2", "r4"); !errors.Is(err, utils.ErrNotFound) {
		t.Fatal("ids are per session")
	}
}

func TestTransferRepoOnePerSession(t *testing.T) {
	ctx := context.Background()
	r := NewTransferRepo()
	if err := r.Insert(ctx, &models.KnowledgeTransferRecord{TransferID: "t1", SourceSessionID: "s1"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Insert(ctx, &models.KnowledgeTransferRecord{TransferID: "t2", SourceSessionID: "s1"}); !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("second insert: %v", err)
	}
	rec, _ := r.GetBySession(ctx, "s1")
	if rec.TransferID != "t1" || r.Count() != 1 {
		t.Fatalf("record = %+v", rec)
	}
}
