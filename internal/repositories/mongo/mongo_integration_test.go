package mongo

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/config"
	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"go.mongodb.org/mongo-driver/mongo"
)

// testDB connects to MONGO_URI and returns a throwaway database.
func testDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := config.NewMongo(ctx, uri)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	db := client.Database("avatar_training_test_" + strconv.FormatInt(time.Now().UnixNano(), 36))
	if err := config.EnsureMongoIndexes(ctx, db); err != nil {
		t.Fatalf("indexes: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestSessionRepoConcurrentAppend(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()
	if err := repo.Create(ctx, &models.Session{SessionID: "s1", Status: models.SessionActive}); err != nil {
		t.Fatal(err)
	}

	// every writer targets the same expected length; exactly one may win
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := strconv.Itoa(i)
			err := repo.AppendMessages(ctx, "s1", 0,
				models.Message{ID: "c" + id, Role: models.RoleCustomer, Index: 0},
				models.Message{ID: "a" + id, Role: models.RoleAvatar, Index: 1})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, utils.ErrConflict) {
				t.Errorf("append: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}
	s, _ := repo.Get(ctx, "s1")
	if len(s.Messages) != 2 {
		t.Fatalf("messages = %d", len(s.Messages))
	}

	avatarID := s.Messages[1].ID
	if err := repo.AttachCorrection(ctx, "s1", avatarID, models.Correction{Comment: "first", Rating: 2}); err != nil {
		t.Fatal(err)
	}
	if err := repo.AttachCorrection(ctx, "s1", avatarID, models.Correction{Comment: "second"}); !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("second correction: %v", err)
	}

	at := time.Now().UTC().Truncate(time.Millisecond)
	summary := models.SessionSummary{TurnCount: 1, AverageQuality: 72, ObjectivesTouched: []string{}, CompletedAt: at}
	changed, err := repo.Complete(ctx, "s1", summary, at)
	if err != nil || !changed {
		t.Fatalf("complete: %v %v", changed, err)
	}
	done, err := repo.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(*done.Summary, summary) || !done.CompletedAt.Equal(at) {
		t.Fatalf("stored summary = %+v at %v, want %+v", done.Summary, done.CompletedAt, summary)
	}
	if changed, _ := repo.Complete(ctx, "s1", models.SessionSummary{}, time.Now()); changed {
		t.Fatal("second complete changed the session")
	}
	if err := repo.AppendMessages(ctx, "s1", 2, models.Message{ID: "late"}); !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("append after complete: %v", err)
	}
}

func TestTransferRepoUniquePerSession(t *testing.T) {
	db := testDB(t)
	repo := NewTransferRepo(db)
	ctx := context.Background()

	if err := repo.Insert(ctx, &models.KnowledgeTransferRecord{TransferID: "t1", SourceSessionID: "s1", Status: models.TransferCompleted}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Insert(ctx, &models.KnowledgeTransferRecord{TransferID: "t2", SourceSessionID: "s1"}); !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("second insert: %v", err)
	}
	rec, err := repo.GetBySession(ctx, "s1")
	if err != nil || rec.TransferID != "t1" {
		t.Fatalf("record = %+v, %v", rec, err)
	}
}

func TestRequestLogWindow(t *testing.T) {
	db := testDB(t)
	log := NewRequestLogRepo(db)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		rec := &models.RequestRecord{SessionID: "s1", RequestID: "r" + strconv.Itoa(i), Operation: "advance", Result: []byte(`{}`)}
		if err := log.Record(ctx, rec, 2); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := log.Lookup(ctx, "s1", "r0"); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("r0 should be evicted: %v", err)
	}
	if rec, err := log.Lookup(ctx, "s1", "r3"); err != nil || rec.Operation != "advance" {
		t.Fatalf("r3 = %+v, %v", rec, err)
	}
}
