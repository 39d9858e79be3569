package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "learned.db")
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLearnedResponseRepo_UpsertKeepsHitCount(t *testing.T) {
	ctx := context.Background()
	repo, err := NewLearnedResponseRepo(openTestDB(t))
	if err != nil {
		t.Fatalf("NewLearnedResponseRepo: %v", err)
	}

	if _, err := repo.Get(ctx, "avatar-1", "fp"); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	first := &models.LearnedResponse{AvatarID: "avatar-1", Fingerprint: "fp", Content: "first", QualityScore: 70}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.IncrementHit(ctx, "avatar-1", "fp", time.Now()); err != nil {
		t.Fatalf("IncrementHit: %v", err)
	}

	second := &models.LearnedResponse{AvatarID: "avatar-1", Fingerprint: "fp", Content: "second", QualityScore: 92}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := repo.Get(ctx, "avatar-1", "fp")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content != "second" || got.QualityScore != 92 {
		t.Errorf("last write should win, got %q/%d", got.Content, got.QualityScore)
	}
	if got.HitCount != 1 {
		t.Errorf("hit count = %d, want 1", got.HitCount)
	}
	if got.LastUsedAt.IsZero() {
		t.Error("last used time not recorded")
	}
}

func TestLearnedResponseRepo_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	repo, err := NewLearnedResponseRepo(openTestDB(t))
	if err != nil {
		t.Fatalf("NewLearnedResponseRepo: %v", err)
	}
	if err := repo.Upsert(ctx, &models.LearnedResponse{AvatarID: "a", Fingerprint: "f", Content: "c"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.IncrementHit(ctx, "a", "f", time.Now())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("IncrementHit: %v", err)
		}
	}

	got, err := repo.Get(ctx, "a", "f")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.HitCount != n {
		t.Errorf("hit count = %d, want %d", got.HitCount, n)
	}
}

func TestLearnedResponseRepo_IncrementMissing(t *testing.T) {
	repo, err := NewLearnedResponseRepo(openTestDB(t))
	if err != nil {
		t.Fatalf("NewLearnedResponseRepo: %v", err)
	}
	err = repo.IncrementHit(context.Background(), "nobody", "nothing", time.Now())
	if !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
