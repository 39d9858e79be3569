package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSessionLocksSerialize(t *testing.T) {
	locks := NewSessionLocks()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locks.Acquire(context.Background(), "s1")
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("max holders = %d, want 1", maxSeen)
	}
	if n := locks.size(); n != 0 {
		t.Fatalf("lock arena leaked %d entries", n)
	}
}

func TestSessionLocksIndependentSessions(t *testing.T) {
	locks := NewSessionLocks()
	release, err := locks.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	other, err := locks.Acquire(ctx, "b")
	if err != nil {
		t.Fatalf("different session blocked: %v", err)
	}
	other()
}

func TestSessionLocksAcquireHonorsContext(t *testing.T) {
	locks := NewSessionLocks()
	release, _ := locks.Acquire(context.Background(), "s1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locks.Acquire(ctx, "s1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}

	release()
	release() // second call is a no-op
	if n := locks.size(); n != 0 {
		t.Fatalf("lock arena leaked %d entries", n)
	}
}
