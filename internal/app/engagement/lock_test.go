package engagement

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUserLocks_SerializesSameUser(t *testing.T) {
	locks := newUserLocks()
	ctx := context.Background()

	unlock, err := locks.Lock(ctx, "u1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		u, err := locks.Lock(ctx, "u1")
		if err != nil {
			t.Errorf("second lock: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second caller acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never acquired the lock")
	}
}

func TestUserLocks_IndependentUsers(t *testing.T) {
	locks := newUserLocks()
	ctx := context.Background()

	a, err := locks.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("lock a: %v", err)
	}
	b, err := locks.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("lock b: %v", err)
	}
	if locks.size() != 2 {
		t.Errorf("expected 2 entries, got %d", locks.size())
	}
	a()
	b()
	if locks.size() != 0 {
		t.Errorf("expected entries released, got %d", locks.size())
	}
}

func TestUserLocks_ContextCancel(t *testing.T) {
	locks := newUserLocks()
	unlock, err := locks.Lock(context.Background(), "u1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locks.Lock(ctx, "u1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if locks.size() != 1 {
		t.Errorf("waiter should drop its reference, got %d entries", locks.size())
	}
}

func TestPruneCompleted(t *testing.T) {
	now := time.Date(2025, 7, 9, 12, 0, 0, 0, time.UTC) // 2025-W28
	ids := []string{"lifetime", "a@2025-W27", "b@2025-W28"}
	got := pruneCompleted(ids, now)
	if len(got) != 2 || got[0] != "lifetime" || got[1] != "b@2025-W28" {
		t.Errorf("unexpected prune result %v", got)
	}
	if ids[1] != "a@2025-W27" {
		t.Error("input slice must not be modified")
	}
}

func TestDayGap(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2025-03-29", "2025-03-30", 1}, // DST weekend in Europe
		{"2024-12-31", "2025-01-01", 1},
		{"2025-07-01", "2025-07-01", 0},
		{"2025-07-05", "2025-07-01", -4},
	}
	for _, tt := range tests {
		got, err := dayGap(tt.a, tt.b)
		if err != nil || got != tt.want {
			t.Errorf("dayGap(%s, %s) = %d, %v; want %d", tt.a, tt.b, got, err, tt.want)
		}
	}
	if _, err := dayGap("yesterday", "2025-07-01"); err == nil {
		t.Error("expected parse error")
	}
}
