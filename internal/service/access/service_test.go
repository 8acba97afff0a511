package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zhouzirui/mood-fortune/backend/internal/store"
)

func newTestService(clock *time.Time) *Service {
	svc := NewService(store.NewMemoryKV(), 7)
	svc.now = func() time.Time { return *clock }
	return svc
}

func TestStatusDefaultsToNone(t *testing.T) {
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(&clock)

	status, err := svc.Status(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Status err: %v", err)
	}
	if status.State != StateNone || status.Allowed() {
		t.Fatalf("expected no access, got %+v", status)
	}
}

func TestTrialLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(&clock)

	status, err := svc.StartTrial(ctx, "user-1")
	if err != nil {
		t.Fatalf("StartTrial err: %v", err)
	}
	if status.State != StateTrial || status.DaysLeft != 7 {
		t.Fatalf("expected 7-day trial, got %+v", status)
	}

	clock = clock.Add(6*24*time.Hour + time.Hour)
	status, _ = svc.Status(ctx, "user-1")
	if status.State != StateTrial || status.DaysLeft != 1 {
		t.Fatalf("expected last trial day, got %+v", status)
	}

	clock = clock.Add(24 * time.Hour)
	status, _ = svc.Status(ctx, "user-1")
	if status.State != StateExpired {
		t.Fatalf("expected expired trial, got %+v", status)
	}
	if _, err := svc.Require(ctx, "user-1"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}

	if _, err := svc.StartTrial(ctx, "user-1"); !errors.Is(err, ErrTrialUsed) {
		t.Fatalf("expected ErrTrialUsed, got %v", err)
	}
}

func TestSubscriptionOverridesExpiredTrial(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(&clock)

	svc.StartTrial(ctx, "user-2")
	clock = clock.Add(30 * 24 * time.Hour)

	status, err := svc.Subscribe(ctx, "user-2")
	if err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}
	if status.State != StateSubscribed {
		t.Fatalf("expected subscribed, got %+v", status)
	}
	if _, err := svc.Require(ctx, "user-2"); err != nil {
		t.Fatalf("Require err: %v", err)
	}

	status, err = svc.Cancel(ctx, "user-2")
	if err != nil {
		t.Fatalf("Cancel err: %v", err)
	}
	if status.State != StateExpired {
		t.Fatalf("expected expired after cancel with used trial, got %+v", status)
	}
}

func TestCancelWithoutTrialIsExpired(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(&clock)

	svc.Subscribe(ctx, "user-3")
	status, _ := svc.Cancel(ctx, "user-3")
	if status.State != StateExpired {
		t.Fatalf("expected expired, got %+v", status)
	}

	if status, _ := svc.Cancel(ctx, "user-4"); status.State != StateNone {
		t.Fatalf("cancel without subscription should be a no-op, got %+v", status)
	}
}

func TestUserRequired(t *testing.T) {
	clock := time.Now()
	svc := newTestService(&clock)

	if _, err := svc.Status(context.Background(), "  "); !errors.Is(err, ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}
}

func TestAccessOutlivesProfileExpiry(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	kv := store.NewExpiringMemoryKV(30*24*time.Hour, now)
	svc := NewService(kv, 7)
	svc.now = now

	if _, err := svc.StartTrial(ctx, "trial-user"); err != nil {
		t.Fatalf("StartTrial err: %v", err)
	}
	if _, err := svc.Subscribe(ctx, "paying-user"); err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}

	clock = clock.Add(31 * 24 * time.Hour)

	status, err := svc.StartTrial(ctx, "trial-user")
	if !errors.Is(err, ErrTrialUsed) {
		t.Fatalf("trial must stay one-time, got %+v err=%v", status, err)
	}
	if status.State != StateExpired {
		t.Fatalf("expected expired trial, got %+v", status)
	}

	status, err = svc.Status(ctx, "paying-user")
	if err != nil || status.State != StateSubscribed {
		t.Fatalf("subscription must survive, got %+v err=%v", status, err)
	}
}
