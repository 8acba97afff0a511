package flow_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/zhouzirui/mood-fortune/backend/internal/library"
	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
	flowmodel "github.com/zhouzirui/mood-fortune/backend/internal/model/flow"
	flow "github.com/zhouzirui/mood-fortune/backend/internal/service/flow"
	"github.com/zhouzirui/mood-fortune/backend/internal/store"
)

func newService(t *testing.T) (*flow.Service, store.KV) {
	t.Helper()
	lib := library.New("fortune", "Fortune",
		[]content.Mood{"good", "bad"},
		[]content.Context{"still", "focused"},
		map[content.Mood]map[content.Context][]content.Message{
			"good": {
				"still": {
					{ActionType: content.ActionBreathe, Title: "One", Message: "A", DisplayTime: 5, AudioIndex: 1},
					{ActionType: content.ActionBreathe, Title: "Two", Message: "B", DisplayTime: 5, AudioIndex: 2},
				},
				"focused": {
					{ActionType: content.ActionDo, Message: "Only", DisplayTime: 5, AudioIndex: 3},
				},
			},
		},
	)
	kv := store.NewMemoryKV()
	return flow.NewService(library.NewRegistry(lib), kv, rand.New(rand.NewSource(3))), kv
}

func TestFlowHappyPath(t *testing.T) {
	svc, kv := newService(t)
	ctx := context.Background()

	profile, err := svc.Start(ctx, "fortune")
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if profile.Stage != flowmodel.StageNone {
		t.Fatalf("expected none stage, got %s", profile.Stage)
	}

	if _, err := svc.ChooseMood(ctx, profile.ID, "good"); err != nil {
		t.Fatalf("ChooseMood err: %v", err)
	}
	if _, err := svc.ChooseContext(ctx, profile.ID, "still"); err != nil {
		t.Fatalf("ChooseContext err: %v", err)
	}

	drawn, msg, err := svc.Draw(ctx, profile.ID)
	if err != nil {
		t.Fatalf("Draw err: %v", err)
	}
	if drawn.Stage != flowmodel.StageMessageSelected || drawn.Selected == nil {
		t.Fatalf("expected selected message, got %+v", drawn)
	}
	if drawn.Selected.Message != msg.Message {
		t.Fatalf("stored selection %q does not match draw %q", drawn.Selected.Message, msg.Message)
	}

	stored, ok, err := store.NewSlot[content.Selected](kv, store.KeySelectedMessage).Get(ctx, profile.ID)
	if err != nil || !ok || stored != *drawn.Selected {
		t.Fatalf("selection slot not written: %+v ok=%v err=%v", stored, ok, err)
	}

	revealed, err := svc.Reveal(ctx, profile.ID)
	if err != nil {
		t.Fatalf("Reveal err: %v", err)
	}
	if revealed.Stage != flowmodel.StageRevealed {
		t.Fatalf("expected revealed, got %s", revealed.Stage)
	}

	restarted, err := svc.Restart(ctx, profile.ID)
	if err != nil {
		t.Fatalf("Restart err: %v", err)
	}
	if restarted.Stage != flowmodel.StageNone || restarted.Selected != nil || restarted.Mood != "" {
		t.Fatalf("expected cleared profile, got %+v", restarted)
	}
	if _, ok, _ := store.NewSlot[content.Selected](kv, store.KeySelectedMessage).Get(ctx, profile.ID); ok {
		t.Fatal("restart must clear the selection slot")
	}
}

func TestRedrawExcludesPrevious(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	profile, _ := svc.Start(ctx, "fortune")
	svc.ChooseMood(ctx, profile.ID, "good")
	svc.ChooseContext(ctx, profile.ID, "still")

	_, previous, err := svc.Draw(ctx, profile.ID)
	if err != nil {
		t.Fatalf("Draw err: %v", err)
	}
	for i := 0; i < 20; i++ {
		_, next, err := svc.Draw(ctx, profile.ID)
		if err != nil {
			t.Fatalf("redraw err: %v", err)
		}
		if next.SameAs(previous) {
			t.Fatalf("redraw %d repeated previous message %q", i, next.Message)
		}
		previous = next
	}
}

func TestRedrawSingleMessageBucketRepeats(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	profile, _ := svc.Start(ctx, "fortune")
	svc.ChooseMood(ctx, profile.ID, "good")
	svc.ChooseContext(ctx, profile.ID, "focused")

	for i := 0; i < 3; i++ {
		_, msg, err := svc.Draw(ctx, profile.ID)
		if err != nil {
			t.Fatalf("Draw %d err: %v", i, err)
		}
		if msg.Message != "Only" {
			t.Fatalf("expected the only message, got %q", msg.Message)
		}
	}
}

func TestDrawEmptyBucketLeavesSlotUntouched(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	profile, _ := svc.Start(ctx, "fortune")
	svc.ChooseMood(ctx, profile.ID, "bad")
	svc.ChooseContext(ctx, profile.ID, "focused")

	if _, _, err := svc.Draw(ctx, profile.ID); !errors.Is(err, flow.ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
	current, err := svc.Current(ctx, profile.ID)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}
	if current.Selected != nil || current.Stage != flowmodel.StageContextChosen {
		t.Fatalf("expected unchanged profile, got %+v", current)
	}
}

func TestFlowRejectsInvalidInput(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Start(ctx, ""); !errors.Is(err, flow.ErrLibraryRequired) {
		t.Fatalf("expected ErrLibraryRequired, got %v", err)
	}
	if _, err := svc.Start(ctx, "tarot"); !errors.Is(err, flow.ErrLibraryNotFound) {
		t.Fatalf("expected ErrLibraryNotFound, got %v", err)
	}
	if _, err := svc.Current(ctx, "missing"); !errors.Is(err, flow.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	profile, _ := svc.Start(ctx, "fortune")
	if _, err := svc.ChooseContext(ctx, profile.ID, "still"); !errors.Is(err, flow.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition before mood, got %v", err)
	}
	if _, _, err := svc.Draw(ctx, profile.ID); !errors.Is(err, flow.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition before context, got %v", err)
	}
	if _, err := svc.Reveal(ctx, profile.ID); !errors.Is(err, flow.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition before draw, got %v", err)
	}
	if _, err := svc.ChooseMood(ctx, profile.ID, "ecstatic"); !errors.Is(err, flow.ErrUnknownMood) {
		t.Fatalf("expected ErrUnknownMood, got %v", err)
	}

	svc.ChooseMood(ctx, profile.ID, "good")
	if _, err := svc.ChooseContext(ctx, profile.ID, "sleep"); !errors.Is(err, flow.ErrUnknownContext) {
		t.Fatalf("expected ErrUnknownContext, got %v", err)
	}
}

func TestChooseMoodAgainResetsSelection(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	profile, _ := svc.Start(ctx, "fortune")
	svc.ChooseMood(ctx, profile.ID, "good")
	svc.ChooseContext(ctx, profile.ID, "still")
	if _, _, err := svc.Draw(ctx, profile.ID); err != nil {
		t.Fatalf("Draw err: %v", err)
	}

	updated, err := svc.ChooseMood(ctx, profile.ID, "bad")
	if err != nil {
		t.Fatalf("ChooseMood err: %v", err)
	}
	if updated.Selected != nil || updated.Context != "" || updated.Stage != flowmodel.StageMoodChosen {
		t.Fatalf("expected reset profile, got %+v", updated)
	}

	current, _ := svc.Current(ctx, profile.ID)
	if current.Selected != nil || current.Context != "" {
		t.Fatalf("reset not persisted: %+v", current)
	}
}

func TestMessageResolvesFullRecord(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	profile, _ := svc.Start(ctx, "fortune")
	if _, msg, err := svc.Message(ctx, profile.ID); err != nil || msg != nil {
		t.Fatalf("expected no message before draw, got %+v err=%v", msg, err)
	}

	svc.ChooseMood(ctx, profile.ID, "good")
	svc.ChooseContext(ctx, profile.ID, "focused")
	svc.Draw(ctx, profile.ID)

	_, msg, err := svc.Message(ctx, profile.ID)
	if err != nil || msg == nil {
		t.Fatalf("expected resolved message, got %+v err=%v", msg, err)
	}
	if msg.AudioIndex != 3 || msg.ActionType != content.ActionDo {
		t.Fatalf("unexpected record: %+v", msg)
	}
}

func TestActiveProfileDoesNotExpire(t *testing.T) {
	ctx := context.Background()
	day := 24 * time.Hour
	clock := time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)
	kv := store.NewExpiringMemoryKV(30*day, func() time.Time { return clock })

	lib := library.New("fortune", "Fortune",
		[]content.Mood{"good"},
		[]content.Context{"still"},
		map[content.Mood]map[content.Context][]content.Message{
			"good": {"still": {{ActionType: content.ActionBreathe, Message: "A", DisplayTime: 5}}},
		},
	)
	svc := flow.NewService(library.NewRegistry(lib), kv, rand.New(rand.NewSource(1)))

	profile, err := svc.Start(ctx, "fortune")
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}

	clock = clock.Add(20 * day)
	if _, err := svc.ChooseMood(ctx, profile.ID, "good"); err != nil {
		t.Fatalf("ChooseMood err: %v", err)
	}
	clock = clock.Add(20 * day)
	if _, err := svc.ChooseContext(ctx, profile.ID, "still"); err != nil {
		t.Fatalf("ChooseContext after 40 days err: %v", err)
	}
	clock = clock.Add(20 * day)

	current, err := svc.Current(ctx, profile.ID)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}
	if current.Library != "fortune" || current.Mood != "good" || current.Context != "still" {
		t.Fatalf("unexpected profile %+v", current)
	}

	clock = clock.Add(31 * day)
	if _, err := svc.Current(ctx, profile.ID); !errors.Is(err, flow.ErrProfileNotFound) {
		t.Fatalf("idle profile should expire, got %v", err)
	}
}
