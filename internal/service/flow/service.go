// Package flow drives the mood → context → message → reveal sequence and owns
// the single persisted selection slot of each profile.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/zhouzirui/mood-fortune/backend/internal/library"
	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
	"github.com/zhouzirui/mood-fortune/backend/internal/model/flow"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/selection"
	"github.com/zhouzirui/mood-fortune/backend/internal/store"
)

var (
	ErrLibraryRequired   = errors.New("library is required")
	ErrLibraryNotFound   = errors.New("library not found")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrUnknownMood       = errors.New("unknown mood")
	ErrUnknownContext    = errors.New("unknown context")
	ErrInvalidTransition = errors.New("invalid flow transition")
	ErrNoContent         = errors.New("no content for mood and context")
)

// Service persists flow state through typed slots on a KV store.
type Service struct {
	libraries library.Store
	rand      selection.RandSource

	library  *store.Slot[string]
	stage    *store.Slot[flow.Stage]
	mood     *store.Slot[content.Mood]
	context  *store.Slot[content.Context]
	selected *store.Slot[content.Selected]
}

// NewService binds the flow to a library store, a KV and a random source.
func NewService(libraries library.Store, kv store.KV, rnd selection.RandSource) *Service {
	if rnd == nil {
		rnd = selection.DefaultSource()
	}
	return &Service{
		libraries: libraries,
		rand:      rnd,
		library:   store.NewSlot[string](kv, store.KeyLibrary),
		stage:     store.NewSlot[flow.Stage](kv, store.KeyStage),
		mood:      store.NewSlot[content.Mood](kv, store.KeyMood),
		context:   store.NewSlot[content.Context](kv, store.KeyContext),
		selected:  store.NewSlot[content.Selected](kv, store.KeySelectedMessage),
	}
}

// Start creates a profile bound to a library in the none stage.
func (s *Service) Start(ctx context.Context, libraryName string) (flow.Profile, error) {
	if libraryName == "" {
		return flow.Profile{}, ErrLibraryRequired
	}
	if _, ok := s.libraries.FindByName(libraryName); !ok {
		return flow.Profile{}, ErrLibraryNotFound
	}

	profile := flow.Profile{
		ID:      uuid.NewString(),
		Library: libraryName,
		Stage:   flow.StageNone,
	}
	if err := s.library.Set(ctx, profile.ID, libraryName); err != nil {
		return flow.Profile{}, err
	}
	if err := s.stage.Set(ctx, profile.ID, flow.StageNone); err != nil {
		return flow.Profile{}, err
	}

	log.Printf("[flow] started profile=%s library=%s", profile.ID, libraryName)
	return profile, nil
}

// Current loads the profile state.
func (s *Service) Current(ctx context.Context, profileID string) (flow.Profile, error) {
	libraryName, ok, err := s.library.Get(ctx, profileID)
	if err != nil {
		return flow.Profile{}, err
	}
	if !ok {
		return flow.Profile{}, ErrProfileNotFound
	}

	profile := flow.Profile{ID: profileID, Library: libraryName, Stage: flow.StageNone}

	if stage, ok, err := s.stage.Get(ctx, profileID); err != nil {
		return flow.Profile{}, err
	} else if ok {
		profile.Stage = stage
	}
	if mood, ok, err := s.mood.Get(ctx, profileID); err != nil {
		return flow.Profile{}, err
	} else if ok {
		profile.Mood = mood
	}
	if c, ok, err := s.context.Get(ctx, profileID); err != nil {
		return flow.Profile{}, err
	} else if ok {
		profile.Context = c
	}
	if selected, ok, err := s.selected.Get(ctx, profileID); err != nil {
		return flow.Profile{}, err
	} else if ok {
		profile.Selected = &selected
	}

	return profile, nil
}

// ChooseMood records the mood. Choosing again at any later stage starts the
// flow over from that mood.
func (s *Service) ChooseMood(ctx context.Context, profileID string, mood content.Mood) (flow.Profile, error) {
	profile, lib, err := s.load(ctx, profileID)
	if err != nil {
		return flow.Profile{}, err
	}
	if !lib.HasMood(mood) {
		return flow.Profile{}, fmt.Errorf("%w: %q", ErrUnknownMood, mood)
	}

	if err := s.context.Clear(ctx, profileID); err != nil {
		return flow.Profile{}, err
	}
	if err := s.selected.Clear(ctx, profileID); err != nil {
		return flow.Profile{}, err
	}
	if err := s.mood.Set(ctx, profileID, mood); err != nil {
		return flow.Profile{}, err
	}
	if err := s.stage.Set(ctx, profileID, flow.StageMoodChosen); err != nil {
		return flow.Profile{}, err
	}

	profile.Mood = mood
	profile.Context = ""
	profile.Selected = nil
	profile.Stage = flow.StageMoodChosen
	return profile, nil
}

// ChooseContext records the context. It requires a mood and is allowed again
// before a message is drawn.
func (s *Service) ChooseContext(ctx context.Context, profileID string, c content.Context) (flow.Profile, error) {
	profile, lib, err := s.load(ctx, profileID)
	if err != nil {
		return flow.Profile{}, err
	}
	if profile.Stage != flow.StageMoodChosen && profile.Stage != flow.StageContextChosen {
		return flow.Profile{}, fmt.Errorf("%w: cannot choose context from %s", ErrInvalidTransition, profile.Stage)
	}
	if !lib.HasContext(c) {
		return flow.Profile{}, fmt.Errorf("%w: %q", ErrUnknownContext, c)
	}

	if err := s.context.Set(ctx, profileID, c); err != nil {
		return flow.Profile{}, err
	}
	if err := s.stage.Set(ctx, profileID, flow.StageContextChosen); err != nil {
		return flow.Profile{}, err
	}

	profile.Context = c
	profile.Stage = flow.StageContextChosen
	return profile, nil
}

// Draw picks a message and overwrites the selection slot. Drawing again after
// a selection excludes the previous pick when the bucket allows it.
func (s *Service) Draw(ctx context.Context, profileID string) (flow.Profile, content.Message, error) {
	profile, lib, err := s.load(ctx, profileID)
	if err != nil {
		return flow.Profile{}, content.Message{}, err
	}

	switch profile.Stage {
	case flow.StageContextChosen, flow.StageMessageSelected, flow.StageRevealed:
	default:
		return flow.Profile{}, content.Message{}, fmt.Errorf("%w: cannot draw from %s", ErrInvalidTransition, profile.Stage)
	}

	var exclude *content.Message
	if profile.Selected != nil {
		exclude = s.findPrevious(lib, profile)
	}

	engine := selection.NewEngine(lib, s.rand)
	msg, ok := engine.RandomMessage(profile.Mood, profile.Context, exclude)
	if !ok {
		return flow.Profile{}, content.Message{}, ErrNoContent
	}

	selected := msg.Selected()
	if err := s.selected.Set(ctx, profileID, selected); err != nil {
		return flow.Profile{}, content.Message{}, err
	}
	if err := s.stage.Set(ctx, profileID, flow.StageMessageSelected); err != nil {
		return flow.Profile{}, content.Message{}, err
	}

	profile.Selected = &selected
	profile.Stage = flow.StageMessageSelected
	log.Printf("[flow] profile=%s drew %s/%s audio=%d", profileID, profile.Mood, profile.Context, msg.AudioIndex)
	return profile, msg, nil
}

// Reveal marks the selected message as shown.
func (s *Service) Reveal(ctx context.Context, profileID string) (flow.Profile, error) {
	profile, _, err := s.load(ctx, profileID)
	if err != nil {
		return flow.Profile{}, err
	}
	if profile.Stage != flow.StageMessageSelected && profile.Stage != flow.StageRevealed {
		return flow.Profile{}, fmt.Errorf("%w: cannot reveal from %s", ErrInvalidTransition, profile.Stage)
	}

	if err := s.stage.Set(ctx, profileID, flow.StageRevealed); err != nil {
		return flow.Profile{}, err
	}
	profile.Stage = flow.StageRevealed
	return profile, nil
}

// Restart clears mood, context and the selection unconditionally.
func (s *Service) Restart(ctx context.Context, profileID string) (flow.Profile, error) {
	profile, _, err := s.load(ctx, profileID)
	if err != nil {
		return flow.Profile{}, err
	}

	for _, clearSlot := range []func(context.Context, string) error{
		s.selected.Clear,
		s.context.Clear,
		s.mood.Clear,
	} {
		if err := clearSlot(ctx, profileID); err != nil {
			return flow.Profile{}, err
		}
	}
	if err := s.stage.Set(ctx, profileID, flow.StageNone); err != nil {
		return flow.Profile{}, err
	}

	log.Printf("[flow] profile=%s restarted", profileID)
	return flow.Profile{ID: profileID, Library: profile.Library, Stage: flow.StageNone}, nil
}

// Message resolves the stored selection back to its full library record, if it
// still matches one in the profile's bucket.
func (s *Service) Message(ctx context.Context, profileID string) (flow.Profile, *content.Message, error) {
	profile, lib, err := s.load(ctx, profileID)
	if err != nil {
		return flow.Profile{}, nil, err
	}
	if profile.Selected == nil {
		return profile, nil, nil
	}
	return profile, s.findPrevious(lib, profile), nil
}

func (s *Service) load(ctx context.Context, profileID string) (flow.Profile, *library.Library, error) {
	profile, err := s.Current(ctx, profileID)
	if err != nil {
		return flow.Profile{}, nil, err
	}
	lib, ok := s.libraries.FindByName(profile.Library)
	if !ok {
		return flow.Profile{}, nil, ErrLibraryNotFound
	}
	return profile, lib, nil
}

// findPrevious maps the stored title/message back onto the bucket entry so the
// exclusion can compare by text and audio index.
func (s *Service) findPrevious(lib *library.Library, profile flow.Profile) *content.Message {
	for _, candidate := range lib.AllMessages(profile.Mood, profile.Context) {
		if candidate.Message == profile.Selected.Message && candidate.Title == profile.Selected.Title {
			found := candidate
			return &found
		}
	}
	return nil
}
