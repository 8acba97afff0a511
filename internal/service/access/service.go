// Package access tracks Still Zone trial and subscription state per user.
package access

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"github.com/zhouzirui/mood-fortune/backend/internal/store"
)

// State is the access level of a user.
type State string

const (
	StateNone       State = "none"
	StateTrial      State = "trial"
	StateSubscribed State = "subscribed"
	StateExpired    State = "expired"
)

var (
	ErrUserRequired = errors.New("user id is required")
	ErrTrialUsed    = errors.New("trial already used")
	ErrAccessDenied = errors.New("still zone access requires an active trial or subscription")
)

// record is what gets persisted in the access slot.
type record struct {
	TrialStartedAt *time.Time `json:"trialStartedAt,omitempty"`
	SubscribedAt   *time.Time `json:"subscribedAt,omitempty"`
	CanceledAt     *time.Time `json:"canceledAt,omitempty"`
}

// Status is the computed view returned to clients.
type Status struct {
	UserID      string     `json:"userId"`
	State       State      `json:"state"`
	TrialEndsAt *time.Time `json:"trialEndsAt,omitempty"`
	DaysLeft    int        `json:"daysLeft"`
}

// Allowed reports whether Still Zone content may be served.
func (s Status) Allowed() bool {
	return s.State == StateTrial || s.State == StateSubscribed
}

// Service evaluates access against a configured trial length.
type Service struct {
	slot     *store.Slot[record]
	trialLen time.Duration
	now      func() time.Time
}

// NewService creates the service. trialDays < 1 is treated as 1.
func NewService(kv store.KV, trialDays int) *Service {
	if trialDays < 1 {
		trialDays = 1
	}
	return &Service{
		slot:     store.NewSlot[record](kv, store.KeyAccess),
		trialLen: time.Duration(trialDays) * 24 * time.Hour,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Status computes the user's current access.
func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Status{}, ErrUserRequired
	}

	rec, _, err := s.slot.Get(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return s.evaluate(userID, rec), nil
}

// StartTrial begins the one-time trial.
func (s *Service) StartTrial(ctx context.Context, userID string) (Status, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Status{}, ErrUserRequired
	}

	rec, _, err := s.slot.Get(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	if rec.TrialStartedAt != nil {
		return s.evaluate(userID, rec), ErrTrialUsed
	}

	now := s.now()
	rec.TrialStartedAt = &now
	if err := s.slot.Set(ctx, userID, rec); err != nil {
		return Status{}, err
	}

	log.Printf("[access] user=%s started trial", userID)
	return s.evaluate(userID, rec), nil
}

// Subscribe activates a subscription, replacing any earlier cancellation.
func (s *Service) Subscribe(ctx context.Context, userID string) (Status, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Status{}, ErrUserRequired
	}

	rec, _, err := s.slot.Get(ctx, userID)
	if err != nil {
		return Status{}, err
	}

	now := s.now()
	rec.SubscribedAt = &now
	rec.CanceledAt = nil
	if err := s.slot.Set(ctx, userID, rec); err != nil {
		return Status{}, err
	}

	log.Printf("[access] user=%s subscribed", userID)
	return s.evaluate(userID, rec), nil
}

// Cancel ends the subscription. The trial, if any, keeps its own clock.
func (s *Service) Cancel(ctx context.Context, userID string) (Status, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Status{}, ErrUserRequired
	}

	rec, _, err := s.slot.Get(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	if rec.SubscribedAt == nil {
		return s.evaluate(userID, rec), nil
	}

	now := s.now()
	rec.CanceledAt = &now
	if err := s.slot.Set(ctx, userID, rec); err != nil {
		return Status{}, err
	}

	log.Printf("[access] user=%s canceled subscription", userID)
	return s.evaluate(userID, rec), nil
}

// Require returns ErrAccessDenied unless the user may enter the Still Zone.
func (s *Service) Require(ctx context.Context, userID string) (Status, error) {
	status, err := s.Status(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	if !status.Allowed() {
		return status, ErrAccessDenied
	}
	return status, nil
}

func (s *Service) evaluate(userID string, rec record) Status {
	status := Status{UserID: userID, State: StateNone}

	if rec.SubscribedAt != nil && rec.CanceledAt == nil {
		status.State = StateSubscribed
		return status
	}

	if rec.TrialStartedAt == nil {
		if rec.SubscribedAt != nil {
			status.State = StateExpired
		}
		return status
	}

	ends := rec.TrialStartedAt.Add(s.trialLen)
	status.TrialEndsAt = &ends

	remaining := ends.Sub(s.now())
	if remaining <= 0 {
		status.State = StateExpired
		return status
	}

	status.State = StateTrial
	status.DaysLeft = int(math.Ceil(remaining.Hours() / 24))
	return status
}
