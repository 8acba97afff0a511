// Package store provides the per-profile key/value slots that replace the
// browser's local storage.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Fixed slot keys.
const (
	KeySelectedMessage = "selectedMessage"
	KeyMood            = "mood"
	KeyContext         = "context"
	KeyStage           = "stage"
	KeyLibrary         = "library"
	KeyAccess          = "access"
)

var ErrProfileRequired = errors.New("profile id is required")

// profileKeys expire together: a write to any of them renews all of them.
var profileKeys = []string{KeyLibrary, KeyStage, KeyMood, KeyContext, KeySelectedMessage}

// Persistent reports whether key is exempt from profile expiry. Access
// records are keyed by user id and must outlive any one session.
func Persistent(key string) bool {
	return key == KeyAccess
}

// KV is a last-writer-wins byte store addressed by profile and key.
type KV interface {
	Get(ctx context.Context, profile, key string) ([]byte, bool, error)
	Set(ctx context.Context, profile, key string, value []byte) error
	Delete(ctx context.Context, profile, key string) error
	Close() error
}

// Slot is a typed view over one key of a KV, encoded as JSON.
type Slot[T any] struct {
	kv  KV
	key string
}

// NewSlot binds a typed slot to key.
func NewSlot[T any](kv KV, key string) *Slot[T] {
	return &Slot[T]{kv: kv, key: key}
}

// Key returns the slot key.
func (s *Slot[T]) Key() string { return s.key }

// Get reads the slot. The bool is false when nothing is stored.
func (s *Slot[T]) Get(ctx context.Context, profile string) (T, bool, error) {
	var zero T
	if profile == "" {
		return zero, false, ErrProfileRequired
	}

	raw, ok, err := s.kv.Get(ctx, profile, s.key)
	if err != nil || !ok {
		return zero, false, err
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return zero, false, fmt.Errorf("decode %s slot: %w", s.key, err)
	}
	return value, true, nil
}

// Set overwrites the slot.
func (s *Slot[T]) Set(ctx context.Context, profile string, value T) error {
	if profile == "" {
		return ErrProfileRequired
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s slot: %w", s.key, err)
	}
	return s.kv.Set(ctx, profile, s.key, raw)
}

// Clear removes the slot. Clearing an empty slot is not an error.
func (s *Slot[T]) Clear(ctx context.Context, profile string) error {
	if profile == "" {
		return ErrProfileRequired
	}
	return s.kv.Delete(ctx, profile, s.key)
}
