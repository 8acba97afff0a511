package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero 表示不过期
}

// MemoryKV keeps slots in process memory. With a TTL it expires profiles the
// same way the redis driver does.
type MemoryKV struct {
	mu    sync.RWMutex
	items map[string]map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryKV returns an empty in-memory store that never expires anything.
func NewMemoryKV() *MemoryKV {
	return NewExpiringMemoryKV(0, nil)
}

// NewExpiringMemoryKV expires a profile's slots ttl after its last write.
// Persistent keys are kept forever. A nil now uses the wall clock.
func NewExpiringMemoryKV(ttl time.Duration, now func() time.Time) *MemoryKV {
	if now == nil {
		now = time.Now
	}
	return &MemoryKV{
		items: make(map[string]map[string]memoryEntry),
		ttl:   ttl,
		now:   now,
	}
}

func (m *MemoryKV) Get(_ context.Context, profile, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.items[profile][key]
	if !ok || m.expired(entry) {
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (m *MemoryKV) Set(_ context.Context, profile, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slots, ok := m.items[profile]
	if !ok {
		slots = make(map[string]memoryEntry)
		m.items[profile] = slots
	}

	var deadline time.Time
	if m.ttl > 0 && !Persistent(key) {
		deadline = m.now().Add(m.ttl)
		for other, entry := range slots {
			switch {
			case Persistent(other):
			case m.expired(entry):
				delete(slots, other)
			default:
				entry.expiresAt = deadline
				slots[other] = entry
			}
		}
	}

	slots[key] = memoryEntry{value: append([]byte(nil), value...), expiresAt: deadline}
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, profile, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slots, ok := m.items[profile]; ok {
		delete(slots, key)
		if len(slots) == 0 {
			delete(m.items, profile)
		}
	}
	return nil
}

func (m *MemoryKV) Close() error { return nil }

func (m *MemoryKV) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt)
}
