package selection

import (
	"math/rand"
	"sync"
	"time"
)

// RandSource is the randomness the engine draws from. *rand.Rand satisfies it,
// so tests can pass a seeded generator and assert exact draws.
type RandSource interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// lockedSource guards a *rand.Rand, which is not safe for concurrent use.
type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewLockedSource wraps a seeded generator for use across goroutines.
func NewLockedSource(seed int64) RandSource {
	return &lockedSource{rnd: rand.New(rand.NewSource(seed))}
}

// DefaultSource returns a time-seeded source for production use.
func DefaultSource() RandSource {
	return NewLockedSource(time.Now().UnixNano())
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

func (s *lockedSource) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd.Shuffle(n, swap)
}
