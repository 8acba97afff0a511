// Package selection draws messages from a content library.
package selection

import (
	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
)

// Source is the lookup the engine samples from. *library.Library implements it.
type Source interface {
	AllMessages(mood content.Mood, ctx content.Context) []content.Message
}

// Engine picks messages uniformly at random from a Source bucket.
type Engine struct {
	source Source
	rand   RandSource
}

// NewEngine creates an engine. A nil rnd falls back to DefaultSource.
func NewEngine(source Source, rnd RandSource) *Engine {
	if rnd == nil {
		rnd = DefaultSource()
	}
	return &Engine{source: source, rand: rnd}
}

// AllMessages proxies the underlying bucket lookup.
func (e *Engine) AllMessages(mood content.Mood, ctx content.Context) []content.Message {
	if e == nil || e.source == nil {
		return []content.Message{}
	}
	return e.source.AllMessages(mood, ctx)
}

// RandomMessage draws one message from the bucket. Entries equal to exclude
// (by text and audio index) are left out of the draw unless that would leave
// nothing, in which case the whole bucket is used. The bool is false only
// when the bucket itself is empty.
func (e *Engine) RandomMessage(mood content.Mood, ctx content.Context, exclude *content.Message) (content.Message, bool) {
	bucket := e.AllMessages(mood, ctx)
	if len(bucket) == 0 {
		return content.Message{}, false
	}

	pool := bucket
	if exclude != nil {
		filtered := make([]content.Message, 0, len(bucket))
		for _, msg := range bucket {
			if !msg.SameAs(*exclude) {
				filtered = append(filtered, msg)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}

	return pool[e.rand.Intn(len(pool))], true
}

// RandomMessages returns min(count, len(bucket)) distinct entries in random
// order. It never pads or repeats.
func (e *Engine) RandomMessages(mood content.Mood, ctx content.Context, count int) []content.Message {
	if count <= 0 {
		return []content.Message{}
	}

	bucket := append([]content.Message{}, e.AllMessages(mood, ctx)...)
	if len(bucket) == 0 {
		return bucket
	}

	e.rand.Shuffle(len(bucket), func(i, j int) {
		bucket[i], bucket[j] = bucket[j], bucket[i]
	})

	if count < len(bucket) {
		bucket = bucket[:count]
	}
	return bucket
}
