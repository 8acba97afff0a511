// Package feed packages selection results into the shape the presentation
// layer renders, converting every failure into data.
package feed

import (
	"fmt"
	"log"

	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
)

// Selector is the part of the selection engine the adapter depends on.
type Selector interface {
	AllMessages(mood content.Mood, ctx content.Context) []content.Message
	RandomMessage(mood content.Mood, ctx content.Context, exclude *content.Message) (content.Message, bool)
	RandomMessages(mood content.Mood, ctx content.Context, count int) []content.Message
}

// Query describes one recomputation.
type Query struct {
	Mood    content.Mood    `json:"mood"`
	Context content.Context `json:"context"`
	Count   int             `json:"count"`
	Shuffle bool            `json:"shuffle"`
}

// Result is always safe to render, including when Error is set.
type Result struct {
	Messages      []content.Message `json:"messages"`
	RandomMessage *content.Message  `json:"randomMessage"`
	AllMessages   []content.Message `json:"allMessages"`
	IsLoading     bool              `json:"isLoading"`
	Error         string            `json:"error,omitempty"`
}

// Empty is the neutral result.
func Empty() Result {
	return Result{
		Messages:    []content.Message{},
		AllMessages: []content.Message{},
	}
}

// Adapter recomputes a Result from a Query.
type Adapter struct {
	selector Selector
}

// New creates an adapter over selector.
func New(selector Selector) *Adapter {
	return &Adapter{selector: selector}
}

// Resolve computes the result for q. Unset mood or context short-circuits to
// the neutral result without touching the selector. Failures, including
// panics from the selector, come back as a neutral result with Error set.
func (a *Adapter) Resolve(q Query) (result Result) {
	if q.Mood == "" || q.Context == "" {
		return Empty()
	}
	if a == nil || a.selector == nil {
		return failed(q, "content selector is not configured")
	}

	defer func() {
		if r := recover(); r != nil {
			result = failed(q, fmt.Sprint(r))
		}
	}()

	count := q.Count
	if count <= 0 {
		count = 1
	}

	all := a.selector.AllMessages(q.Mood, q.Context)
	for i, msg := range all {
		if msg.Message == "" {
			return failed(q, fmt.Sprintf("malformed entry at index %d", i))
		}
	}

	var messages []content.Message
	if q.Shuffle {
		messages = a.selector.RandomMessages(q.Mood, q.Context, count)
	} else {
		messages = append([]content.Message{}, all...)
		if count < len(messages) {
			messages = messages[:count]
		}
	}

	result = Result{
		Messages:    nonNil(messages),
		AllMessages: nonNil(all),
	}
	if pick, ok := a.selector.RandomMessage(q.Mood, q.Context, nil); ok {
		result.RandomMessage = &pick
	}
	return result
}

func failed(q Query, reason string) Result {
	log.Printf("[feed] selection failed for %s/%s: %s", q.Mood, q.Context, reason)
	result := Empty()
	result.Error = fmt.Sprintf("failed to load content for %s/%s: %s", q.Mood, q.Context, reason)
	return result
}

func nonNil(messages []content.Message) []content.Message {
	if messages == nil {
		return []content.Message{}
	}
	return messages
}
