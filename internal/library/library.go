package library

import (
	"fmt"
	"maps"
	"slices"

	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
)

// Library maps mood × context to an ordered list of messages. It is built once
// and never mutated afterwards, so concurrent readers need no locking.
type Library struct {
	name     string
	title    string
	moods    []content.Mood
	contexts []content.Context
	buckets  map[content.Mood]map[content.Context][]content.Message
}

// ValidationResult reports structural problems found by Validate.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// New builds a library over the declared enumerations. Buckets for undeclared
// pairs are kept for validation but are never served.
func New(name, title string, moods []content.Mood, contexts []content.Context, buckets map[content.Mood]map[content.Context][]content.Message) *Library {
	copied := make(map[content.Mood]map[content.Context][]content.Message, len(buckets))
	for mood, byContext := range buckets {
		inner := make(map[content.Context][]content.Message, len(byContext))
		for ctx, messages := range byContext {
			inner[ctx] = append([]content.Message(nil), messages...)
		}
		copied[mood] = inner
	}

	return &Library{
		name:     name,
		title:    title,
		moods:    append([]content.Mood(nil), moods...),
		contexts: append([]content.Context(nil), contexts...),
		buckets:  copied,
	}
}

// Name returns the library identifier used in routes.
func (l *Library) Name() string { return l.name }

// Title returns the display title.
func (l *Library) Title() string { return l.title }

// Moods returns the declared moods in declaration order.
func (l *Library) Moods() []content.Mood {
	return append([]content.Mood(nil), l.moods...)
}

// Contexts returns the declared contexts in declaration order.
func (l *Library) Contexts() []content.Context {
	return append([]content.Context(nil), l.contexts...)
}

// HasMood reports whether mood is part of the declared enumeration.
func (l *Library) HasMood(mood content.Mood) bool {
	for _, m := range l.moods {
		if m == mood {
			return true
		}
	}
	return false
}

// HasContext reports whether ctx is part of the declared enumeration.
func (l *Library) HasContext(ctx content.Context) bool {
	for _, c := range l.contexts {
		if c == ctx {
			return true
		}
	}
	return false
}

// AllMessages returns a copy of the bucket for mood/ctx. Unset, unknown or
// empty pairs yield an empty slice; this never fails.
func (l *Library) AllMessages(mood content.Mood, ctx content.Context) []content.Message {
	if l == nil || mood == "" || ctx == "" {
		return []content.Message{}
	}
	if !l.HasMood(mood) || !l.HasContext(ctx) {
		return []content.Message{}
	}
	return append([]content.Message{}, l.buckets[mood][ctx]...)
}

// Size returns the number of messages across all declared buckets.
func (l *Library) Size() int {
	total := 0
	for _, mood := range l.moods {
		for _, ctx := range l.contexts {
			total += len(l.buckets[mood][ctx])
		}
	}
	return total
}

// Validate checks that every declared pair has content and every message
// carries actionType, message and displayTime. It is a design-time guard and
// does not affect lookups.
func (l *Library) Validate() ValidationResult {
	var errs []string

	for _, mood := range l.moods {
		for _, ctx := range l.contexts {
			messages := l.buckets[mood][ctx]
			if len(messages) == 0 {
				errs = append(errs, fmt.Sprintf("%s: %s/%s has no messages", l.name, mood, ctx))
				continue
			}
			for i, msg := range messages {
				errs = append(errs, validateMessage(l.name, mood, ctx, i, msg)...)
			}
		}
	}

	// 按键排序，保证多次校验输出一致
	for _, mood := range slices.Sorted(maps.Keys(l.buckets)) {
		if !l.HasMood(mood) {
			errs = append(errs, fmt.Sprintf("%s: content for undeclared mood %q", l.name, mood))
			continue
		}
		for _, ctx := range slices.Sorted(maps.Keys(l.buckets[mood])) {
			if !l.HasContext(ctx) {
				errs = append(errs, fmt.Sprintf("%s: content for undeclared context %q under mood %q", l.name, ctx, mood))
			}
		}
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

func validateMessage(name string, mood content.Mood, ctx content.Context, idx int, msg content.Message) []string {
	var errs []string
	prefix := fmt.Sprintf("%s: %s/%s[%d]", name, mood, ctx, idx)

	if msg.ActionType == "" {
		errs = append(errs, prefix+" missing actionType")
	} else if !msg.ActionType.Known() {
		errs = append(errs, fmt.Sprintf("%s unknown actionType %q", prefix, msg.ActionType))
	}
	if msg.Message == "" {
		errs = append(errs, prefix+" missing message")
	}
	if msg.DisplayTime <= 0 {
		errs = append(errs, prefix+" missing displayTime")
	}
	return errs
}
