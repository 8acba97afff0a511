package content

import "strings"

// ActionType tags how a message should be presented. It never affects selection.
type ActionType string

const (
	ActionDo        ActionType = "ACTION"
	ActionVisualize ActionType = "VISUALIZE"
	ActionRepeat    ActionType = "REPEAT"
	ActionBreathe   ActionType = "BREATHE"
	ActionListen    ActionType = "LISTEN"
	ActionReflect   ActionType = "REFLECT"
)

// Known reports whether the action type is one of the declared tags.
func (a ActionType) Known() bool {
	switch a {
	case ActionDo, ActionVisualize, ActionRepeat, ActionBreathe, ActionListen, ActionReflect:
		return true
	default:
		return false
	}
}

// Mood is the user-reported emotional state.
type Mood string

// Context is the user-reported situational category.
type Context string

// Message is one candidate inside a mood/context bucket.
type Message struct {
	ActionType  ActionType `json:"actionType" yaml:"actionType"`
	Message     string     `json:"message" yaml:"message"`
	Title       string     `json:"title,omitempty" yaml:"title,omitempty"`
	DisplayTime int        `json:"displayTime" yaml:"displayTime"`
	AudioIndex  int        `json:"audioIndex,omitempty" yaml:"audioIndex,omitempty"`
}

// SameAs compares two messages by text and audio index, the identity used for exclusion.
func (m Message) SameAs(other Message) bool {
	return m.Message == other.Message && m.AudioIndex == other.AudioIndex
}

// Selected narrows the message to what the reveal step keeps.
func (m Message) Selected() Selected {
	return Selected{Title: m.Title, Message: m.Message}
}

// Selected is the single message currently chosen for a profile. It does not
// remember which mood/context produced it.
type Selected struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// SpokenText joins title and body the way the audio step reads them.
func (s Selected) SpokenText() string {
	title := strings.TrimSpace(s.Title)
	body := strings.TrimSpace(s.Message)
	if title == "" {
		return body
	}
	if body == "" {
		return title
	}
	if strings.HasSuffix(title, ".") || strings.HasSuffix(title, "!") || strings.HasSuffix(title, "?") {
		return title + " " + body
	}
	return title + ". " + body
}
