package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
)

var moodOpenings = map[string]string{
	"good":  "You are carrying some light today, and this message is a way to spend it well.",
	"okay":  "Even days are good ground for small steps.",
	"bad":   "Today is heavier than you would like, so keep this small.",
	"awful": "You do not have to fix anything right now.",
}

var actionClosings = map[content.ActionType]string{
	content.ActionDo:        "Pick the smallest version of it and do just that.",
	content.ActionVisualize: "Close your eyes for a moment and let the picture form.",
	content.ActionRepeat:    "Say it once more, slowly, and let it land.",
	content.ActionBreathe:   "Let your next three breaths be a little longer than the last.",
	content.ActionListen:    "Give your attention to what you can hear for a few breaths.",
	content.ActionReflect:   "Notice the first answer that comes, without judging it.",
}

// TemplateReflection 不依赖模型的确定性感悟，相同输入总是得到相同输出。
func TemplateReflection(in ReflectionInput) string {
	opening, ok := moodOpenings[strings.ToLower(in.Mood)]
	if !ok {
		opening = "Here is something to hold onto for the next few minutes."
	}

	closing, ok := actionClosings[content.ActionType(strings.ToUpper(in.ActionType))]
	if !ok {
		closing = "Take it at your own pace."
	}

	body := strings.TrimSpace(in.Selected.Message)
	if title := strings.TrimSpace(in.Selected.Title); title != "" {
		return fmt.Sprintf("%s %q is yours for now: %s %s", opening, title, body, closing)
	}
	return fmt.Sprintf("%s %s %s", opening, body, closing)
}
