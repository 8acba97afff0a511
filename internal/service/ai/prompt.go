package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/mood-fortune/backend/internal/analysis/emotion"
)

// PromptTemplate 每个内容库的叙述口吻
type PromptTemplate struct {
	SystemPrompt string
	ToneHints    []string
	Rules        []string
}

// PromptManager 按内容库名管理模板
type PromptManager struct {
	templates map[string]*PromptTemplate
}

// NewPromptManager creates a prompt manager with the built-in library templates.
func NewPromptManager() *PromptManager {
	manager := &PromptManager{templates: make(map[string]*PromptTemplate)}
	manager.loadDefaultTemplates()
	return manager
}

// BuildSystemPrompt 生成系统提示词，未知内容库使用通用模板。
func (pm *PromptManager) BuildSystemPrompt(in ReflectionInput) string {
	tmpl, ok := pm.templates[in.Library]
	if !ok {
		tmpl = pm.templates[""]
	}

	var builder strings.Builder
	builder.WriteString(tmpl.SystemPrompt)
	if len(tmpl.ToneHints) > 0 {
		builder.WriteString("\n\nTone:\n- ")
		builder.WriteString(strings.Join(tmpl.ToneHints, "\n- "))
	}
	if len(tmpl.Rules) > 0 {
		builder.WriteString("\n\nRules:\n- ")
		builder.WriteString(strings.Join(tmpl.Rules, "\n- "))
	}

	decision := emotion.Analyze(in.Mood, in.Selected.SpokenText())
	if desc := describeEmotion(decision.Emotion); desc != "" {
		builder.WriteString("\n\nReader state: ")
		builder.WriteString(desc)
		builder.WriteString(fmt.Sprintf(" Intensity about %.1f of 5.", decision.Scale))
	}
	return builder.String()
}

// BuildUserPrompt 把选中的消息组织成用户提问。
func (pm *PromptManager) BuildUserPrompt(in ReflectionInput) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "I am feeling %s", nonEmpty(in.Mood, "unsure"))
	if in.Context != "" {
		fmt.Fprintf(&builder, " and my moment is %q", in.Context)
	}
	builder.WriteString(".\nThe message I drew:\n")
	builder.WriteString(in.Selected.SpokenText())
	if in.ActionType != "" {
		fmt.Fprintf(&builder, "\nIt is a %s practice.", strings.ToLower(in.ActionType))
	}
	builder.WriteString("\nWrite my reflection.")
	return builder.String()
}

func (pm *PromptManager) loadDefaultTemplates() {
	pm.templates[""] = &PromptTemplate{
		SystemPrompt: "You are a calm companion who turns a short wellness message into one personal reflection paragraph.",
		ToneHints:    []string{"warm, plain English", "second person"},
		Rules: []string{
			"one paragraph, at most 80 words",
			"stay with the drawn message, do not invent a new exercise",
			"no medical or diagnostic language",
		},
	}

	pm.templates["fortune"] = &PromptTemplate{
		SystemPrompt: "You are the voice inside a fortune cookie that has just been cracked open. Expand the fortune into a short reflection the reader can act on today.",
		ToneHints:    []string{"light and encouraging", "a hint of playfulness when the mood is good", "grounded when the mood is low"},
		Rules: []string{
			"one paragraph, at most 80 words",
			"end with the single next step from the message",
			"no medical or diagnostic language",
		},
	}

	pm.templates["stillzone"] = &PromptTemplate{
		SystemPrompt: "You are a quiet guide in the Still Zone. Expand the practice into a slow, spoken-style reflection.",
		ToneHints:    []string{"slow pacing", "short sentences", "soft imagery"},
		Rules: []string{
			"one paragraph, at most 70 words",
			"suitable to be read aloud",
			"never push the reader to do more than the practice asks",
		},
	}
}

func describeEmotion(label emotion.Label) string {
	switch label {
	case emotion.Happy:
		return "The reader feels bright; keep the energy and affirm it."
	case emotion.Sad:
		return "The reader feels low; be gentle and understanding."
	case emotion.Excited:
		return "The reader has momentum; match it without overhyping."
	case emotion.Tender:
		return "The reader wants softness; slow down and stay gentle."
	case emotion.Comfort:
		return "The reader needs steadiness; offer safety and presence."
	case emotion.Magnetic:
		return "The reader wants clear direction; be steady and confident."
	case emotion.Neutral:
		return "The reader feels even; keep a clear, friendly tone."
	default:
		return ""
	}
}

func nonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
