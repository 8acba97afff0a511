package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/mood-fortune/backend/internal/config"
	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
)

// ErrNothingToReflect 没有选中的消息时无法生成感悟。
var ErrNothingToReflect = errors.New("no selected message to reflect on")

// Source 标识感悟的来源
type Source string

const (
	SourceModel    Source = "model"
	SourceTemplate Source = "template"
)

// ReflectionInput 生成感悟所需的上下文
type ReflectionInput struct {
	ProfileID  string
	Library    string
	Mood       string
	Context    string
	ActionType string
	Selected   content.Selected
}

// Reflection 一段个人化感悟
type Reflection struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
}

// Service 使用大模型把选中的消息扩写为一段感悟，模型不可用时回退到模板。
type Service struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	prompts *PromptManager
	stream  bool
}

// NewService 根据配置创建服务。未配置模型或关闭感悟时只使用模板。
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	if !cfg.Enabled() || !cfg.ReflectionEnabled {
		log.Println("[ai] reflection model disabled, using templates")
		return &Service{prompts: NewPromptManager(), stream: cfg.StreamResponse}, nil
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg.StreamResponse)
}

// NewServiceWithModel 使用给定模型构建 prompt -> model 链。
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, stream bool) (*Service, error) {
	svc := &Service{prompts: NewPromptManager(), stream: stream}
	if chatModel == nil {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile reflection chain: %w", err)
	}
	svc.chain = runnable
	return svc, nil
}

// ModelEnabled 是否接入了大模型
func (s *Service) ModelEnabled() bool {
	return s != nil && s.chain != nil
}

// Generate 生成一段感悟。模型失败时记录日志并返回模板结果。
func (s *Service) Generate(ctx context.Context, in ReflectionInput) (Reflection, error) {
	if strings.TrimSpace(in.Selected.Message) == "" {
		return Reflection{}, ErrNothingToReflect
	}

	if s.ModelEnabled() {
		msg, err := s.chain.Invoke(ctx, s.buildChainInput(in))
		if err == nil && msg != nil && strings.TrimSpace(msg.Content) != "" {
			log.Printf("[ai] generated reflection for profile=%s, length=%d", in.ProfileID, len(msg.Content))
			return Reflection{Text: strings.TrimSpace(msg.Content), Source: SourceModel}, nil
		}
		if err != nil {
			log.Printf("[ai] reflection chain failed, use template: %v", err)
		}
	}

	return Reflection{Text: TemplateReflection(in), Source: SourceTemplate}, nil
}

// Stream 流式输出感悟。模型关闭流式或不可用时，按句切分模板结果。
func (s *Service) Stream(ctx context.Context, in ReflectionInput) (*schema.StreamReader[*schema.Message], Source, error) {
	if strings.TrimSpace(in.Selected.Message) == "" {
		return nil, "", ErrNothingToReflect
	}

	if s.ModelEnabled() && s.stream {
		stream, err := s.chain.Stream(ctx, s.buildChainInput(in))
		if err == nil {
			return stream, SourceModel, nil
		}
		log.Printf("[ai] reflection stream failed, use template: %v", err)
	} else if s.ModelEnabled() {
		reflection, err := s.Generate(ctx, in)
		if err != nil {
			return nil, "", err
		}
		return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(reflection.Text, nil)}), reflection.Source, nil
	}

	return templateStream(TemplateReflection(in)), SourceTemplate, nil
}

func (s *Service) buildChainInput(in ReflectionInput) map[string]any {
	return map[string]any{
		"system": s.prompts.BuildSystemPrompt(in),
		"query":  s.prompts.BuildUserPrompt(in),
	}
}

func templateStream(text string) *schema.StreamReader[*schema.Message] {
	sentences := splitSentences(text)
	chunks := make([]*schema.Message, 0, len(sentences))
	for _, sentence := range sentences {
		chunks = append(chunks, schema.AssistantMessage(sentence, nil))
	}
	return schema.StreamReaderFromArray(chunks)
}

// splitSentences 按句号、问号、感叹号切分，保留标点与后随空格。
func splitSentences(text string) []string {
	var (
		parts []string
		start int
	)
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i + 1
		if end < len(text) && text[end] == ' ' {
			end++
		}
		parts = append(parts, text[start:end])
		start = end
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}
