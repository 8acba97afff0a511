package speech

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/zhouzirui/mood-fortune/backend/internal/analysis/emotion"
	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
	"github.com/zhouzirui/mood-fortune/backend/internal/model/speech"
)

// ErrNothingToSay 投递请求没有可朗读的文本。
var ErrNothingToSay = errors.New("delivery has no text to speak")

type synthesizer interface {
	Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error)
}

// Service 语音服务：把选中的消息交给 TTS 朗读。
type Service struct {
	config *speech.SpeechConfig
	tts    synthesizer
}

// NewService 创建语音服务实例
func NewService(config *speech.SpeechConfig) *Service {
	return &Service{
		config: config,
		tts:    NewTTSClient(config),
	}
}

// SynthesizeSpeech 文字转语音
func (s *Service) SynthesizeSpeech(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.tts.Synthesize(ctx, req)
}

// Deliver 朗读一条选中的消息。语音按心情挑选，情绪参数由文本与心情共同决定。
func (s *Service) Deliver(ctx context.Context, req speech.DeliveryRequest) (*speech.TTSResponse, error) {
	text := content.Selected{Title: req.Title, Message: req.Message}.SpokenText()
	if strings.TrimSpace(text) == "" {
		return nil, ErrNothingToSay
	}

	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = VoiceForMood(req.Mood)
	}
	if voice == "" && s.config != nil {
		voice = s.config.TTSVoice
	}

	decision := emotion.Analyze(req.Mood, text)
	ttsReq := &speech.TTSRequest{
		SessionID: req.ProfileID,
		Text:      text,
		Voice:     voice,
		Speed:     req.Speed,
		Volume:    req.Volume,
		Format:    req.Format,
		Language:  req.Language,
	}
	if req.Speed <= 0 && isCalmingAction(req.ActionType) {
		ttsReq.Speed = 0.9
	}
	if enable, label, scale := ComputeEmotionParameters(voice, decision); enable {
		ttsReq.Emotion = label
		ttsReq.EmotionScale = scale
	}

	log.Printf("[speech] deliver profile=%s voice=%s emotion=%s scale=%.1f", req.ProfileID, voice, ttsReq.Emotion, ttsReq.EmotionScale)
	return s.SynthesizeSpeech(ctx, ttsReq)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config == nil || s.config.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, time.Duration(s.config.Timeout)*time.Second)
}

// 呼吸、想象类练习读得慢一点。
func isCalmingAction(action string) bool {
	switch content.ActionType(strings.ToUpper(strings.TrimSpace(action))) {
	case content.ActionBreathe, content.ActionVisualize, content.ActionListen:
		return true
	default:
		return false
	}
}
