package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/zhouzirui/mood-fortune/backend/internal/model/speech"
)

const defaultTTSURL = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"

// 资源 ID：标准音色、声音复刻、豆包 2.0 大模型音色。
const (
	resourceStandard = "volc.service_type.10029"
	resourceClone    = "volc.megatts.default"
	resourceSeed     = "seed-tts-2.0"
)

const (
	sampleRate         = 24000
	ttsAdditions       = `{"disable_markdown_filter":false}`
	resourceMismatched = "resource ID is mismatched with speaker related resource"
)

var errResourceMismatch = errors.New("TTS resource does not match speaker")

var seedVoiceHints = []string{
	"bigtts", "seed", "megatts", "uranus", "venus", "jupiter",
	"saturn", "neptune", "mercury", "pluto", "mars",
}

// TTSClient 火山引擎单向流式 TTS 客户端。
type TTSClient struct {
	config *speech.SpeechConfig
	dialer *websocket.Dialer
}

// NewTTSClient 创建 TTS 客户端
func NewTTSClient(config *speech.SpeechConfig) *TTSClient {
	return &TTSClient{
		config: config,
		dialer: &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
	}
}

type ttsRequestBody struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
		Additions   string         `json:"additions,omitempty"`
		Language    string         `json:"language,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format          string  `json:"format"`
	SampleRate      int     `json:"sample_rate"`
	EnableTimestamp bool    `json:"enable_timestamp"`
	SpeedRatio      float32 `json:"speed_ratio,omitempty"`
	VolumeRatio     float32 `json:"volume_ratio,omitempty"`
	Emotion         string  `json:"emotion,omitempty"`
	EmotionScale    float32 `json:"emotion_scale,omitempty"`
}

type ttsServerFrame struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
	Addition struct {
		Duration string `json:"duration,omitempty"`
	} `json:"addition,omitempty"`
}

// voiceAttempt 一次 speaker + resource 组合的尝试。
type voiceAttempt struct {
	speaker  string
	resource string
}

// Synthesize 合成一段文本。资源与音色不匹配时依次换下一个组合，其他错误直接返回。
func (c *TTSClient) Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("TTS text is empty")
	}

	appKey, accessKey, err := resolveCredentials(c.config)
	if err != nil {
		return nil, err
	}

	attempts := voiceAttempts(req.Voice, c.config.TTSVoice)
	var lastErr error
	for i, attempt := range attempts {
		resp, err := c.synthesizeWith(ctx, req, attempt, appKey, accessKey)
		if err == nil {
			if i > 0 {
				log.Printf("[TTS] fell back to voice=%s resource=%s", attempt.speaker, attempt.resource)
			}
			return resp, nil
		}
		if !errors.Is(err, errResourceMismatch) {
			return nil, err
		}
		log.Printf("[TTS] voice=%s resource=%s mismatch", attempt.speaker, attempt.resource)
		lastErr = err
	}
	return nil, lastErr
}

func (c *TTSClient) synthesizeWith(ctx context.Context, req *speech.TTSRequest, attempt voiceAttempt, appKey, accessKey string) (*speech.TTSResponse, error) {
	connectID := uuid.NewString()

	header := http.Header{}
	header.Set("X-Api-App-Key", appKey)
	header.Set("X-Api-Access-Key", accessKey)
	header.Set("X-Api-Resource-Id", attempt.resource)
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint(), header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to TTS WebSocket: %w", err)
	}
	defer conn.Close()

	if resp != nil {
		if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
			log.Printf("[TTS] connected with logid: %s", logid)
		}
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	body := c.requestBody(req, attempt.speaker)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}
	frame, err := EncodeMessage(CreateFullClientRequest(payload, NoCompression))
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return nil, fmt.Errorf("failed to send TTS request: %w", err)
	}

	var stream audioStream
	for done := false; !done; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read TTS response: %w", err)
		}
		msg, err := DecodeMessage(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode TTS message: %w", err)
		}
		if done, err = stream.consume(msg); err != nil {
			return nil, err
		}
	}

	if stream.audio.Len() == 0 {
		return nil, fmt.Errorf("TTS audio is empty")
	}
	reqID := stream.reqID
	if reqID == "" {
		reqID = connectID
	}
	return &speech.TTSResponse{
		SessionID: body.User.UID,
		AudioData: stream.audio.Bytes(),
		Duration:  stream.duration,
		Format:    body.ReqParams.AudioParams.Format,
		Voice:     attempt.speaker,
		Emotion:   body.ReqParams.AudioParams.Emotion,
		RequestID: reqID,
		CreatedAt: time.Now(),
	}, nil
}

// audioStream 汇总服务端返回的音频分片。
type audioStream struct {
	audio    bytes.Buffer
	reqID    string
	duration int64
}

// consume 处理一帧，返回合成是否结束。
func (s *audioStream) consume(msg *Message) (bool, error) {
	payload, err := DecompressPayload(msg.Payload, msg.Header.CompressionMethod)
	if err != nil {
		return false, fmt.Errorf("failed to decompress TTS frame: %w", err)
	}

	switch msg.Header.MessageType {
	case ErrorMessage:
		return false, ttsError(string(payload))
	case AudioOnlyServerResponse:
		s.audio.Write(payload)
		return false, nil
	case FullServerResponse:
		var frame ttsServerFrame
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &frame); err != nil {
				log.Printf("[TTS] failed to unmarshal response payload: %v", err)
			} else if err := s.apply(frame); err != nil {
				return false, err
			}
		}
		if msg.Header.MessageFlags == WithEvent {
			if msg.EventType == EventTypeSessionFinished {
				return true, nil
			}
			log.Printf("[TTS] server event: %d", msg.EventType)
		}
		return msg.IsLastPacket() || frame.Sequence < 0, nil
	default:
		log.Printf("[TTS] unexpected message type: %d", msg.Header.MessageType)
		return false, nil
	}
}

func (s *audioStream) apply(frame ttsServerFrame) error {
	// 3000 是服务端的成功码
	if frame.Code != 0 && frame.Code != 3000 {
		return ttsError(fmt.Sprintf("code %d: %s", frame.Code, frame.Message))
	}
	if frame.ReqID != "" {
		s.reqID = frame.ReqID
	}
	if frame.Addition.Duration != "" {
		if ms, err := strconv.ParseInt(frame.Addition.Duration, 10, 64); err == nil {
			s.duration = ms
		}
	}
	if frame.Data != "" {
		chunk, err := base64.StdEncoding.DecodeString(frame.Data)
		if err != nil {
			return fmt.Errorf("failed to decode base64 audio chunk: %w", err)
		}
		s.audio.Write(chunk)
	}
	return nil
}

func ttsError(detail string) error {
	if strings.Contains(detail, resourceMismatched) {
		return fmt.Errorf("%w: %s", errResourceMismatch, detail)
	}
	return fmt.Errorf("TTS error: %s", detail)
}

func (c *TTSClient) endpoint() string {
	if base := strings.TrimSpace(c.config.BaseURL); base != "" {
		return base
	}
	return defaultTTSURL
}

// requestBody 组装请求体。会话 ID 为空时用随机 uid。
func (c *TTSClient) requestBody(req *speech.TTSRequest, speaker string) ttsRequestBody {
	var body ttsRequestBody

	body.User.UID = strings.TrimSpace(req.SessionID)
	if body.User.UID == "" {
		body.User.UID = uuid.NewString()
	}

	body.ReqParams.Speaker = speaker
	body.ReqParams.Text = req.Text
	body.ReqParams.Additions = ttsAdditions
	body.ReqParams.Language = firstNonBlank(req.Language, c.config.TTSLanguage)
	body.ReqParams.AudioParams = ttsAudioParams{
		Format:          normalizeEncoding(req.Format),
		SampleRate:      sampleRate,
		EnableTimestamp: true,
		SpeedRatio:      ratio(req.Speed, c.config.TTSSpeed),
		VolumeRatio:     ratio(req.Volume, c.config.TTSVolume),
	}

	if label := strings.TrimSpace(req.Emotion); label != "" && supportsEmotion(speaker) {
		body.ReqParams.AudioParams.Emotion = label
		body.ReqParams.AudioParams.EmotionScale = req.EmotionScale
	}
	return body
}

// ratio 请求值优先，其次配置值；1.0 与未设置都不下发。
func ratio(requested, configured float32) float32 {
	v := requested
	if v <= 0 {
		v = configured
	}
	if v <= 0 || v == 1.0 {
		return 0
	}
	return v
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// normalizeEncoding 服务端不支持 wav 直出，统一回落到 mp3。
func normalizeEncoding(format string) string {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", "wav":
		return "mp3"
	default:
		return f
	}
}

// voiceAttempts 依次展开每个候选 speaker 可用的资源。
func voiceAttempts(requested, configured string) []voiceAttempt {
	var attempts []voiceAttempt
	for _, speaker := range speakerCandidates(requested, configured) {
		for _, resource := range resourcesFor(speaker) {
			attempts = append(attempts, voiceAttempt{speaker: speaker, resource: resource})
		}
	}
	return attempts
}

// speakerCandidates 按请求语音、配置语音、内置默认语音的顺序去重。
func speakerCandidates(requested, configured string) []string {
	var candidates []string
	for _, raw := range []string{requested, configured, "default"} {
		speaker := NormalizeVoiceAlias(raw)
		if speaker == "" || containsFold(candidates, speaker) {
			continue
		}
		candidates = append(candidates, speaker)
	}
	return candidates
}

func resourcesFor(speaker string) []string {
	switch {
	case strings.HasPrefix(speaker, "S_"):
		return []string{resourceClone}
	case isSeedVoice(speaker):
		return []string{resourceSeed, resourceStandard}
	default:
		return []string{resourceStandard, resourceSeed}
	}
}

func isSeedVoice(speaker string) bool {
	lower := strings.ToLower(speaker)
	for _, hint := range seedVoiceHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
