package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	flowhandler "github.com/zhouzirui/mood-fortune/backend/internal/handler/flow"
	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
	flowmodel "github.com/zhouzirui/mood-fortune/backend/internal/model/flow"
	"github.com/zhouzirui/mood-fortune/backend/internal/model/speech"
	speechsvc "github.com/zhouzirui/mood-fortune/backend/internal/service/speech"
	"github.com/zhouzirui/mood-fortune/backend/pkg/utils"
)

// SpeechService 抽象语音业务，便于测试与替换实现
type SpeechService interface {
	SynthesizeSpeech(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error)
	Deliver(ctx context.Context, req speech.DeliveryRequest) (*speech.TTSResponse, error)
}

// ProfileReader 读取 profile 当前选中的消息
type ProfileReader interface {
	Message(ctx context.Context, profileID string) (flowmodel.Profile, *content.Message, error)
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc SpeechService
	profiles  ProfileReader
}

// New 创建语音处理器
func New(speechSvc SpeechService, profiles ProfileReader) *Handler {
	return &Handler{speechSvc: speechSvc, profiles: profiles}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(speechRouter chi.Router) {
		speechRouter.Get("/health", h.handleHealth)

		if h.speechSvc == nil || h.profiles == nil {
			unavailable := func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "speech synthesis unavailable")
			}
			speechRouter.Post("/deliver/{profileID}", unavailable)
			speechRouter.Post("/synthesize", unavailable)
			return
		}

		speechRouter.Post("/deliver/{profileID}", h.handleDeliver)
		speechRouter.Post("/synthesize", h.handleSynthesize)
	})
}

// deliverOptions 客户端可覆盖的朗读参数
type deliverOptions struct {
	Voice    string  `json:"voice"`
	Speed    float32 `json:"speed"`
	Volume   float32 `json:"volume"`
	Format   string  `json:"format"`
	Language string  `json:"language"`
}

// handleDeliver 朗读 profile 当前选中的消息
func (h *Handler) handleDeliver(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	var opts deliverOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, full, err := h.profiles.Message(r.Context(), profileID)
	if err != nil {
		flowhandler.RespondFlowError(w, err)
		return
	}
	if profile.Selected == nil {
		utils.RespondError(w, http.StatusConflict, "no message selected yet")
		return
	}

	req := speech.DeliveryRequest{
		ProfileID: profile.ID,
		Title:     profile.Selected.Title,
		Message:   profile.Selected.Message,
		Mood:      string(profile.Mood),
		Voice:     opts.Voice,
		Speed:     opts.Speed,
		Volume:    opts.Volume,
		Format:    opts.Format,
		Language:  opts.Language,
	}
	if full != nil {
		req.ActionType = string(full.ActionType)
	}

	resp, err := h.speechSvc.Deliver(r.Context(), req)
	if err != nil {
		h.respondSpeechError(w, err)
		return
	}
	h.writeAudio(w, resp)
}

// handleSynthesize 朗读任意标题与正文
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req speech.DeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "title or message is required")
		return
	}

	resp, err := h.speechSvc.Deliver(r.Context(), req)
	if err != nil {
		h.respondSpeechError(w, err)
		return
	}
	h.writeAudio(w, resp)
}

func (h *Handler) respondSpeechError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, speechsvc.ErrNothingToSay):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, speechsvc.ErrSpeechNotConfigured), errors.Is(err, speechsvc.ErrMissingCredentials):
		utils.RespondError(w, http.StatusServiceUnavailable, "speech synthesis unavailable")
	default:
		log.Printf("[speech] TTS error: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "speech synthesis failed")
	}
}

func (h *Handler) writeAudio(w http.ResponseWriter, resp *speech.TTSResponse) {
	if len(resp.AudioData) == 0 {
		utils.RespondJSON(w, http.StatusOK, resp)
		return
	}

	format := resp.Format
	if format == "" {
		format = "octet-stream"
	}
	w.Header().Set("Content-Type", "audio/"+format)
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.AudioData)))
	w.Header().Set("Content-Disposition", "attachment; filename=speech."+format)
	if resp.Voice != "" {
		w.Header().Set("X-Speech-Voice", resp.Voice)
	}
	if resp.Emotion != "" {
		w.Header().Set("X-Speech-Emotion", resp.Emotion)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.AudioData); err != nil {
		log.Printf("failed to write audio response: %v", err)
	}
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if h.speechSvc == nil {
		status = "disabled"
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"service": "speech",
	})
}
