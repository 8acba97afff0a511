package flow

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
	flowmodel "github.com/zhouzirui/mood-fortune/backend/internal/model/flow"
	flowservice "github.com/zhouzirui/mood-fortune/backend/internal/service/flow"
	"github.com/zhouzirui/mood-fortune/backend/internal/store"
	"github.com/zhouzirui/mood-fortune/backend/pkg/utils"
)

// Handler 选择流程的HTTP处理器
type Handler struct {
	flows      *flowservice.Service
	reflection http.HandlerFunc
}

// New 创建流程处理器
func New(flows *flowservice.Service) *Handler {
	return &Handler{flows: flows}
}

// WithReflection 挂载 /flow/{profileID}/reflection 的 SSE 处理函数。
func (h *Handler) WithReflection(fn http.HandlerFunc) *Handler {
	h.reflection = fn
	return h
}

// DrawResponse 抽取结果，Message 为完整记录（含 actionType、displayTime）。
type DrawResponse struct {
	Profile flowmodel.Profile `json:"profile"`
	Message content.Message   `json:"message"`
}

// RegisterRoutes 注册流程相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/flow", func(fr chi.Router) {
		fr.Post("/", h.handleStart)
		fr.Route("/{profileID}", func(pr chi.Router) {
			pr.Get("/", h.handleCurrent)
			pr.Post("/mood", h.handleMood)
			pr.Post("/context", h.handleContext)
			pr.Post("/draw", h.handleDraw)
			pr.Post("/reveal", h.handleReveal)
			pr.Post("/restart", h.handleRestart)
			if h.reflection != nil {
				pr.Get("/reflection", h.reflection)
			} else {
				pr.Get("/reflection", func(w http.ResponseWriter, _ *http.Request) {
					utils.RespondError(w, http.StatusServiceUnavailable, "reflection unavailable")
				})
			}
		})
	})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Library string `json:"library"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.flows.Start(r.Context(), strings.TrimSpace(payload.Library))
	if err != nil {
		RespondFlowError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, profile)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	profile, err := h.flows.Current(r.Context(), chi.URLParam(r, "profileID"))
	if err != nil {
		RespondFlowError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleMood(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Mood string `json:"mood"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.flows.ChooseMood(r.Context(), chi.URLParam(r, "profileID"), content.Mood(strings.TrimSpace(payload.Mood)))
	if err != nil {
		RespondFlowError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleContext(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Context string `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.flows.ChooseContext(r.Context(), chi.URLParam(r, "profileID"), content.Context(strings.TrimSpace(payload.Context)))
	if err != nil {
		RespondFlowError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleDraw(w http.ResponseWriter, r *http.Request) {
	profile, msg, err := h.flows.Draw(r.Context(), chi.URLParam(r, "profileID"))
	if err != nil {
		RespondFlowError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, DrawResponse{Profile: profile, Message: msg})
}

func (h *Handler) handleReveal(w http.ResponseWriter, r *http.Request) {
	profile, err := h.flows.Reveal(r.Context(), chi.URLParam(r, "profileID"))
	if err != nil {
		RespondFlowError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleRestart(w http.ResponseWriter, r *http.Request) {
	profile, err := h.flows.Restart(r.Context(), chi.URLParam(r, "profileID"))
	if err != nil {
		RespondFlowError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}

// StatusFor 把流程错误映射为HTTP状态码。
func StatusFor(err error) int {
	switch {
	case errors.Is(err, flowservice.ErrProfileNotFound), errors.Is(err, flowservice.ErrLibraryNotFound):
		return http.StatusNotFound
	case errors.Is(err, flowservice.ErrLibraryRequired),
		errors.Is(err, flowservice.ErrUnknownMood),
		errors.Is(err, flowservice.ErrUnknownContext),
		errors.Is(err, store.ErrProfileRequired):
		return http.StatusBadRequest
	case errors.Is(err, flowservice.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, flowservice.ErrNoContent):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// RespondFlowError 输出流程错误，5xx 只返回笼统信息。
func RespondFlowError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[flow] request failed: %v", err)
		utils.RespondError(w, status, "flow storage failed")
		return
	}
	utils.RespondError(w, status, err.Error())
}
