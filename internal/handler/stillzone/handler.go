package stillzone

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mood-fortune/backend/internal/handler/catalog"
	"github.com/zhouzirui/mood-fortune/backend/internal/library"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/access"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/feed"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/selection"
	"github.com/zhouzirui/mood-fortune/backend/pkg/utils"
)

// UserHeader 由外部认证网关注入的用户ID
const UserHeader = "X-User-ID"

// LibraryName Still Zone 使用的内容库
const LibraryName = "stillzone"

// Handler Still Zone 的试用、订阅与受限内容
type Handler struct {
	access    *access.Service
	libraries library.Store
	rand      selection.RandSource
}

// New 创建 Still Zone 处理器
func New(accessSvc *access.Service, libraries library.Store, rnd selection.RandSource) *Handler {
	if rnd == nil {
		rnd = selection.DefaultSource()
	}
	return &Handler{access: accessSvc, libraries: libraries, rand: rnd}
}

// RegisterRoutes 注册 Still Zone 路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stillzone", func(sr chi.Router) {
		sr.Get("/access", h.handleStatus)
		sr.Post("/trial", h.handleTrial)
		sr.Post("/subscribe", h.handleSubscribe)
		sr.Post("/cancel", h.handleCancel)

		sr.Group(func(gated chi.Router) {
			gated.Use(h.RequireAccess)
			gated.Get("/feed", h.handleFeed)
		})
	})
}

// RequireAccess 仅允许试用期内或已订阅的用户通过。
func (h *Handler) RequireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.access.Require(r.Context(), userID(r)); err != nil {
			respondAccessError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.access.Status(r.Context(), userID(r))
	if err != nil {
		respondAccessError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, status)
}

func (h *Handler) handleTrial(w http.ResponseWriter, r *http.Request) {
	status, err := h.access.StartTrial(r.Context(), userID(r))
	if err != nil {
		respondAccessError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, status)
}

func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	status, err := h.access.Subscribe(r.Context(), userID(r))
	if err != nil {
		respondAccessError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, status)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	status, err := h.access.Cancel(r.Context(), userID(r))
	if err != nil {
		respondAccessError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, status)
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	lib, ok := h.libraries.FindByName(LibraryName)
	if !ok {
		utils.RespondError(w, http.StatusServiceUnavailable, "still zone content unavailable")
		return
	}

	query, err := catalog.ParseFeedQuery(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	adapter := feed.New(selection.NewEngine(lib, h.rand))
	utils.RespondJSON(w, http.StatusOK, adapter.Resolve(query))
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserHeader))
}

func respondAccessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, access.ErrUserRequired):
		utils.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, access.ErrAccessDenied):
		utils.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, access.ErrTrialUsed):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[stillzone] access lookup failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "access lookup failed")
	}
}
