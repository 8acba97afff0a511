package catalog

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mood-fortune/backend/internal/library"
	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/feed"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/selection"
	"github.com/zhouzirui/mood-fortune/backend/pkg/utils"
)

// Handler 内容库的只读HTTP处理器
type Handler struct {
	libraries library.Store
	rand      selection.RandSource
}

// New 创建内容库处理器
func New(libraries library.Store, rnd selection.RandSource) *Handler {
	if rnd == nil {
		rnd = selection.DefaultSource()
	}
	return &Handler{libraries: libraries, rand: rnd}
}

// Summary 内容库概要
type Summary struct {
	Name     string            `json:"name"`
	Title    string            `json:"title"`
	Moods    []content.Mood    `json:"moods"`
	Contexts []content.Context `json:"contexts"`
	Size     int               `json:"size"`
}

// RandomResponse 随机抽取结果，桶为空时 Message 为 nil。
type RandomResponse struct {
	Message *content.Message `json:"message"`
}

// RegisterRoutes 注册内容库相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/libraries", func(lr chi.Router) {
		lr.Get("/", h.handleList)
		lr.Route("/{library}", func(one chi.Router) {
			one.Get("/", h.handleDescribe)
			one.Get("/validate", h.handleValidate)
			one.Get("/messages", h.handleMessages)
			one.Get("/random", h.handleRandom)
			one.Get("/feed", h.handleFeed)
		})
	})
}

// Summarize 生成内容库概要
func Summarize(lib *library.Library) Summary {
	return Summary{
		Name:     lib.Name(),
		Title:    lib.Title(),
		Moods:    lib.Moods(),
		Contexts: lib.Contexts(),
		Size:     lib.Size(),
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	libs := h.libraries.List()
	summaries := make([]Summary, 0, len(libs))
	for _, lib := range libs {
		summaries = append(summaries, Summarize(lib))
	}
	utils.RespondJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleDescribe(w http.ResponseWriter, r *http.Request) {
	lib, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, Summarize(lib))
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	lib, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, lib.Validate())
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	lib, ok := h.lookup(w, r)
	if !ok {
		return
	}
	mood, ctx := moodAndContext(r)
	utils.RespondJSON(w, http.StatusOK, lib.AllMessages(mood, ctx))
}

func (h *Handler) handleRandom(w http.ResponseWriter, r *http.Request) {
	lib, ok := h.lookup(w, r)
	if !ok {
		return
	}

	exclude, err := parseExclusion(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	mood, ctx := moodAndContext(r)
	engine := selection.NewEngine(lib, h.rand)

	var resp RandomResponse
	if pick, found := engine.RandomMessage(mood, ctx, exclude); found {
		resp.Message = &pick
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	lib, ok := h.lookup(w, r)
	if !ok {
		return
	}

	query, err := ParseFeedQuery(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	adapter := feed.New(selection.NewEngine(lib, h.rand))
	utils.RespondJSON(w, http.StatusOK, adapter.Resolve(query))
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*library.Library, bool) {
	name := chi.URLParam(r, "library")
	lib, ok := h.libraries.FindByName(name)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "library not found")
		return nil, false
	}
	return lib, true
}

func moodAndContext(r *http.Request) (content.Mood, content.Context) {
	q := r.URL.Query()
	return content.Mood(strings.TrimSpace(q.Get("mood"))), content.Context(strings.TrimSpace(q.Get("context")))
}

// ParseFeedQuery 解析 mood、context、count、shuffle 查询参数。
func ParseFeedQuery(r *http.Request) (feed.Query, error) {
	mood, ctx := moodAndContext(r)
	query := feed.Query{Mood: mood, Context: ctx}

	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("count")); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil {
			return feed.Query{}, errInvalidParam("count", raw)
		}
		query.Count = count
	}
	if raw := strings.TrimSpace(q.Get("shuffle")); raw != "" {
		shuffle, err := strconv.ParseBool(raw)
		if err != nil {
			return feed.Query{}, errInvalidParam("shuffle", raw)
		}
		query.Shuffle = shuffle
	}
	return query, nil
}

func parseExclusion(r *http.Request) (*content.Message, error) {
	q := r.URL.Query()
	text := q.Get("excludeMessage")
	if text == "" {
		return nil, nil
	}

	exclude := &content.Message{Message: text}
	if raw := strings.TrimSpace(q.Get("excludeAudioIndex")); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errInvalidParam("excludeAudioIndex", raw)
		}
		exclude.AudioIndex = idx
	}
	return exclude, nil
}

type paramError struct {
	name, value string
}

func (e paramError) Error() string {
	return "invalid " + e.name + " value: " + strconv.Quote(e.value)
}

func errInvalidParam(name, value string) error {
	return paramError{name: name, value: value}
}
