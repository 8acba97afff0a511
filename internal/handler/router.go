package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/mood-fortune/backend/internal/handler/catalog"
	"github.com/zhouzirui/mood-fortune/backend/internal/handler/flow"
	"github.com/zhouzirui/mood-fortune/backend/internal/handler/speech"
	"github.com/zhouzirui/mood-fortune/backend/internal/handler/stillzone"
	"github.com/zhouzirui/mood-fortune/backend/internal/handler/stream"
	"github.com/zhouzirui/mood-fortune/backend/internal/library"
	middlewarePkg "github.com/zhouzirui/mood-fortune/backend/internal/middleware"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/access"
	aiService "github.com/zhouzirui/mood-fortune/backend/internal/service/ai"
	flowService "github.com/zhouzirui/mood-fortune/backend/internal/service/flow"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/selection"
	speechService "github.com/zhouzirui/mood-fortune/backend/internal/service/speech"
	"github.com/zhouzirui/mood-fortune/backend/pkg/utils"
)

// Deps 路由依赖的核心服务。AI 与 Speech 可以为 nil，对应路由会降级。
type Deps struct {
	Libraries library.Store
	Rand      selection.RandSource
	Flows     *flowService.Service
	Access    *access.Service
	AI        *aiService.Service
	Speech    *speechService.Service
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	flowHandler := flow.New(deps.Flows)
	if deps.AI != nil {
		flowHandler.WithReflection(stream.New(deps.AI, deps.Flows).HandleReflection)
	}

	// nil 指针不能直接放进接口，否则降级判断会失效
	var speechSvc speech.SpeechService
	if deps.Speech != nil {
		speechSvc = deps.Speech
	}

	r.Route("/api", func(api chi.Router) {
		catalog.New(deps.Libraries, deps.Rand).RegisterRoutes(api)
		flowHandler.RegisterRoutes(api)
		speech.New(speechSvc, deps.Flows).RegisterRoutes(api)
		stillzone.New(deps.Access, deps.Libraries, deps.Rand).RegisterRoutes(api)
	})

	return r
}
