package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/mood-fortune/backend/internal/config"
	"github.com/zhouzirui/mood-fortune/backend/internal/handler"
	"github.com/zhouzirui/mood-fortune/backend/internal/library"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/access"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/ai"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/flow"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/selection"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/speech"
	"github.com/zhouzirui/mood-fortune/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	libs, err := library.LoadEmbedded()
	if err != nil {
		log.Fatalf("failed to load content libraries: %v", err)
	}
	for _, lib := range libs {
		// 校验失败不阻断启动，只记录
		if result := lib.Validate(); !result.IsValid {
			for _, msg := range result.Errors {
				log.Printf("[content] %s", msg)
			}
		}
	}
	registry := library.NewRegistry(libs...)

	kv, err := store.Open(ctx, cfg.Storage.Options())
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer kv.Close()

	rnd := selection.DefaultSource()
	flowService := flow.NewService(registry, kv, rnd)
	accessService := access.NewService(kv, cfg.Access.TrialDays)

	aiService, err := ai.NewService(ctx, cfg.AI)
	if err != nil {
		log.Printf("warning: failed to initialize AI service: %v", err)
		log.Println("continuing with template reflections only")
		aiService, _ = ai.NewServiceWithModel(ctx, nil, false)
	} else if aiService.ModelEnabled() {
		log.Println("AI reflection service initialized successfully")
	}

	// Initialize Speech service
	var speechService *speech.Service
	if cfg.Speech.Enabled {
		speechService = speech.NewService(cfg.Speech.Model())
		log.Println("Speech service initialized successfully")
	} else {
		log.Println("speech credentials missing, skipping speech delivery")
	}

	router := handler.NewRouter(handler.Deps{
		Libraries: registry,
		Rand:      rnd,
		Flows:     flowService,
		Access:    accessService,
		AI:        aiService,
		Speech:    speechService,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Mood Fortune backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
