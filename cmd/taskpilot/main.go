package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	tphttp "github.com/taskpilot/taskpilot/internal/adapter/http"
	"github.com/taskpilot/taskpilot/internal/adapter/llm"
	"github.com/taskpilot/taskpilot/internal/adapter/mcp"
	tpnats "github.com/taskpilot/taskpilot/internal/adapter/nats"
	"github.com/taskpilot/taskpilot/internal/adapter/natskv"
	"github.com/taskpilot/taskpilot/internal/adapter/otel"
	"github.com/taskpilot/taskpilot/internal/adapter/postgres"
	"github.com/taskpilot/taskpilot/internal/adapter/ristretto"
	"github.com/taskpilot/taskpilot/internal/adapter/tiered"
	"github.com/taskpilot/taskpilot/internal/adapter/ws"
	"github.com/taskpilot/taskpilot/internal/config"
	"github.com/taskpilot/taskpilot/internal/logger"
	"github.com/taskpilot/taskpilot/internal/middleware"
	"github.com/taskpilot/taskpilot/internal/port/cache"
	"github.com/taskpilot/taskpilot/internal/port/messagequeue"
	"github.com/taskpilot/taskpilot/internal/resilience"
	"github.com/taskpilot/taskpilot/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			slog.Error("admin command failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"model", cfg.LLM.Model,
		"mcp_port", cfg.MCP.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS is optional. Without it the service still works; turn events
	// are only fanned out over WebSocket.
	var queue *tpnats.Queue
	if cfg.NATS.URL != "" {
		queue, err = tpnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()
	}

	otelShutdown, err := otel.Init(ctx, cfg.Logging.Service, cfg.OTel.Endpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	ownershipCache, err := buildOwnershipCache(ctx, cfg, queue)
	if err != nil {
		return fmt.Errorf("ownership cache: %w", err)
	}

	// --- Services ---

	store := postgres.NewStore(pool)
	hub := ws.NewHub()

	llmClient := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout)
	llmClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	authSvc := service.NewAuthService(store, &cfg.Auth)
	gateway := service.NewToolGateway(store)
	agent := service.NewAgent(llmClient, gateway, cfg.Agent.MaxTurns)

	// A nil *Queue must not end up inside the interface value; the chat
	// service treats a nil interface as "eventing disabled".
	var mq messagequeue.Queue
	if queue != nil {
		mq = queue
	}

	chatSvc := service.NewChatService(store, agent, ownershipCache, mq, hub, service.ChatOptions{
		HistoryLimit:   cfg.Agent.HistoryLimit,
		ProviderBudget: cfg.LLM.Timeout,
		OwnershipTTL:   cfg.Cache.OwnershipTTL,
	})

	// --- HTTP ---

	handlers := &tphttp.Handlers{
		Chat:    chatSvc,
		Tasks:   gateway,
		Auth:    authSvc,
		DB:      pool,
		Metrics: metrics,
		MaxBody: cfg.Server.MaxRequestBodySize,
	}

	r := chi.NewRouter()

	r.Use(tphttp.CORS(cfg.Server.CORSOrigin))
	r.Use(tphttp.SecurityHeaders)
	r.Use(tphttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(2 * time.Minute))
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(middleware.Auth(authSvc))

	r.Get("/ws", hub.HandleWS)
	tphttp.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	if cfg.MCP.Port != "" {
		mcpSrv := mcp.NewServer(
			mcp.ServerConfig{Addr: ":" + cfg.MCP.Port, Name: "taskpilot", Version: "0.1.0"},
			mcp.ServerDeps{Gateway: gateway, Tokens: authSvc},
		)
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mcpSrv.Stop(stopCtx); err != nil {
				slog.Warn("mcp shutdown", "error", err)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildOwnershipCache assembles the conversation ownership cache. With NATS
// available it is tiered: a local ristretto layer in front of a JetStream
// key-value bucket shared across replicas.
func buildOwnershipCache(ctx context.Context, cfg *config.Config, queue *tpnats.Queue) (cache.Cache, error) {
	l1, err := ristretto.New(cfg.Cache.MaxCostBytes)
	if err != nil {
		return nil, err
	}
	if queue == nil {
		return l1, nil
	}

	kv, err := queue.KeyValue(ctx, "taskpilot-ownership", cfg.Cache.OwnershipTTL)
	if err != nil {
		return nil, err
	}
	return tiered.New(l1, natskv.New(kv), cfg.Cache.OwnershipTTL), nil
}
