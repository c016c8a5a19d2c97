package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"revot.app/chat/common/id"
	"revot.app/chat/common/logger"
	"revot.app/chat/common/otel"
	"revot.app/chat/core/config"
	"revot.app/chat/core/db"
	"revot.app/chat/internal/auth"
	"revot.app/chat/internal/controller"
	"revot.app/chat/internal/http/middleware"
	httprouter "revot.app/chat/internal/http/router"
	"revot.app/chat/internal/prefs"
	"revot.app/chat/internal/reply"
	"revot.app/chat/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "revot chat starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	sessionStore := store.NewSessionStore(database.Pool())
	historyStore := store.NewHistoryStore(database.Pool())

	var controllerOpts []controller.Option
	if cfg.Cache.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}

		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		slog.InfoContext(ctx, "redis connected, history cache enabled", "ttl", cfg.Cache.HistoryTTL)

		cached := store.NewCachedHistoryStore(historyStore, redisClient, cfg.Cache.HistoryTTL, slog.Default())
		historyStore = cached
		controllerOpts = append(controllerOpts, controller.WithInvalidator(cached))
	}

	identity := auth.New(cfg.WorkOS)
	replies := reply.NewWebhookGateway(cfg.Webhook)
	conversations := controller.New(sessionStore, historyStore, replies, controllerOpts...)

	// Identity changes flow straight into the controller; a sign-out tears
	// down all conversation state. Released on shutdown.
	unsubscribe := identity.Subscribe(conversations.SetUser)
	defer unsubscribe()

	preferences := prefs.Open(cfg.PrefsPath)
	slog.InfoContext(ctx, "preferences loaded", "theme", preferences.Theme())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, identity, conversations, preferences)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, identity *auth.Gateway, conversations *controller.Controller, preferences *prefs.Store) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, httprouter.Deps{
		Identity:      identity,
		Conversations: conversations,
		Preferences:   preferences,
	})

	return router
}

const banner = `
██████╗ ███████╗██╗   ██╗ ██████╗ ████████╗
██╔══██╗██╔════╝██║   ██║██╔═══██╗╚══██╔══╝
██████╔╝█████╗  ██║   ██║██║   ██║   ██║
██╔══██╗██╔══╝  ╚██╗ ██╔╝██║   ██║   ██║
██║  ██║███████╗ ╚████╔╝ ╚██████╔╝   ██║
╚═╝  ╚═╝╚══════╝  ╚═══╝   ╚═════╝    ╚═╝
`
