package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ctchen222/minimax-tic-tac-toe/internal/api/service"
	"ctchen222/minimax-tic-tac-toe/internal/auth"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/config"
	"ctchen222/minimax-tic-tac-toe/internal/db"
	"ctchen222/minimax-tic-tac-toe/internal/hub"
	"ctchen222/minimax-tic-tac-toe/internal/logger"
	"ctchen222/minimax-tic-tac-toe/internal/repository"
	"ctchen222/minimax-tic-tac-toe/internal/server"
	"ctchen222/minimax-tic-tac-toe/internal/session"
	"ctchen222/minimax-tic-tac-toe/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	logger.Init(cfg.LogLevel)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Auth.JWTSecret == config.DefaultJWTSecret {
		slog.WarnContext(ctx, "Signing session tokens with the default JWT secret, set JWT_SECRET")
	}

	// Create repositories
	var (
		rdb  *redis.Client
		repo session.Repository
	)
	switch cfg.Storage {
	case config.StorageRedis:
		rdb, err = db.NewRedisClient(ctx, cfg.Redis.ConnString)
		if err != nil {
			log.Fatalf("failed to initialize redis: %v", err)
		}
		defer rdb.Close()
		repo = repository.NewRedisSessionRepository(rdb, cfg.SessionTTL)
	default:
		repo = repository.NewMemorySessionRepository(cfg.SessionTTL)
	}
	slog.InfoContext(ctx, "Session storage ready", "storage", cfg.Storage, "session.ttl", cfg.SessionTTL)

	// Create services
	computer, err := bot.NewComputer()
	if err != nil {
		log.Fatalf("failed to create computer player: %v", err)
	}
	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("failed to create token issuer: %v", err)
	}

	// Create hub
	h := hub.NewHub(rdb)
	go h.Run(ctx)

	sessions := session.NewService(repo, computer)
	gameService := service.NewGameService(sessions, computer, tokens, h)

	// Create the Gin-based server
	srv, err := server.NewServer(ctx, h, sessions, gameService, server.Options{
		ComputerDelay: cfg.ComputerDelay,
		StaticDir:     cfg.StaticDir,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(srv.Engine(), "http.server"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server started", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exiting")
}
