package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/RoseWrightdev/chat-backend/internal/v1/auth"
	"github.com/RoseWrightdev/chat-backend/internal/v1/config"
	"github.com/RoseWrightdev/chat-backend/internal/v1/health"
	"github.com/RoseWrightdev/chat-backend/internal/v1/httpapi"
	"github.com/RoseWrightdev/chat-backend/internal/v1/keydirectory"
	"github.com/RoseWrightdev/chat-backend/internal/v1/logging"
	"github.com/RoseWrightdev/chat-backend/internal/v1/middleware"
	"github.com/RoseWrightdev/chat-backend/internal/v1/ratelimit"
	"github.com/RoseWrightdev/chat-backend/internal/v1/repository"
	"github.com/RoseWrightdev/chat-backend/internal/v1/session"
	"github.com/RoseWrightdev/chat-backend/internal/v1/tracing"
	"go.uber.org/zap"
)

func main() {
	for _, path := range []string{".env", "../../../.env", "../../.env"} {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		panic(err)
	}

	if err := logging.Initialize(cfg.GoEnv != "production"); err != nil {
		panic(err)
	}
	ctx := context.Background()

	if cfg.OTelCollectorAddr != "" {
		tp, err := tracing.InitTracer(ctx, "chat-backend", cfg.OTelCollectorAddr)
		if err != nil {
			logging.Warn(ctx, "tracing disabled", zap.Error(err))
		} else {
			defer func() { _ = tp.Shutdown(context.Background()) }()
		}
	}

	store, err := repository.Open(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal(ctx, "failed to open database", zap.Error(err))
	}
	defer store.Close()

	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logging.Fatal(ctx, "failed to connect to redis", zap.Error(err))
		}
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret)
	keys := keydirectory.NewService(store)
	registry := session.NewRegistry()
	allowedOrigins := auth.GetAllowedOriginsFromEnv("ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	hub := session.NewHub(registry, tokens, store, keys, allowedOrigins)

	rl, err := ratelimit.NewRateLimiter(cfg, redisClient)
	if err != nil {
		logging.Fatal(ctx, "failed to build rate limiter", zap.Error(err))
	}

	healthHandler := health.NewHandler(store, redisClient)

	apiDeps := httpapi.Deps{
		Repo:               store,
		Tokens:             tokens,
		Keys:               keys,
		AccessTokenExpiry:  cfg.AccessTokenExpiry,
		RefreshTokenExpiry: cfg.RefreshTokenExpiry,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-File-Metadata", "X-Correlation-ID")
	router.Use(cors.New(corsConfig))

	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiDeps.Register(router, rl, hub)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logging.Info(ctx, "server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal(ctx, "server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "server forced to shutdown", zap.Error(err))
	}

	logging.Info(ctx, "server exited")
}
