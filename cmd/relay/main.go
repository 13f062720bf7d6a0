package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"tiledesk-relay/internal/cache"
	"tiledesk-relay/internal/config"
	"tiledesk-relay/internal/engine"
	"tiledesk-relay/internal/handlers"
	"tiledesk-relay/internal/metrics"
	"tiledesk-relay/internal/nlu"
	"tiledesk-relay/internal/session"
	"tiledesk-relay/internal/tiledesk"
	"tiledesk-relay/pkg/logger"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.AppEnv, cfg.LogLevel)
	slog.SetDefault(log)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.New(cfg.MetricsNamespace)

	// The session registry defaults to process memory; a configured redis
	// swaps in the bounded, restart-surviving store without touching the
	// decision logic.
	var tracker session.Tracker = session.NewMemoryTracker()
	if cfg.RedisAddr != "" {
		redisConn, err := cache.New(rootCtx, cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TLS:      cfg.RedisTLS,
		})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer redisConn.Close()
		tracker = session.NewRedisTracker(redisConn, cfg.SessionTTL)
	}

	nluClient := nlu.New(log, m, nlu.Config{Timeout: cfg.DialogflowTimeout})
	tdClient := tiledesk.New(tiledesk.Config{BaseURL: cfg.TiledeskAPIURL, Timeout: cfg.TiledeskTimeout}, log, m)

	eng := engine.New(tracker, engine.Config{
		MaxFallbacks:        cfg.MaxFallbacks,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		AgentIntent:         cfg.AgentIntent,
		Policy:              cfg.BusinessHours,
		ContactURLEN:        cfg.ContactURLEN,
		ContactURLIT:        cfg.ContactURLIT,
	}, log, m)

	relay := handlers.NewRelay(cfg, nluClient, tdClient, eng, log, m)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, relay, m)

	srv := &http.Server{
		Addr:              cfg.HTTPListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("relay listening", "addr", srv.Addr, "env", cfg.AppEnv, "bots", len(cfg.BotCredentials))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
