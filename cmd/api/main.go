package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jadonwu-dev/axwise/internal/analysis"
	"github.com/jadonwu-dev/axwise/internal/api/router"
	appconfig "github.com/jadonwu-dev/axwise/internal/config"
	"github.com/jadonwu-dev/axwise/internal/history"
	httpmiddleware "github.com/jadonwu-dev/axwise/internal/http/middleware"
	"github.com/jadonwu-dev/axwise/internal/observability/metrics"
	"github.com/jadonwu-dev/axwise/internal/proxy"
	"github.com/jadonwu-dev/axwise/internal/sentiment"
	"github.com/jadonwu-dev/axwise/internal/simulation"
	"github.com/jadonwu-dev/axwise/pkg/logging"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting axwise-gateway",
		"env", cfg.Env,
		"port", cfg.Port,
		"backend", cfg.BackendBaseURL,
	)

	registry := prometheus.NewRegistry()
	gatewayMetrics := metrics.NewGatewayMetrics(registry)

	client, err := proxy.NewClient(proxy.Config{
		BaseURL:    cfg.BackendBaseURL,
		Token:      cfg.BearerToken(),
		Timeout:    cfg.BackendTimeout,
		MaxRetries: cfg.BackendRetryMax,
		Backoff:    cfg.BackendRetryBackoff,
		Logger:     logger.Component("backend-client"),
	})
	if err != nil {
		logger.Error("failed to build backend client", "error", err)
		os.Exit(1)
	}

	// Run history is optional; without a database the gateway still serves
	// everything except /api/analysis-runs.
	var db *sql.DB
	var historyStore *history.Store
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		historyStore = history.NewStore(db)
	} else {
		logger.Warn("DATABASE_URL not set, run history disabled")
	}

	resultStore, redisClient := buildResultStore(cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	classifier := sentiment.New(sentiment.DefaultConfig(), logger.Component("sentiment"))

	poller := simulation.NewPoller(simulation.PollerConfig{
		Client:   client,
		Store:    resultStore,
		History:  historyStore,
		Interval: cfg.SimulationPollInterval,
		Timeout:  cfg.SimulationPollTimeout,
		Logger:   logger.Component("simulation-poller"),
		Metrics:  gatewayMetrics,
	})
	manager := simulation.NewManager(poller)

	routerCfg := &router.Config{
		Logger:            logger,
		ProxyHandler:      proxy.NewHandler(client, logger.Component("proxy"), gatewayMetrics),
		AnalysisHandler:   analysis.NewHandler(client, classifier, historyStore, logger.Component("analysis"), gatewayMetrics),
		SimulationHandler: simulation.NewHandler(client, manager, resultStore, logger),
		HistoryHandler:    history.NewHandler(historyStore, logger.Component("history")),
		MetricsHandler:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Auth: httpmiddleware.AuthConfig{
			Enabled:   cfg.EnableAuth,
			JWTSecret: cfg.AuthJWTSecret,
			DevToken:  cfg.DevAuthToken,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Stop background polls before refusing new requests so in-flight
	// results still land in the store.
	manager.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildResultStore prefers Redis so results survive restarts and fan out to
// every gateway instance; without REDIS_ADDR an in-process store serves a
// single node.
func buildResultStore(cfg *appconfig.Config, logger *logging.Logger) (simulation.ResultStore, *redis.Client) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, simulation results held in memory only")
		return simulation.NewMemoryStore(), nil
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("redis unreachable, falling back to in-memory results", "error", err)
		client.Close()
		return simulation.NewMemoryStore(), nil
	}

	store, err := simulation.NewRedisStore(client)
	if err != nil {
		logger.Error("failed to build redis result store", "error", err)
		client.Close()
		return simulation.NewMemoryStore(), nil
	}
	logger.Info("simulation results stored in redis", "addr", cfg.RedisAddr)
	return store, client
}
