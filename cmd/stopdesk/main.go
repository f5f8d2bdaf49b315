package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stopdesk/internal/analytics"
	"stopdesk/internal/cache"
	"stopdesk/internal/config"
	"stopdesk/internal/handler"
	"stopdesk/internal/hub"
	"stopdesk/internal/lookup"
	"stopdesk/internal/maplink"
	"stopdesk/internal/middleware"
	"stopdesk/internal/page"
	"stopdesk/internal/store"
)

type stopStore interface {
	store.DocumentStore
	store.Loader
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting stopdesk server",
		"log_level", cfg.LogLevel.String(),
		"http_addr", cfg.HTTPAddr,
		"store_driver", cfg.StoreDriver,
		"redis_enabled", cfg.RedisEnabled,
		"amqp_enabled", cfg.AMQPURL != "",
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stops, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open document store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer stops.Close()

	if cfg.StoreSeedFile != "" {
		n, err := store.LoadSeedFile(ctx, cfg.StoreSeedFile, stops)
		if err != nil {
			logger.Error("failed to seed document store", "file", cfg.StoreSeedFile, "error", err)
			os.Exit(1)
		}
		logger.Info("document store seeded", "file", cfg.StoreSeedFile, "documents", n)
	}

	var redisCache *cache.RedisCache
	if cfg.RedisEnabled {
		redisCache, err = cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ResolveCacheTTL, logger)
		if err != nil {
			logger.Warn("redis unavailable, falling back to in-memory resolve cache", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			logger.Info("redis cache enabled", "addr", cfg.RedisAddr)
		}
	}

	var resolveCache maplink.Cache = maplink.NewMemoryCache(cfg.ResolveCacheSize, cfg.ResolveCacheTTL)
	if redisCache != nil {
		resolveCache = redisCache
	}
	resolver := maplink.NewResolver(cfg.ResolveTimeout, cfg.ResolveMaxRedirects, resolveCache, logger)

	wsHub := hub.NewHub(logger)

	sinks := []analytics.Recorder{analytics.NewLiveFeed(wsHub)}
	if redisCache != nil {
		sinks = append(sinks, analytics.NewRedisCounter(redisCache))
	}
	if cfg.AMQPURL != "" {
		publisher := analytics.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}
	recorder := analytics.NewMulti(logger, sinks...)

	renderer, err := page.NewRenderer()
	if err != nil {
		logger.Error("failed to parse page templates", "error", err)
		os.Exit(1)
	}

	finder := lookup.New(stops, cfg.LookupTimeout, logger)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerWindow, cfg.RateLimitWindow, cfg.RateLimitWhitelist, cfg.TrustedProxies,
		handler.ServerStats.IncRateLimitBlocked, logger)

	stopHandler := handler.NewStopHandler(finder, renderer, recorder, cfg.RenderWait, cfg.PublicBaseURL, logger)
	resolveHandler := handler.NewResolveHandler(resolver, logger)
	healthHandler := handler.NewHealthHandler(stops)
	wsHandler := handler.NewWSHandler(wsHub, cfg.AllowedOrigins, logger)

	var totals handler.VisitTotals
	if redisCache != nil {
		totals = redisCache
	}
	statsHandler := handler.NewStatsHandler(resolver, recorder, totals)

	mux := http.NewServeMux()

	mux.Handle("GET /{urlcode}", handler.GzipMiddleware(http.HandlerFunc(stopHandler.ServePage)))
	mux.Handle("GET /v1/stops/{urlcode}", handler.GzipMiddleware(http.HandlerFunc(stopHandler.GetStop)))
	mux.Handle("POST /api/resolve-map", limiter.Middleware(http.HandlerFunc(resolveHandler.ResolveMap)))
	mux.HandleFunc("/v1/visits/ws", wsHandler.ServeWS)

	mux.HandleFunc("GET /v1/stats", statsHandler.GetStats)
	mux.HandleFunc("GET /healthz", healthHandler.Healthz)
	mux.HandleFunc("GET /readyz", healthHandler.Readyz)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.RequestIDMiddleware(logger)(handler.CORSMiddleware(cfg.AllowedOrigins)(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go wsHub.Run(ctx)

	go limiter.Run(ctx)

	go func() {
		logger.Info("starting HTTP server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config) (stopStore, error) {
	switch cfg.StoreDriver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		return store.NewSQLiteStore(cfg.SQLitePath)
	case "mongo":
		return store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
