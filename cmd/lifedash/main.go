package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"lifedash/internal/backend"
	"lifedash/internal/cache"
	"lifedash/internal/cli"
	apphttp "lifedash/internal/http"
	applog "lifedash/internal/log"
	"lifedash/internal/realtime"
	"lifedash/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(applog.ComponentApp, cfg.LogLevel)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	trends := services.NewTrendService(res.Backend, services.TrendServiceConfig{
		CacheSize: cfg.TrendCacheSize,
		CacheTTL:  cfg.TrendCacheTTL,
		Location:  cfg.Location(),
	})
	cacheManager := cache.NewManager()
	for _, c := range trends.Cleaners() {
		cacheManager.Register(c)
	}
	cacheManager.StartCleanup(cfg.TrendCacheTTL)

	hub := realtime.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	opts := []services.RecordOption{
		services.WithInvalidator(trends),
		services.WithNotifier(hub),
	}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}
	recordService := services.NewRecordService(res.Backend, opts...)

	deps := apphttp.Deps{
		Records:            recordService,
		Trends:             trends,
		Hub:                hub,
		Logger:             logger,
		Backend:            cfg.DataBackend,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	}
	if res.Store != nil {
		deps.Snapshots = res.Store
	}
	srv := apphttp.NewServer(":"+cfg.Port, deps)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		stopHub()
		cacheManager.Stop()
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting lifedash server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", res.Publisher != nil,
		"timezone", cfg.Timezone)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
