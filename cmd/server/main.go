package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"attrix/internal/cache"
	"attrix/internal/config"
	"attrix/internal/handler"
	"attrix/internal/invoker"
	_ "attrix/internal/invoker/anthropic"
	_ "attrix/internal/invoker/openai"
	"attrix/internal/prompt"
	"attrix/internal/ratelimit"
	"attrix/internal/retry"
	"attrix/internal/router"
	"attrix/internal/schemas"
	"attrix/internal/service"
	"attrix/internal/validator"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Category schemas
	registry := schemas.NewRegistry()
	if err := registry.LoadFile(cfg.Schemas.Path); err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}
	log.Printf("loaded %d category schemas from %s", registry.Len(), cfg.Schemas.Path)

	// Result cache: optional durable tier plus the in-process tier
	var results *cache.ResultCache
	if cfg.Cache.RedisURL != "" {
		durable, err := cache.NewRedisStore(cfg.Cache.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to configure redis cache: %w", err)
		}
		defer func() { _ = durable.Close() }()
		results = cache.New(durable, cache.NewMemoryCache(cfg.Cache.MemoryMaxEntries))
	} else {
		log.Printf("no redis url configured, running with in-process cache only")
		results = cache.New(nil, cache.NewMemoryCache(cfg.Cache.MemoryMaxEntries))
	}

	// Model invoker with transport retries
	provider, err := invoker.New(&cfg.Extractor.Primary)
	if err != nil {
		return fmt.Errorf("failed to initialize model provider: %w", err)
	}
	retrying := invoker.NewRetryingInvoker(provider, cfg.Retry.TransportMaxAttempts, cfg.Retry.TransportBaseDelay)

	// Orchestrator
	limiter := ratelimit.New(ratelimit.Config{
		Window:        cfg.RateLimit.Window,
		MaxRequests:   cfg.RateLimit.MaxRequests,
		BlockDuration: cfg.RateLimit.BlockDuration,
	})
	svc := service.NewExtractionService(
		service.NewJobStore(),
		registry,
		limiter,
		prompt.NewBuilder(prompt.Config{
			MaxFields:        cfg.Extractor.MaxFields,
			MaxAllowedValues: cfg.Extractor.MaxAllowedValues,
		}),
		retrying,
		validator.New(),
		results,
		retry.NewRegistry(0),
		service.Options{
			CacheTTL:            cfg.Cache.TTL,
			ConfidenceThreshold: cfg.Retry.ConfidenceThreshold,
			TransportPolicy: retry.NewPolicy(
				cfg.Retry.TransportMaxAttempts, cfg.Retry.TransportBaseDelay, 2, 0, 0),
			ConfidencePolicy: retry.NewPolicy(
				cfg.Retry.ConfidenceMaxAttempts, cfg.Retry.ConfidenceBaseDelay,
				cfg.Retry.ConfidenceMultiplier, cfg.Retry.ConfidenceMaxDelay, cfg.Retry.ConfidenceJitter),
		},
	)

	worker := service.NewWorker(svc.Store(), svc, service.WorkerConfig{
		PollInterval: cfg.Worker.PollInterval,
		Concurrency:  cfg.Worker.Concurrency,
	})
	workerDone := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(workerDone)
	}()

	// HTTP server
	extractionH := handler.NewExtractionHandler(svc)
	healthH := handler.NewHealthHandler(results)
	r := router.Setup(extractionH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server starting on %s (provider %s)", cfg.Server.Port, retrying.Name())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	<-workerDone

	return nil
}
