package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/AnshSingh-2024/COMMIT.ENV/config"
	httpDelivery "github.com/AnshSingh-2024/COMMIT.ENV/internal/delivery/http"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/infrastructure/cache"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/infrastructure/logging"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/infrastructure/marketplace"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/infrastructure/metrics"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", logging.Err(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logging.New(cfg.Server.Environment, os.Stdout)
	slog.SetDefault(log)

	log.Info("starting cartlink backend",
		slog.String("version", "1.0.0"),
		slog.String("environment", cfg.Server.Environment),
		slog.String("port", cfg.Server.Port),
		slog.String("fetch-mode", cfg.Fetch.Mode),
		slog.String("cache-type", cfg.Cache.Type),
		slog.Duration("cache-ttl", cfg.Cache.TTL),
		slog.Int("cart-concurrency", cfg.Cart.MaxConcurrency),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store, err := cache.New(cfg.Cache.Type, cfg.Cache.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	if rc, ok := store.(*cache.RedisCache); ok {
		defer rc.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			log.Warn("redis not reachable, resolutions will not be cached until it is", logging.Err(err))
		}
		cancel()
	}

	var identitySource rand.Source
	if cfg.Fetch.IdentitySeed != 0 {
		identitySource = rand.NewSource(cfg.Fetch.IdentitySeed)
	}

	client, err := marketplace.NewClient(marketplace.Options{
		Mode:              cfg.Fetch.Mode,
		SearchURL:         cfg.Marketplace.SearchURL,
		Timeout:           cfg.Fetch.Timeout,
		ProxyEndpoint:     cfg.Proxy.Endpoint,
		ProxyAPIKey:       cfg.Proxy.APIKey,
		Identities:        marketplace.NewIdentityPool(nil, identitySource),
		RequestsPerMinute: cfg.RateLimit.FetchPerMinute,
		Burst:             cfg.RateLimit.FetchBurst,
		Logger:            log,
		Metrics:           m,
	})
	if err != nil {
		return fmt.Errorf("failed to create marketplace client: %w", err)
	}

	if client.Mode() == marketplace.ModeProxy && cfg.Proxy.APIKey == "" {
		log.Warn("proxy mode without an API key: every fetch will fail (set CARTLINK_PROXY_API_KEY)")
	}

	resolutions := usecase.NewResolutionService(
		store,
		client,
		marketplace.NewExtractor(),
		usecase.ResolutionServiceConfig{CacheTTL: cfg.Cache.TTL},
		log,
		m,
	)

	carts := usecase.NewCartService(
		resolutions,
		usecase.CartServiceConfig{
			BaseURL:        cfg.Cart.BaseURL,
			MaxConcurrency: cfg.Cart.MaxConcurrency,
			Deadline:       cfg.Cart.Deadline,
		},
		log,
		m,
	)

	handler := httpDelivery.NewHandler(resolutions, carts)
	router := httpDelivery.SetupRouter(cfg, handler, log, reg)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Cart.Deadline + 10*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", slog.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
