// Package app wires configuration, adapters and use cases into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/alttext-service/internal/adapter/bsky"
	"github.com/user/alttext-service/internal/adapter/openai"
	"github.com/user/alttext-service/internal/adapter/postgres"
	rediscache "github.com/user/alttext-service/internal/adapter/redis"
	"github.com/user/alttext-service/internal/adapter/sqlite"
	"github.com/user/alttext-service/internal/delivery/http/handler"
	"github.com/user/alttext-service/internal/delivery/http/router"
	"github.com/user/alttext-service/internal/repository"
	"github.com/user/alttext-service/internal/usecase"
	"github.com/user/alttext-service/pkg/config"
	"github.com/user/alttext-service/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// App holds the constructed use cases and the resources they own.
type App struct {
	Scanner usecase.Scanner
	Applier usecase.Applier
	Tracker usecase.ImageTracker

	cfg     *config.Config
	logger  *zap.Logger
	checks  map[string]handler.Pinger
	closers []func() error
}

type ledgerStore interface {
	repository.LedgerRepository
	Close() error
}

// New connects the ledger (and Redis when configured) and builds the use cases.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()

	a := &App{cfg: cfg, logger: logger, checks: map[string]handler.Pinger{}}

	ledger, err := openLedger(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, ledger.Close)
	a.checks["ledger"] = ledger
	logger.Info("Ledger opened", zap.String("driver", cfg.LedgerDriver))

	var cache repository.DescriptionCache
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("unable to connect to redis: %w", err)
		}
		c := rediscache.NewDescriptionCache(rdb)
		cache = c
		a.checks["redis"] = c
		logger.Info("Redis description cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	var describer repository.Describer
	if cfg.GenerationEnabled() {
		describer = openai.NewDescriber(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.AltGenModel, logger)
	} else {
		logger.Info("Alt-text generation disabled: OPENAI_API_KEY not set")
	}

	generator := usecase.NewAltTextGenerator(describer, cache, usecase.GeneratorConfig{
		Enabled:       cfg.GenerationEnabled(),
		Timeout:       cfg.GenerateTimeout,
		RatePerSecond: cfg.GenerateRatePerSecond,
		CacheTTL:      cfg.DescriptionCacheTTL,
	}, logger)

	remote := bsky.NewClient(cfg.BskyServiceURL, cfg.RemoteTimeout, cfg.FeedPageSize, logger)

	a.Scanner = usecase.NewScanner(remote, ledger, generator, logger)
	a.Applier = usecase.NewApplier(remote, ledger, cfg.ApplyConcurrency, logger)
	a.Tracker = usecase.NewImageTracker(ledger)
	return a, nil
}

func openLedger(ctx context.Context, cfg *config.Config) (ledgerStore, error) {
	switch cfg.LedgerDriver {
	case config.LedgerPostgres:
		return postgres.Connect(ctx, cfg.PostgresURL)
	case config.LedgerSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.LedgerDriver)
	}
}

// Handler returns the HTTP surface of the service.
func (a *App) Handler() http.Handler {
	h := handler.NewHandler(a.Scanner, a.Applier, a.Tracker, a.checks, a.logger)
	return router.New(h, a.logger, router.Options{
		AllowedOrigins: a.cfg.Origins(),
		RequestTimeout: a.cfg.RequestTimeout,
	})
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down gracefully.
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + a.cfg.ServerPort,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting server", zap.String("port", a.cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen on :%s: %w", a.cfg.ServerPort, err)
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Close releases the ledger and cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
