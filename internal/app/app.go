// Package app wires the search service together and manages its lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/takezou621/sedori-platform-sub006/internal/catalog"
	catalogpg "github.com/takezou621/sedori-platform-sub006/internal/catalog/postgres"
	"github.com/takezou621/sedori-platform-sub006/internal/config"
	"github.com/takezou621/sedori-platform-sub006/internal/engine"
	"github.com/takezou621/sedori-platform-sub006/internal/engine/elasticsearch"
	"github.com/takezou621/sedori-platform-sub006/internal/engine/memory"
	"github.com/takezou621/sedori-platform-sub006/internal/event"
	"github.com/takezou621/sedori-platform-sub006/internal/handler"
	"github.com/takezou621/sedori-platform-sub006/internal/scheduler"
	"github.com/takezou621/sedori-platform-sub006/internal/service"
	"github.com/takezou621/sedori-platform-sub006/internal/worker"
	"github.com/takezou621/sedori-platform-sub006/pkg/database"
	"github.com/takezou621/sedori-platform-sub006/pkg/health"
	"github.com/takezou621/sedori-platform-sub006/pkg/kafka"
)

// App holds the wired service and its long-lived resources.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pgPool *pgxpool.Pool
	redis  *redis.Client
	engine engine.Engine

	workers   *worker.Pool
	consumers *event.Consumers
	scheduler *scheduler.Scheduler
	server    *http.Server
}

// New builds the service from configuration, connecting to every backing
// store up front so a misconfigured instance fails at startup, not under
// traffic.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: log}

	pgPool, err := database.NewPostgresPool(ctx, ptr(cfg.Postgres()))
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.pgPool = pgPool

	if cfg.RedisEnabled {
		client, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app: %w", err)
		}
		a.redis = client
	}

	store := catalog.NewCachedStore(catalogpg.NewStore(pgPool), a.redis, cfg.CategoryTTL, log)

	eng, err := buildEngine(cfg, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: %w", err)
	}
	a.engine = eng

	indexer := service.NewIndexer(store, eng, log)
	indexer.SetBulkFailureThreshold(cfg.BulkFailureThreshold)
	reindexer := service.NewReindexer(store, eng, log)
	searcher := service.NewSearcher(eng, store, log)

	a.workers = worker.NewPool(worker.Config{
		Workers:    cfg.Workers,
		QueueSize:  cfg.QueueSize,
		JobTimeout: cfg.JobTimeout,
	}, log)

	if cfg.KafkaEnabled {
		a.consumers = event.NewConsumers(
			event.Config{Brokers: cfg.KafkaBrokers, GroupID: cfg.KafkaGroupID},
			a.dedupStore(),
			event.NewProductHandler(a.workers, indexer, log),
			event.NewCategoryHandler(store, log),
			log,
		)
	}

	a.scheduler, err = scheduler.New(cfg.ReindexCron, reindexer, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: %w", err)
	}

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error { return pgPool.Ping(ctx) })
	healthHandler.Register("engine", eng.Ping)
	if a.redis != nil {
		healthHandler.Register("redis", func(ctx context.Context) error { return a.redis.Ping(ctx).Err() })
	}
	if cfg.KafkaEnabled {
		healthHandler.Register("kafka", func(ctx context.Context) error {
			return kafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
	}

	router := handler.NewRouter(
		handler.NewSearchHandler(searcher, log),
		handler.NewAdminHandler(indexer, reindexer, log),
		healthHandler,
		log,
	)

	a.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the workers, consumers, scheduler, and HTTP server, then blocks
// until the context is canceled and the service has shut down.
func (a *App) Run(ctx context.Context) error {
	a.workers.Start(ctx)
	a.scheduler.Start()

	errCh := make(chan error, 2)

	if a.consumers != nil {
		go func() {
			if err := a.consumers.Start(ctx); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("consumers: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("fatal component failure", "error", err)
		return a.shutdown(err)
	}

	return a.shutdown(nil)
}

func (a *App) shutdown(cause error) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGrace)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown failed", "error", err)
	}

	a.scheduler.Stop()
	if a.consumers != nil {
		if err := a.consumers.Close(); err != nil {
			a.logger.Error("consumer shutdown failed", "error", err)
		}
	}
	a.workers.Stop()
	a.Close()

	a.logger.Info("shutdown complete")
	return cause
}

// Close releases connections. Safe to call on a partially constructed App.
func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pgPool != nil {
		a.pgPool.Close()
	}
}

func (a *App) dedupStore() kafka.IdempotencyStore {
	if a.redis != nil {
		return event.NewRedisIdempotencyStore(a.redis, event.DefaultDedupTTL)
	}
	return kafka.NewMemoryIdempotencyStore(event.DefaultDedupTTL)
}

func buildEngine(cfg *config.Config, log *slog.Logger) (engine.Engine, error) {
	switch cfg.Engine {
	case config.EngineMemory:
		log.Warn("using in-memory search engine, index contents will not survive restarts")
		return memory.New(), nil
	default:
		return elasticsearch.New(cfg.ElasticsearchURL, cfg.IndexAlias, log)
	}
}

func ptr[T any](v T) *T {
	return &v
}
