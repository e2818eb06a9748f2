package components

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"trafine/internal/api"
	"trafine/internal/api/handlers/http/system"
	"trafine/internal/config"
	"trafine/internal/provider/tomtom"
	"trafine/internal/redis"
	"trafine/internal/service"
	"trafine/internal/storage/memory"
	"trafine/internal/storage/postgres"
	"trafine/internal/workers"
	"trafine/pkg/logger"
)

const eventsKey = "events:incidents"

type Components struct {
	logger      *slog.Logger
	HttpServer  *api.Server
	Postgres    *postgres.Postgres
	Redis       *redis.Redis
	Sweeper     *workers.ExpirySweeper
	EventSender *service.EventSender
}

func InitComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	c := &Components{logger: logger}
	checks := map[string]system.Check{}

	var (
		store service.IncidentStore
		stats service.StatsRepository
	)
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		logger.Warn("Using in-memory incident store, reports are lost on restart")
		mem := memory.New(logger)
		store, stats = mem, mem
	default:
		logger.Info("Initializing Postgres")
		pg, err := postgres.NewPostgres(ctx, cfg, logger)
		if err != nil {
			logger.Error("Failed to init postgres", slog.Any("error", err))
			return nil, fmt.Errorf("failed to init postgres: %w", err)
		}
		c.Postgres = pg
		store, stats = pg.IncidentStore(), pg.StatsStore()
		checks["postgres"] = pg.Pool.Ping
	}

	var (
		cache  service.ProviderCache
		events service.EventQueue
	)
	if cfg.Redis.Addr != "" {
		logger.Info("Initializing Redis")
		rdb, err := redis.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			c.ShutdownAll()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		c.Redis = rdb
		checks["redis"] = rdb.Ping

		cache = redis.NewProviderCache(rdb.Client, cfg.Provider.CacheTTL)
		if !cfg.Events.Disabled {
			queue := redis.NewEventQueue(rdb.Client, eventsKey)
			events = queue
			c.EventSender = service.NewEventSender(logger, cfg.Events.WebhookURL, queue)
		}
	} else {
		logger.Warn("Redis disabled, provider cache and lifecycle events are off")
	}

	provider := tomtom.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, logger,
		tomtom.WithTimeout(cfg.Provider.Timeout),
		tomtom.WithRetries(cfg.Provider.Retries),
		tomtom.WithRateLimit(cfg.Provider.RateLimit),
	)

	lifecycleSvc := service.NewLifecycleService(store, events, logger, cfg.Store.OpTimeout)
	trafficSvc := service.NewTrafficService(provider, store, cache, logger, cfg.Store.OpTimeout)
	statsSvc := service.NewStatsService(stats)

	srv := service.NewService(trafficSvc, lifecycleSvc, statsSvc)

	c.Sweeper = workers.NewExpirySweeper(srv, cfg.Store.SweepInterval, logger)
	c.HttpServer = api.NewServer(ctx, cfg, logger, srv, checks)
	logger.Info("Initialized server")

	return c, nil
}

func SetupLogger(env string) *slog.Logger {
	switch env {
	case "local":
		return logger.SetupPrettySlog()
	case "dev":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default:
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	}
}

func (c *Components) ShutdownAll() {
	start := time.Now()
	c.logger.Info("Shutting down components")

	if c.Postgres != nil {
		c.Postgres.Pool.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.logger.Error("Redis close failed", slog.String("err", err.Error()))
		}
	}

	c.logger.Info("All components stopped",
		slog.Duration("latency", time.Since(start)))
}
