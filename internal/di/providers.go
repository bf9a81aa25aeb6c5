package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"snapgram-sync/internal/application/commands"
	"snapgram-sync/internal/application/feed"
	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/application/queries"
	"snapgram-sync/internal/application/search"
	"snapgram-sync/internal/config"
	"snapgram-sync/internal/infrastructure/cache"
	"snapgram-sync/internal/infrastructure/observability"
	"snapgram-sync/internal/infrastructure/persistence"
	"snapgram-sync/internal/interfaces/http/handlers"
)

// Version is stamped into health responses and trace resources.
var Version = "dev"

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Environment == config.Production {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = cfg.Logging.Format
	// stdout carries command output
	zc.OutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger.With(zap.String("environment", string(cfg.Environment))), nil
}

func provideCollector(cfg *config.Config) *observability.Collector {
	return observability.NewCollector(cfg.Metrics.Namespace)
}

func provideTracing(cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	tp, err := observability.InitTracing(observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     Version,
		Environment: string(cfg.Environment),
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRate:  cfg.Tracing.SampleRate,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

func provideBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger, collector *observability.Collector) (ports.Backend, error) {
	base, err := persistence.NewBackendFactory(logger).Create(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return persistence.NewDecoratorChain(cfg, logger, collector).Decorate(base), nil
}

func provideEntities(cfg *config.Config, logger *zap.Logger) *cache.Entities {
	return cache.NewEntities(cfg.Cache.MaxItems, logger)
}

func provideQueryCache(cfg *config.Config, collector *observability.Collector, logger *zap.Logger) (*queries.Cache, func()) {
	c := queries.NewCache(queries.CacheConfig{MaxAge: cfg.Cache.MaxAge}, collector, logger)
	return c, c.Close
}

func provideQueryService(c *queries.Cache, backend ports.Backend, entities *cache.Entities, cfg *config.Config, logger *zap.Logger) *queries.Service {
	return queries.NewService(c, backend, entities, queries.ServiceConfig{
		RecentLimit:  cfg.Cache.RecentLimit,
		FeedPageSize: cfg.Feed.PageSize,
	}, logger)
}

func provideCoordinator(backend ports.Backend, c *queries.Cache, entities *cache.Entities, collector *observability.Collector, logger *zap.Logger) *commands.Coordinator {
	return commands.NewCoordinator(backend, c, entities, commands.CoordinatorConfig{
		Preview: ports.DefaultPreviewOptions(),
		Table:   commands.DefaultInvalidationTable(),
	}, collector, logger)
}

func provideFeedReader(svc *queries.Service, c *queries.Cache, collector *observability.Collector, logger *zap.Logger) *feed.Reader {
	r := feed.NewReader(svc, collector, logger)
	r.Follow(c)
	return r
}

func provideSearch(svc *queries.Service, cfg *config.Config, logger *zap.Logger) *search.Query {
	return search.NewQuery(svc, cfg.Search.Debounce, nil, logger)
}

// provideHealthHandler reports the backend ready when a one-post listing
// succeeds.
func provideHealthHandler(backend ports.Backend, logger *zap.Logger) *handlers.HealthHandler {
	return handlers.NewHealthHandler(Version, map[string]handlers.Checker{
		"backend": func(ctx context.Context) error {
			_, err := backend.ListPosts(ctx, ports.Limit(1))
			return err
		},
	}, logger)
}
