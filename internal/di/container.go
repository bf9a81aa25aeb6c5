// Package di wires the sync layer together with Google Wire.
package di

import (
	"go.uber.org/zap"

	"snapgram-sync/internal/application/commands"
	"snapgram-sync/internal/application/feed"
	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/application/queries"
	"snapgram-sync/internal/application/search"
	"snapgram-sync/internal/config"
	"snapgram-sync/internal/infrastructure/cache"
	"snapgram-sync/internal/infrastructure/observability"
	"snapgram-sync/internal/interfaces/http/handlers"
)

// Container holds every long-lived component of one sync session.
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *observability.Collector
	Tracing     *observability.TracerProvider
	Backend     ports.Backend
	Entities    *cache.Entities
	QueryCache  *queries.Cache
	Queries     *queries.Service
	Coordinator *commands.Coordinator
	Feed        *feed.Reader
	Search      *search.Query
	Health      *handlers.HealthHandler
}

// Drain stops pending searches and waits for mutations and background
// refetches to land. The cleanup returned by InitializeContainer still has
// to run afterwards.
func (c *Container) Drain() {
	c.Search.Close()
	c.Coordinator.Wait()
	c.QueryCache.Wait()
	_ = c.Logger.Sync()
}
