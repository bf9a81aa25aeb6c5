package di

import (
	"github.com/google/wire"
)

// SuperSet combines all provider sets for the complete sync layer.
var SuperSet = wire.NewSet(
	ObservabilityProviders,
	InfrastructureProviders,
	ApplicationProviders,
	InterfaceProviders,
	wire.Struct(new(Container), "*"),
)

// ObservabilityProviders provides logging, metrics and tracing.
var ObservabilityProviders = wire.NewSet(
	provideLogger,
	provideCollector,
	provideTracing,
)

// InfrastructureProviders provides the decorated backend and the entity store.
var InfrastructureProviders = wire.NewSet(
	provideBackend,
	provideEntities,
)

// ApplicationProviders provides the query cache, mutations, feed and search.
var ApplicationProviders = wire.NewSet(
	provideQueryCache,
	provideQueryService,
	provideCoordinator,
	provideFeedReader,
	provideSearch,
)

// InterfaceProviders provides the operational HTTP handlers.
var InterfaceProviders = wire.NewSet(
	provideHealthHandler,
)
