// Package persistence assembles the backend of record with its decorators.
package persistence

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/config"
	"snapgram-sync/internal/infrastructure/decorators"
)

// BackendMetrics is what the chain reports to.
type BackendMetrics interface {
	decorators.CallRecorder
	BreakerRecorder
}

// DecoratorChain builds a chain of decorators for the backend.
type DecoratorChain struct {
	config  *config.Config
	logger  *zap.Logger
	metrics BackendMetrics
}

// NewDecoratorChain creates a new decorator chain builder. metrics may be nil.
func NewDecoratorChain(cfg *config.Config, logger *zap.Logger, metrics BackendMetrics) *DecoratorChain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecoratorChain{config: cfg, logger: logger, metrics: metrics}
}

// Decorate applies the configured decorators.
// Order: Base -> Circuit Breaker -> Logging/Metrics
func (dc *DecoratorChain) Decorate(base ports.Backend) ports.Backend {
	decorated := base

	if cb := dc.config.CircuitBreaker; cb.Enabled {
		decorated = NewCircuitBreakerBackend(decorated, CircuitBreakerConfig{
			Name:             "backend",
			MaxRequests:      cb.MaxRequests,
			Interval:         cb.Interval,
			Timeout:          cb.Timeout,
			FailureThreshold: cb.FailureThreshold,
			MinRequests:      cb.MinRequests,
		}, dc.metrics, dc.logger)
		dc.logger.Debug("applied circuit breaker decorator to backend")
	}

	decorated = decorators.NewLoggingBackend(decorated, dc.logger, decorators.LoggingConfig{
		LogRequests:   true,
		LogErrors:     true,
		LogTiming:     true,
		LogLevel:      zapcore.DebugLevel,
		SlowThreshold: dc.config.Logging.SlowThreshold,
	}, dc.metrics)
	dc.logger.Debug("applied logging decorator to backend")

	return decorated
}
