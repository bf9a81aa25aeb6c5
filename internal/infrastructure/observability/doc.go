// Package observability provides the Prometheus collector and the
// OpenTelemetry tracer provider for the sync layer.
//
// The Collector owns its registry, so several instances can coexist in tests.
// It implements the recorder interfaces declared by the query cache, the
// mutation coordinator, the feed reader and the backend decorators, which
// keeps those packages free of any Prometheus import.
//
// Mutation spans are started by the coordinator with the global tracer; call
// InitTracing once at startup to export them over OTLP/gRPC.
package observability
