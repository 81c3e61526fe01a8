// Package observability provides the operational plumbing shared by the
// whole service: structured JSON logging, Prometheus metrics, health
// probes, panic recovery and graceful shutdown.
//
// Logging is a thin fluent wrapper over stdlib log/slog with a JSON
// handler; handlers pull a request-scoped logger out of the context so
// every line carries the request id. Metrics cover the HTTP surface and
// the calls made to the identity provider. Health probes distinguish
// liveness (process up) from readiness (identity provider and, when
// configured, Redis reachable).
package observability
