// Package obs bootstraps process-wide observability: the zap logger, the
// OpenTelemetry tracer provider and trace-aware log fields.
package obs
