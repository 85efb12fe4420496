// Package prometheus exposes edgeauth engine metrics as a prometheus.Collector.
//
// [NewCollector] reads [edgeauth.Engine.MetricsSnapshot] on every scrape. Counter
// names are prefixed edgeauth_*_total; the single histogram is
// edgeauth_access_latency_seconds. [Handler] mounts the collector on its own registry.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
