// Package metric provides Prometheus metrics for minidb.
//
// A Registry owns its own prometheus.Registry so tests and multiple servers
// in one process never collide on the global default registerer. All
// recording methods are safe to call on a nil *Registry.
//
// Metrics are exposed by the admin server at /metrics.
package metric
