// Package adminserver exposes an HTTP endpoint for operating minidb:
// liveness, readiness, runtime stats and Prometheus metrics.
//
//	GET /healthz   -> 200 {"status":"ok"}
//	GET /readyz    -> 200 once serving, 503 otherwise
//	GET /v1/stats  -> keys, connections, lifecycle state, build info
//	GET /metrics   -> Prometheus exposition
package adminserver
