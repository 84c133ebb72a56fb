// Package api hosts the HTTP server, middleware, and read-only REST handlers
// for operator access. Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes; /readyz pings Postgres.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/runs and /v1/runs/{run_id} for scrape run progress via the
//     RunRepository interface.
package api
