// Package api hosts the HTTP server, middleware, and REST handlers. Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/enrich for one-off website enrichment.
//   - POST /v1/leads/{lead_id}/enrich to enrich and charge a saved lead.
//   - POST /v1/lists/{list_id}/enrich, GET /v1/jobs/{job_id} and
//     POST /v1/jobs/{job_id}/cancel for asynchronous bulk runs.
//
// Lead, list, and job routes act on behalf of the user named in X-User-ID.
package api
