// Package main hosts the leadhunter entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, readiness, metrics, single-website enrichment, saved-lead
//     enrichment, and bulk list jobs. Caller identity arrives in the X-User-ID header set by the gateway.
//   - Enrichment core: internal/enrich normalizes the website, fetches one page through the Colly fetcher with a
//     fixed user agent, a 10 second budget, and a 1 MiB body cap, then extracts an email and social links.
//   - Credits: internal/service checks the balance before fetching and charges only successful enrichments, in the
//     same Postgres transaction that writes the lead (deduct_credits stored procedure).
//   - Bulk jobs: list jobs are queued in memory and fanned out to a fixed worker pool. Each worker paces requests per
//     domain and stops scheduling a job's remaining leads when credits run out or the job is canceled.
//   - Events: a lead.enriched message is published to Pub/Sub when a topic is configured.
//
// Quick checklist:
//   - Configure env vars: LEADHUNTER_SERVER_PORT, LEADHUNTER_DB_DSN, LEADHUNTER_PUBSUB_PROJECT_ID,
//     LEADHUNTER_PUBSUB_TOPIC_NAME, LEADHUNTER_AUTH_ENABLED and LEADHUNTER_AUTH_API_KEY.
//   - Run locally: go run ./cmd/leadhunter serve --config config.yaml
//   - One-off check: go run ./cmd/leadhunter enrich www.acmecorp.com
package main
