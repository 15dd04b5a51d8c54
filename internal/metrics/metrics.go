// Package metrics exposes Prometheus collectors for the enrichment service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enrichmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadhunter_enrichments_total",
			Help: "Total number of enrichments, labeled by outcome (success or failure).",
		},
		[]string{"outcome"},
	)

	enrichmentFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadhunter_enrichment_failures_total",
			Help: "Total number of failed enrichments, labeled by failure kind.",
		},
		[]string{"kind"},
	)

	enrichmentDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadhunter_enrichment_duration_seconds",
			Help:    "Histogram of end-to-end enrichment latencies, labeled by outcome.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"outcome"},
	)

	// Fetch metrics carry no per-site label: nearly every lead is a different
	// website, so a site label would add a series per lead.
	fetchPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadhunter_fetch_pages_total",
			Help: "Total number of website fetches, labeled by status code or failure kind.",
		},
		[]string{"status"},
	)

	fetchBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadhunter_fetch_bytes_total",
			Help: "Total number of body bytes fetched.",
		},
	)

	creditsChargedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadhunter_credits_charged_total",
			Help: "Total number of credits charged for successful enrichments.",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	bulkJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadhunter_bulk_jobs_total",
			Help: "Total number of bulk enrichment jobs processed, labeled by status.",
		},
		[]string{"status"},
	)

	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leadhunter_active_workers",
			Help: "Number of workers currently processing a bulk job.",
		},
	)

	rateLimitDelaysSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadhunter_rate_limit_delays_seconds",
			Help:    "Histogram of rate limit wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)
)

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if !hasHTTPScheme(rawURL) {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

func hasHTTPScheme(raw string) bool {
	for _, scheme := range []string{"http://", "https://"} {
		if len(raw) >= len(scheme) && strings.EqualFold(raw[:len(scheme)], scheme) {
			return true
		}
	}
	return false
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveEnrichment records one finished enrichment.
func ObserveEnrichment(outcome string, duration time.Duration) {
	enrichmentsTotal.WithLabelValues(outcome).Inc()
	enrichmentDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveEnrichmentFailure increments the failure counter for kind.
func ObserveEnrichmentFailure(kind string) {
	enrichmentFailuresTotal.WithLabelValues(kind).Inc()
}

// ObserveFetch records a website fetch by status code or failure kind.
func ObserveFetch(status string, bytesFetched int) {
	fetchPagesTotal.WithLabelValues(status).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.Add(float64(bytesFetched))
	}
}

// ObserveCreditsCharged adds n to the charged credits counter.
func ObserveCreditsCharged(n int) {
	if n > 0 {
		creditsChargedTotal.Add(float64(n))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveJob increments the bulk job counter for the given status.
func ObserveJob(status string) {
	bulkJobsTotal.WithLabelValues(status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(duration time.Duration) {
	rateLimitDelaysSeconds.Observe(duration.Seconds())
}
