// Package metrics exposes Prometheus counters for the harvest pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalRequests tracks the number of HTTP requests dispatched.
	TotalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobradar_requests_total",
		Help: "The total number of HTTP requests sent.",
	})
	// TotalRequestErrors tracks requests that resulted in an error.
	TotalRequestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobradar_request_errors_total",
		Help: "The total number of failed HTTP requests.",
	})
	// TotalRateLimitHits tracks HTTP 429 responses.
	TotalRateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobradar_rate_limit_hits_total",
		Help: "The total number of times a source rate limited the harvester.",
	})
	// TotalPagesScraped tracks listing pages successfully parsed.
	TotalPagesScraped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobradar_pages_scraped_total",
		Help: "The total number of listing pages scraped.",
	})
	// TotalRecordsPersisted tracks records upserted into the store.
	TotalRecordsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobradar_records_persisted_total",
		Help: "The total number of listing records upserted.",
	})
	// TotalRecordsFailed tracks records that failed the per-record fallback.
	TotalRecordsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobradar_records_failed_total",
		Help: "The total number of listing records that could not be persisted.",
	})
)
