// Package metrics wires prometheus/client_golang into the ambient
// observability the SPEC_FULL.md DOMAIN STACK section adds: poll
// success/failure per source, render cache hit/miss, and render duration.
// Nothing in spec.md's Non-goals excludes this — it's carried the same
// way vjache-cie's cmd/cie/index.go exposes promhttp.Handler() on its own
// metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PollTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewimage_poll_total",
		Help: "Poll attempts per source, labeled by outcome (success, failure, skipped).",
	}, []string{"source", "outcome"})

	RenderCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewimage_render_cache_total",
		Help: "Render cache lookups, labeled by outcome (hit, miss).",
	}, []string{"outcome"})

	RenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reviewimage_render_duration_seconds",
		Help:    "Time spent rendering one review image, including cache hits.",
		Buckets: prometheus.DefBuckets,
	}, []string{"size", "format"})

	ChatShareTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewimage_chat_share_total",
		Help: "Chat share attempts, labeled by outcome (success, failure).",
	}, []string{"outcome"})
)

// Handler returns the Prometheus exposition handler for GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
