// Package metrics provides the Request Gate and retrieval counters exposed
// at /metrics and summarized at /health/ready, grounded on the Prometheus
// client wiring of Siddhant-K-code-distill's pkg/metrics.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every Prometheus collector this server exposes.
type Registry struct {
	QueriesTotal    *prometheus.CounterVec
	QuotaRejections *prometheus.CounterVec
	CacheHitsTotal  prometheus.Counter
	CacheMissTotal  prometheus.Counter

	registry *prometheus.Registry

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates and registers the full counter set on a private registry, so
// this server's metrics never collide with anything else in a shared
// process-wide default registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "midos_queries_total",
				Help: "Tool calls admitted by the Request Gate, by tool and tier.",
			},
			[]string{"tool", "tier"},
		),
		QuotaRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "midos_quota_rejections_total",
				Help: "Tool calls rejected for exceeding their monthly quota, by tier.",
			},
			[]string{"tier"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "midos_response_cache_hits_total",
				Help: "Semantic response cache hits across semantic_search and search_knowledge.",
			},
		),
		CacheMissTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "midos_response_cache_misses_total",
				Help: "Semantic response cache misses across semantic_search and search_knowledge.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(r.QueriesTotal, r.QuotaRejections, r.CacheHitsTotal, r.CacheMissTotal)
	return r
}

// RecordQuery records one Request Gate admission for tool at tier.
func (r *Registry) RecordQuery(tool, tier string) {
	if r == nil {
		return
	}
	r.QueriesTotal.WithLabelValues(tool, tier).Inc()
}

// RecordQuotaRejection records one quota-exceeded rejection at tier.
func (r *Registry) RecordQuotaRejection(tier string) {
	if r == nil {
		return
	}
	r.QuotaRejections.WithLabelValues(tier).Inc()
}

// RecordCacheHit records a semantic response cache hit.
func (r *Registry) RecordCacheHit() {
	if r == nil {
		return
	}
	r.CacheHitsTotal.Inc()
	r.hits.Add(1)
}

// RecordCacheMiss records a semantic response cache miss (a lookup that ran
// against a non-empty cache but scored below threshold, or found nothing).
func (r *Registry) RecordCacheMiss() {
	if r == nil {
		return
	}
	r.CacheMissTotal.Inc()
	r.misses.Add(1)
}

// CacheHitRatio returns the observed hit ratio, or -1 if the cache has never
// been queried. Prometheus counters aren't readable back out cheaply, so the
// ratio /health/ready reports is tracked separately via atomic counters
// updated alongside the Prometheus ones.
func (r *Registry) CacheHitRatio() float64 {
	if r == nil {
		return -1
	}
	hits := r.hits.Load()
	total := hits + r.misses.Load()
	if total == 0 {
		return -1
	}
	return float64(hits) / float64(total)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
