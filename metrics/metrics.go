package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the option chain collectors. A nil *Registry is valid and
// records nothing.
type Registry struct {
	reg *prometheus.Registry

	Fetches        *prometheus.CounterVec
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	Cycles         *prometheus.CounterVec
	CycleDuration  prometheus.Histogram
	RowsInWindow   prometheus.Gauge
	UnderlyingLast prometheus.Gauge
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionchain_upstream_fetches_total",
				Help: "Option chain data requests by outcome",
			},
			[]string{"outcome"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionchain_cache_hits_total",
				Help: "Cache gate hits by tier",
			},
			[]string{"tier"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionchain_cache_misses_total",
				Help: "Cache gate misses by tier",
			},
			[]string{"tier"},
		),
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionchain_refresh_cycles_total",
				Help: "Refresh cycles by result",
			},
			[]string{"result"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "optionchain_refresh_cycle_duration_seconds",
				Help:    "Duration of a refresh cycle in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		RowsInWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "optionchain_rows_in_window",
			Help: "Strikes in the last rendered table",
		}),
		UnderlyingLast: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "optionchain_underlying_value",
			Help: "Underlying value of the last rendered table",
		}),
	}
	r.reg.MustRegister(r.Fetches, r.CacheHits, r.CacheMisses, r.Cycles, r.CycleDuration, r.RowsInWindow, r.UnderlyingLast)
	return r
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Registry) ObserveFetch(outcome string) {
	if r == nil {
		return
	}
	r.Fetches.WithLabelValues(outcome).Inc()
}

func (r *Registry) CacheHit(tier string) {
	if r == nil {
		return
	}
	r.CacheHits.WithLabelValues(tier).Inc()
}

func (r *Registry) CacheMiss(tier string) {
	if r == nil {
		return
	}
	r.CacheMisses.WithLabelValues(tier).Inc()
}

func (r *Registry) ObserveCycle(result string, d time.Duration, rows int, underlying float64) {
	if r == nil {
		return
	}
	r.Cycles.WithLabelValues(result).Inc()
	r.CycleDuration.Observe(d.Seconds())
	if result == "ok" {
		r.RowsInWindow.Set(float64(rows))
		r.UnderlyingLast.Set(underlying)
	}
}
