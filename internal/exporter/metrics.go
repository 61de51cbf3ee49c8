package exporter

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ubuntu/battery-insights/internal/pipeline"
)

const namespace = "battery_insights"

type pathKey struct{}

// metrics holds the gauges describing the last good result and the generation counters.
type metrics struct {
	health         *prometheus.GaugeVec
	degradation    *prometheus.GaugeVec
	design         *prometheus.GaugeVec
	full           *prometheus.GaugeVec
	cycles         *prometheus.GaugeVec
	dischargeRate  prometheus.Gauge
	timeToEmpty    prometheus.Gauge
	usageEntries   prometheus.Gauge
	generations    *prometheus.CounterVec
	lastSuccess    prometheus.Gauge
	requests       *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	// Battery ids may be empty or repeated, the index keeps every battery apart.
	battery := []string{"battery", "index"}
	labels := []string{"method", "code", "path"}

	return &metrics{
		health: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "battery_health_percent",
			Help: "Full charge capacity of the battery relative to its design capacity.",
		}, battery),
		degradation: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "battery_degradation_percent",
			Help: "Capacity lost by the battery relative to its design capacity.",
		}, battery),
		design: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "battery_design_capacity_mwh",
			Help: "Design capacity of the battery.",
		}, battery),
		full: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "battery_full_charge_capacity_mwh",
			Help: "Full charge capacity of the battery.",
		}, battery),
		cycles: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "battery_cycle_count",
			Help: "Cycle count reported for the battery.",
		}, battery),
		dischargeRate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "average_discharge_rate",
			Help: "Average discharge rate over the recent usage history.",
		}),
		timeToEmpty: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "time_to_empty",
			Help: "Estimated time to empty at the average discharge rate. +Inf when not discharging.",
		}),
		usageEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "usage_entries",
			Help: "Number of entries in the recent usage history.",
		}),
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "generations_total",
			Help: "Number of report generations by outcome.",
		}, []string{"result"}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds",
			Help: "Time of the last successful report generation.",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "Tracks the number of HTTP requests.",
		}, labels),
		requestSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help: "Tracks the latencies for HTTP requests.",
			// Generations shell out to the platform tool, so go up to about 80s.
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 15),
		}, labels),
	}
}

func (m *metrics) success(r pipeline.Result, at time.Time) {
	m.generations.WithLabelValues("success").Inc()
	m.lastSuccess.Set(float64(at.Unix()))

	for _, vec := range []*prometheus.GaugeVec{m.health, m.degradation, m.design, m.full, m.cycles} {
		vec.Reset()
	}
	for i, b := range r.Summary.Batteries {
		labels := prometheus.Labels{"battery": b.ID, "index": strconv.Itoa(i)}
		m.health.With(labels).Set(b.Health)
		m.degradation.With(labels).Set(b.Degradation)
		m.design.With(labels).Set(float64(b.DesignCapacity))
		m.full.With(labels).Set(float64(b.FullChargeCapacity))
		m.cycles.With(labels).Set(float64(b.CycleCount))
	}
	m.dischargeRate.Set(r.Summary.AverageDischargeRate)
	m.timeToEmpty.Set(float64(r.Summary.TimeToEmpty))
	m.usageEntries.Set(float64(len(r.Report.RecentUsage)))
}

func (m *metrics) failure() {
	m.generations.WithLabelValues("failure").Inc()
}

// monitor instruments the requests of the router, labelled by route template.
func (m *metrics) monitor(next http.Handler) http.Handler {
	path := promhttp.WithLabelFromCtx("path", func(ctx context.Context) string {
		if p, ok := ctx.Value(pathKey{}).(string); ok {
			return p
		}
		return "unknown"
	})
	instrumented := promhttp.InstrumentHandlerCounter(m.requests,
		promhttp.InstrumentHandlerDuration(m.requestSeconds, next, path),
		path,
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				p = tpl
			}
		}
		instrumented.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), pathKey{}, p)))
	})
}
