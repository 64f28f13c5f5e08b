// Package metrics holds the Prometheus collectors exported by rbstore.
// Every Metrics value owns its registry so tests can build as many as they
// like without colliding on the default registerer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rbstore"

type Metrics struct {
	registry *prometheus.Registry

	Gets     *prometheus.CounterVec // result=hit|miss
	Puts     *prometheus.CounterVec // kind=insert|overwrite
	Invalid  prometheus.Counter
	Entries  prometheus.Gauge
	Version  prometheus.Gauge
	Feed     *prometheus.CounterVec // outcome=published|failed|dropped
	FeedLag  prometheus.Gauge
	RPCTimes *prometheus.HistogramVec // method
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Gets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gets_total",
			Help:      "Point lookups by result.",
		}, []string{"result"}),
		Puts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "puts_total",
			Help:      "Accepted writes by kind.",
		}, []string{"kind"}),
		Invalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_requests_total",
			Help:      "Writes rejected for a missing key or value.",
		}),
		Entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Keys currently stored.",
		}),
		Version: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_version",
			Help:      "Most recent write version.",
		}),
		Feed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_total",
			Help:      "Change events by delivery outcome.",
		}, []string{"outcome"}),
		FeedLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "queued_events",
			Help:      "Change events waiting to be published.",
		}),
		RPCTimes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "handling_seconds",
			Help:      "Unary handler latency.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"method"}),
	}
	reg.MustRegister(
		m.Gets, m.Puts, m.Invalid, m.Entries, m.Version, m.Feed, m.FeedLag, m.RPCTimes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
