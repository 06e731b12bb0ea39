package lookupd

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports lookup and reload metrics to Prometheus.
type Metrics struct {
	registry *prometheus.Registry

	lookups        *prometheus.CounterVec
	lookupDuration *prometheus.HistogramVec
	reloads        *prometheus.CounterVec
	fstBytes       prometheus.Gauge
	fstStates      prometheus.Gauge
	fstKeys        prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry, together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexfst_lookups_total",
				Help: "Total number of lookups by endpoint and result",
			},
			[]string{"endpoint", "result"},
		),
		lookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lexfst_lookup_duration_seconds",
				Help:    "Time spent walking the automaton",
				Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.01},
			},
			[]string{"endpoint"},
		),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexfst_reloads_total",
				Help: "Total number of dictionary reload attempts by result",
			},
			[]string{"result"},
		),
		fstBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lexfst_fst_bytes",
			Help: "Size of the active compiled automaton",
		}),
		fstStates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lexfst_fst_states",
			Help: "Number of states in the active automaton",
		}),
		fstKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lexfst_fst_keys",
			Help: "Number of distinct keys in the active automaton",
		}),
	}
	registry.MustRegister(m.lookups, m.lookupDuration, m.reloads, m.fstBytes, m.fstStates, m.fstKeys)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveLookup records one lookup. result is "hit", "miss" or "error".
func (m *Metrics) ObserveLookup(endpoint, result string, d time.Duration) {
	m.lookups.WithLabelValues(endpoint, result).Inc()
	m.lookupDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveReload records one reload attempt.
func (m *Metrics) ObserveReload(result ReloadResult) {
	m.reloads.WithLabelValues(string(result)).Inc()
}

// SetSnapshot updates the gauges describing the active dictionary.
func (m *Metrics) SetSnapshot(snap *Snapshot) {
	m.fstBytes.Set(float64(snap.Stats.Bytes))
	m.fstStates.Set(float64(snap.Stats.States))
	m.fstKeys.Set(float64(snap.Header.Keys))
}
