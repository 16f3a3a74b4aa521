// Package metrics exposes relay counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatrelay"

// Metrics holds the relay collectors on a private registry, so several
// instances can coexist (tests). A nil *Metrics is a no-op.
type Metrics struct {
	reg *prometheus.Registry

	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter
	rooms             prometheus.Gauge
	commands          *prometheus.CounterVec
	errors            prometheus.Counter
	linesSent         prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		connectionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections_active",
			Help: "Currently open client connections.",
		}),
		connectionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "connections_total",
			Help: "Client connections accepted since start.",
		}),
		rooms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "rooms",
			Help: "Rooms created since start (rooms are never removed).",
		}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "commands_total",
			Help: "Logical messages processed, by command.",
		}, []string{"command"}),
		errors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "errors_total",
			Help: "ERROR lines sent to clients.",
		}),
		linesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "lines_sent_total",
			Help: "Protocol lines successfully written to clients.",
		}),
	}
}

// Handler exposes the registry at /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.connectionsActive.Inc()
	m.connectionsTotal.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

func (m *Metrics) RoomCreated() {
	if m == nil {
		return
	}
	m.rooms.Inc()
}

// Command counts one processed message. Unknown commands share a label.
func (m *Metrics) Command(name string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name).Inc()
}

func (m *Metrics) ProtocolError() {
	if m == nil {
		return
	}
	m.errors.Inc()
}

func (m *Metrics) LinesSent(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.linesSent.Add(float64(n))
}
