package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hris_portal"

// Relay holds the presence/location channel metrics. A nil *Relay is a
// no-op so callers never need to check.
type Relay struct {
	peers         prometheus.Gauge
	online        prometheus.Gauge
	frames        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	dropped       prometheus.Counter
}

// NewRelay registers the relay metrics on reg
func NewRelay(reg prometheus.Registerer) *Relay {
	m := &Relay{
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "connections",
			Help:      "Open presence/location channel connections.",
		}),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "online_users",
			Help:      "Users with at least one joined connection.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "frames_relayed_total",
			Help:      "Frames fanned out by the relay, by event.",
		}, []string{"event"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "notifications_total",
			Help:      "Notifications pushed to users, by outcome.",
		}, []string{"outcome"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "persistence_dropped_total",
			Help:      "Presence writes dropped because the queue was full.",
		}),
	}
	reg.MustRegister(m.peers, m.online, m.frames, m.notifications, m.dropped)
	return m
}

func (m *Relay) SetConnections(n int) {
	if m != nil {
		m.peers.Set(float64(n))
	}
}

func (m *Relay) SetOnline(n int) {
	if m != nil {
		m.online.Set(float64(n))
	}
}

func (m *Relay) Relayed(event string) {
	if m != nil {
		m.frames.WithLabelValues(event).Inc()
	}
}

// Notified records one notification attempt reaching delivered connections
func (m *Relay) Notified(delivered int) {
	if m == nil {
		return
	}
	outcome := "delivered"
	if delivered == 0 {
		outcome = "offline"
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

func (m *Relay) Dropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

// NewRegistry returns a registry carrying the Go runtime and process
// collectors alongside whatever the caller registers.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler exposes reg in the Prometheus text format
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
