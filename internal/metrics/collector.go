// Package metrics exposes the rendezvous server's operational counters
// and gauges to Prometheus.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "gossiprouter"
	subsystem = "rendezvous"
)

const (
	labelKind   = "kind" // unicast | multicast
	labelResult = "result"
	labelCause  = "cause"
)

// Collector holds all rendezvous-server Prometheus metrics.
type Collector struct {
	SessionsActive   prometheus.Gauge
	GroupsActive     prometheus.Gauge
	Connects         *prometheus.CounterVec
	Disconnects      *prometheus.CounterVec
	Relays           *prometheus.CounterVec
	SuspectsSent     prometheus.Counter
	SessionsClosed   *prometheus.CounterVec
	SweeperEvictions prometheus.Counter
}

// NewCollector creates a Collector and registers all its metrics against
// reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_active",
			Help:      "Number of currently open sessions.",
		}),
		GroupsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "groups_active",
			Help:      "Number of groups with at least one registered member.",
		}),
		Connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connects_total",
			Help:      "Total CONNECT handshakes, labeled by result.",
		}, []string{labelResult}),
		Disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "disconnects_total",
			Help:      "Total DISCONNECT requests, labeled by result.",
		}, []string{labelResult}),
		Relays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "relayed_messages_total",
			Help:      "Total MESSAGE records relayed, labeled by kind and result.",
		}, []string{labelKind, labelResult}),
		SuspectsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "suspects_sent_total",
			Help:      "Total SUSPECT records emitted by the failure-notification hook.",
		}),
		SessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_closed_total",
			Help:      "Total sessions closed, labeled by cause.",
		}, []string{labelCause}),
		SweeperEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweeper_evictions_total",
			Help:      "Total sessions closed by the idle-expiry sweeper.",
		}),
	}

	reg.MustRegister(
		c.SessionsActive,
		c.GroupsActive,
		c.Connects,
		c.Disconnects,
		c.Relays,
		c.SuspectsSent,
		c.SessionsClosed,
		c.SweeperEvictions,
	)

	return c
}

// RecordConnect increments the CONNECT counter for the given result
// ("ok" or "fail").
func (c *Collector) RecordConnect(result string) {
	c.Connects.WithLabelValues(result).Inc()
}

// RecordDisconnect increments the DISCONNECT counter for the given
// result ("ok" or "fail").
func (c *Collector) RecordDisconnect(result string) {
	c.Disconnects.WithLabelValues(result).Inc()
}

// RecordRelay increments the relay counter for the given kind
// ("unicast"/"multicast") and result ("delivered"/"dropped"/"failed").
func (c *Collector) RecordRelay(kind, result string) {
	c.Relays.WithLabelValues(kind, result).Inc()
}

// RecordSuspectSent increments the SUSPECT fan-out counter.
func (c *Collector) RecordSuspectSent() {
	c.SuspectsSent.Inc()
}

// RecordSessionClosed increments the session-close counter for the given
// cause. The rendezvous server reports "client_close", "eof" or
// "io_error"; sweeper evictions and server shutdown are counted as
// "io_error".
func (c *Collector) RecordSessionClosed(cause string) {
	c.SessionsClosed.WithLabelValues(cause).Inc()
}

// RecordSweeperEviction increments the idle-expiry eviction counter.
func (c *Collector) RecordSweeperEviction() {
	c.SweeperEvictions.Inc()
}
