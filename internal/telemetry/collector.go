// Package telemetry supplies the two ambient observability surfaces used by
// the client/server orchestrators: a Sink for structured log events and a
// Collector of Prometheus counters/gauges for peers, opcodes, validator
// rejections, and retransmits.
//
// Collector follows the injected-error-callback prometheus.Collector shape
// in runZeroInc-sockstats's TCPInfoCollector (pkg/exporter/exporter.go):
// a mutex-guarded struct implementing Describe/Collect, constructed with a
// logger callback instead of reaching for a package-level logger.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector tracks RTGP-specific counters and gauges and implements
// prometheus.Collector so it can be registered with any prometheus.Registry.
type Collector struct {
	mu     sync.Mutex
	logger func(error)

	peerCount        prometheus.Gauge
	packetsByOpcode  *prometheus.CounterVec
	rejectsByReason  *prometheus.CounterVec
	retransmits      prometheus.Counter
	connectionEvents *prometheus.CounterVec
}

// NewCollector builds a Collector. errorLoggingCallback receives any error
// encountered while gathering metrics (mirrored from the sockstats pattern);
// pass a no-op func if nothing needs reporting those.
func NewCollector(errorLoggingCallback func(error)) *Collector {
	if errorLoggingCallback == nil {
		errorLoggingCallback = func(error) {}
	}
	return &Collector{
		logger: errorLoggingCallback,
		peerCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rtgp",
			Name:      "connected_peers",
			Help:      "Number of peers currently in the Connected state.",
		}),
		packetsByOpcode: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rtgp",
			Name:      "packets_total",
			Help:      "Packets processed, labeled by opcode name and direction.",
		}, []string{"opcode", "direction"}),
		rejectsByReason: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rtgp",
			Name:      "validator_rejections_total",
			Help:      "Datagrams rejected by the stateless validator, labeled by reason.",
		}, []string{"reason"}),
		retransmits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rtgp",
			Name:      "retransmits_total",
			Help:      "Reliable frames retransmitted after their retransmit timeout elapsed.",
		}),
		connectionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rtgp",
			Name:      "connection_events_total",
			Help:      "Connection lifecycle events, labeled by kind.",
		}, []string{"kind"}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	c.peerCount.Describe(descs)
	c.packetsByOpcode.Describe(descs)
	c.rejectsByReason.Describe(descs)
	c.retransmits.Describe(descs)
	c.connectionEvents.Describe(descs)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peerCount.Collect(metrics)
	c.packetsByOpcode.Collect(metrics)
	c.rejectsByReason.Collect(metrics)
	c.retransmits.Collect(metrics)
	c.connectionEvents.Collect(metrics)
}

// SetConnectedPeers sets the current connected-peer gauge.
func (c *Collector) SetConnectedPeers(n int) {
	c.peerCount.Set(float64(n))
}

// ObservePacket increments the per-opcode counter. direction is "in" or "out".
func (c *Collector) ObservePacket(opcodeName, direction string) {
	c.packetsByOpcode.WithLabelValues(opcodeName, direction).Inc()
}

// ObserveRejection increments the validator-rejection counter for reason.
func (c *Collector) ObserveRejection(reason string) {
	c.rejectsByReason.WithLabelValues(reason).Inc()
}

// ObserveRetransmit increments the retransmit counter.
func (c *Collector) ObserveRetransmit() {
	c.retransmits.Inc()
}

// ObserveConnectionEvent increments the connection-event counter for kind
// ("connected", "disconnected", "timed_out", ...).
func (c *Collector) ObserveConnectionEvent(kind string) {
	c.connectionEvents.WithLabelValues(kind).Inc()
}
