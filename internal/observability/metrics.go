package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	connectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpbridge",
			Subsystem: "transport",
			Name:      "connect_attempts_total",
			Help:      "Connection attempts by result.",
		},
		[]string{"bridge", "result"},
	)
	sessionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpbridge",
			Subsystem: "transport",
			Name:      "session_outcomes_total",
			Help:      "How finished sessions ended.",
		},
		[]string{"bridge", "outcome"},
	)
	messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpbridge",
			Subsystem: "transport",
			Name:      "messages_total",
			Help:      "Messages relayed between socket and engine.",
		},
		[]string{"bridge", "direction"},
	)
	heartbeats = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpbridge",
			Subsystem: "transport",
			Name:      "heartbeats_total",
			Help:      "Keepalive pings written to the socket.",
		},
		[]string{"bridge"},
	)
	protocolViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpbridge",
			Subsystem: "transport",
			Name:      "protocol_violations_total",
			Help:      "Malformed inbound frames dropped.",
		},
		[]string{"bridge"},
	)
	connected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mcpbridge",
			Subsystem: "transport",
			Name:      "connected",
			Help:      "1 while the physical connection is established.",
		},
		[]string{"bridge"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			connectAttempts, sessionOutcomes, messages,
			heartbeats, protocolViolations, connected,
		)
	})
}

func RecordConnectAttempt(bridge, result string) {
	RegisterMetrics()
	connectAttempts.WithLabelValues(bridge, result).Inc()
}

func RecordSessionOutcome(bridge, outcome string) {
	RegisterMetrics()
	sessionOutcomes.WithLabelValues(bridge, outcome).Inc()
}

func RecordMessage(bridge, direction string) {
	RegisterMetrics()
	messages.WithLabelValues(bridge, direction).Inc()
}

func RecordHeartbeat(bridge string) {
	RegisterMetrics()
	heartbeats.WithLabelValues(bridge).Inc()
}

func RecordProtocolViolation(bridge string) {
	RegisterMetrics()
	protocolViolations.WithLabelValues(bridge).Inc()
}

func SetConnected(bridge string, up bool) {
	RegisterMetrics()
	v := 0.0
	if up {
		v = 1.0
	}
	connected.WithLabelValues(bridge).Set(v)
}
