package config

import (
	"time"

	"github.com/houzzkit/mcpbridge/internal/transport"
)

// SessionConfig converts the file-level timing knobs into the transport's
// session configuration; zeroes fall through to transport defaults.
func (t TransportConfig) SessionConfig() transport.SessionConfig {
	return transport.SessionConfig{
		HandshakeTimeout:  seconds(t.HandshakeTimeoutS),
		WriteTimeout:      seconds(t.WriteTimeoutS),
		HeartbeatInterval: seconds(t.HeartbeatIntervalS),
		PongWait:          seconds(t.PongWaitS),
	}
}

// BackoffPolicy converts the file-level backoff knobs; zeroes fall through
// to the transport defaults (5s step, 1s floor, 60s ceiling).
func (b BackoffConfig) BackoffPolicy() transport.BackoffPolicy {
	return transport.BackoffPolicy{
		Step:    seconds(b.StepS),
		Floor:   seconds(b.FloorS),
		Ceiling: seconds(b.CeilingS),
	}
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
