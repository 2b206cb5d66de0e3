package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordConnectAttempt("bridge-a", "ok")
	RecordSessionOutcome("bridge-a", "remote_closed")
	RecordMessage("bridge-a", "inbound")
	RecordMessage("bridge-a", "outbound")
	RecordHeartbeat("bridge-a")
	RecordProtocolViolation("bridge-a")
	SetConnected("bridge-a", true)

	if got := testutil.ToFloat64(connected.WithLabelValues("bridge-a")); got != 1 {
		t.Fatalf("connected gauge = %v, want 1", got)
	}
	SetConnected("bridge-a", false)
	if got := testutil.ToFloat64(connected.WithLabelValues("bridge-a")); got != 0 {
		t.Fatalf("connected gauge = %v, want 0", got)
	}
	if got := testutil.ToFloat64(messages.WithLabelValues("bridge-a", "inbound")); got != 1 {
		t.Fatalf("inbound messages = %v, want 1", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"debug", "debug"},
		{"WARN", "warn"},
		{"warning", "warn"},
		{"error", "error"},
		{"off", "disabled"},
		{"", "info"},
		{"bogus", "info"},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.raw).String(); got != tc.want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}
