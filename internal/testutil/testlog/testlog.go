// Package testlog wires zerolog output into the test runner so log lines
// show up attached to the failing test.
package testlog

import (
	"testing"

	"github.com/rs/zerolog"
)

func Logger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
}
