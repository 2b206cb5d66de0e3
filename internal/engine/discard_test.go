package engine

import (
	"context"
	"testing"
	"time"

	"github.com/houzzkit/mcpbridge/internal/testutil/testlog"
	"github.com/houzzkit/mcpbridge/internal/transport"
)

func TestDiscardSessionsGetUniqueIDs(t *testing.T) {
	d := NewDiscard(testlog.Logger(t))
	a, err := d.NewSession()
	if err != nil {
		t.Fatalf("NewSession error: %v", err)
	}
	b, err := d.NewSession()
	if err != nil {
		t.Fatalf("NewSession error: %v", err)
	}
	if a.ID() == b.ID() {
		t.Fatalf("sessions share id %q", a.ID())
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestDiscardConsumesUntilChannelCloses(t *testing.T) {
	d := NewDiscard(testlog.Logger(t))
	es, err := d.NewSession()
	if err != nil {
		t.Fatalf("NewSession error: %v", err)
	}
	in := transport.NewRendezvous[transport.Message]()
	out := transport.NewRendezvous[transport.Message]()
	defer out.Close()

	runErr := make(chan error, 1)
	go func() { runErr <- es.Run(context.Background(), in, out) }()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := in.Send(ctx, transport.Message(`{"jsonrpc":"2.0"}`)); err != nil {
			t.Fatalf("Send(%d) error: %v", i, err)
		}
	}
	in.Close()

	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run = %v, want nil after channel close", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run still blocked after channel close")
	}
}

func TestDiscardStopsOnContextCancel(t *testing.T) {
	d := NewDiscard(testlog.Logger(t))
	es, err := d.NewSession()
	if err != nil {
		t.Fatalf("NewSession error: %v", err)
	}
	in := transport.NewRendezvous[transport.Message]()
	out := transport.NewRendezvous[transport.Message]()
	defer in.Close()
	defer out.Close()

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- es.Run(ctx, in, out) }()

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run = %v, want nil on cancellation", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run still blocked after cancellation")
	}
}
