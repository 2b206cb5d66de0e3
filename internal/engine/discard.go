// Package engine holds protocol-engine implementations the transport can be
// run against. The real RPC engine lives outside this repository; Discard is
// the stand-in used for connectivity soak tests and by bridgectl when no
// engine is wired in.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/houzzkit/mcpbridge/internal/transport"
)

// Discard is a protocol engine that drains inbound traffic and produces
// nothing. It keeps the duplex pipe exercised end to end without interpreting
// a single message.
type Discard struct {
	log  zerolog.Logger
	next atomic.Uint64
}

func NewDiscard(log zerolog.Logger) *Discard {
	return &Discard{log: log}
}

func (d *Discard) NewSession() (transport.EngineSession, error) {
	id := fmt.Sprintf("discard-%d", d.next.Add(1))
	return &discardSession{
		id:  id,
		log: d.log.With().Str("session", id).Logger(),
	}, nil
}

type discardSession struct {
	id  string
	log zerolog.Logger
}

func (s *discardSession) ID() string { return s.id }

// Run consumes the inbound stream until the connection attempt ends. Each
// receive is synchronous with the socket reader, so this also demonstrates
// the backpressure path.
func (s *discardSession) Run(ctx context.Context, inbound, outbound *transport.Rendezvous[transport.Message]) error {
	for {
		msg, err := inbound.Receive(ctx)
		if err != nil {
			if errors.Is(err, transport.ErrChannelClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		s.log.Debug().Int("bytes", len(msg)).Msg("discarding inbound message")
	}
}

func (s *discardSession) Close() error {
	s.log.Debug().Msg("session released")
	return nil
}
