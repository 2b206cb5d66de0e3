package transport

import (
	"context"
	"sync"
)

// Engine stands in for the external protocol engine that interprets message
// content. The transport never looks inside messages; it only gives the
// engine a fresh session and a channel pair per physical connection.
type Engine interface {
	// NewSession creates a session for one connection attempt. The session is
	// never reused across reconnects.
	NewSession() (EngineSession, error)
}

// EngineSession is one engine-side session bound to a single physical
// connection. Run processes messages against the channel pair until its own
// logic completes, an error occurs, or ctx is cancelled. Close releases the
// session's resources; the transport guarantees it is called on every exit
// path.
type EngineSession interface {
	ID() string
	Run(ctx context.Context, inbound, outbound *Rendezvous[Message]) error
	Close() error
}

// scopedSession makes release idempotent so deferred cleanup on every exit
// path cannot double-close the engine session.
type scopedSession struct {
	EngineSession
	once sync.Once
	err  error
}

func newScopedSession(es EngineSession) *scopedSession {
	return &scopedSession{EngineSession: es}
}

func (s *scopedSession) Close() error {
	s.once.Do(func() { s.err = s.EngineSession.Close() })
	return s.err
}
