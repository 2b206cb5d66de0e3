package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/houzzkit/mcpbridge/internal/observability"
)

// SessionConfig defines the timing knobs for one physical connection.
type SessionConfig struct {
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration
	// PongWait is the read liveness window. It must exceed HeartbeatInterval;
	// if no frame or pong arrives inside it, the session is torn down.
	PongWait       time.Duration
	MaxMessageSize int64
}

// DefaultSessionConfig returns the endpoint-contract defaults. The heartbeat
// interval stays under the 60s idle timeout common to intermediary proxies.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		HandshakeTimeout:  60 * time.Second,
		WriteTimeout:      15 * time.Second,
		HeartbeatInterval: 55 * time.Second,
		PongWait:          70 * time.Second,
		MaxMessageSize:    1 << 20,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	def := DefaultSessionConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.PongWait <= c.HeartbeatInterval {
		c.PongWait = c.HeartbeatInterval + c.HeartbeatInterval/4
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	return c
}

// errEngineStopped trips the duty group when the engine run ends normally;
// a quiet engine exit must still cancel the sibling duties.
var errEngineStopped = errors.New("transport: engine session ended")

// SocketSession owns exactly one physical websocket connection and runs four
// duties against it under one cancellation scope: reader, writer, heartbeat,
// and the engine's own run. The first duty to terminate, for any reason,
// cancels the rest and the socket is closed before Run returns.
type SocketSession struct {
	cfg         SessionConfig
	name        string
	log         zerolog.Logger
	onConnected func()
}

// NewSocketSession builds a session runner. onConnected, if non-nil, fires
// once per attempt right after the handshake succeeds.
func NewSocketSession(cfg SessionConfig, name string, log zerolog.Logger, onConnected func()) *SocketSession {
	return &SocketSession{
		cfg:         cfg.withDefaults(),
		name:        name,
		log:         log,
		onConnected: onConnected,
	}
}

// firstCause records which duty ended the group first and why. Later exits,
// which are cancellation fallout, do not overwrite it.
type firstCause struct {
	once    sync.Once
	outcome Outcome
	err     error
}

func (f *firstCause) set(o Outcome, err error) {
	f.once.Do(func() {
		f.outcome = o
		f.err = err
	})
}

// Run dials endpoint, then runs the duty group against the channel pair.
// It returns only after every duty has exited and the socket is closed.
func (s *SocketSession) Run(ctx context.Context, endpoint string, es EngineSession, inbound, outbound *Rendezvous[Message]) Result {
	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return Result{
				Outcome: OutcomeAuthRejected,
				Err:     fmt.Errorf("%w: %s", ErrAuthRejected, resp.Status),
			}
		}
		return Result{
			Outcome: OutcomeLocalError,
			Err:     fmt.Errorf("transport: dial %s: %w", endpoint, err),
		}
	}
	defer conn.Close()

	observability.SetConnected(s.name, true)
	defer observability.SetConnected(s.name, false)
	if s.onConnected != nil {
		s.onConnected()
	}
	s.log.Info().Str("endpoint", endpoint).Str("session", es.ID()).Msg("connected")

	conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	first := &firstCause{}
	g, gctx := errgroup.WithContext(ctx)

	// Closing the socket is the only way to unblock a pending ReadMessage,
	// so group cancellation converges instead of leaking the reader.
	g.Go(func() error {
		<-gctx.Done()
		conn.Close()
		return nil
	})

	g.Go(func() error { return s.readLoop(gctx, conn, inbound, first) })
	g.Go(func() error { return s.writeLoop(gctx, conn, outbound, first) })
	g.Go(func() error { return s.heartbeatLoop(gctx, conn, first) })
	g.Go(func() error { return s.engineRun(gctx, es, inbound, outbound, first) })

	_ = g.Wait()

	return Result{Outcome: first.outcome, Connected: true, Err: first.err}
}

// readLoop receives frames, decodes text frames into messages and hands them
// to the inbound channel. The send may block under backpressure; that is the
// mechanism keeping the engine from being flooded.
func (s *SocketSession) readLoop(ctx context.Context, conn *websocket.Conn, inbound *Rendezvous[Message], first *firstCause) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			outcome, err := classifyReadError(err)
			first.set(outcome, err)
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
		if msgType != websocket.TextMessage {
			s.log.Warn().Int("type", msgType).Msg("ignoring non-text frame")
			continue
		}
		// Malformed payloads are a protocol violation by the remote: dropped
		// with a warning, the connection itself survives.
		if !json.Valid(data) {
			s.log.Warn().Int("bytes", len(data)).Msg("dropping malformed inbound frame")
			observability.RecordProtocolViolation(s.name)
			continue
		}
		observability.RecordMessage(s.name, "inbound")
		if err := inbound.Send(ctx, Message(data)); err != nil {
			first.set(OutcomeLocalError, err)
			return err
		}
	}
}

// writeLoop drains the outbound channel onto the socket in production order.
// When it ends, for any reason, it closes the socket so the reader unblocks.
func (s *SocketSession) writeLoop(ctx context.Context, conn *websocket.Conn, outbound *Rendezvous[Message], first *firstCause) error {
	defer conn.Close()
	for {
		msg, err := outbound.Receive(ctx)
		if err != nil {
			first.set(OutcomeLocalError, err)
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			err = fmt.Errorf("transport: write: %w", err)
			first.set(OutcomeRemoteError, err)
			return err
		}
		observability.RecordMessage(s.name, "outbound")
	}
}

// heartbeatLoop pings the remote on every interval while the socket is open.
// A failed ping write tears the group down; a missing pong surfaces in the
// reader as a deadline expiry.
func (s *SocketSession) heartbeatLoop(ctx context.Context, conn *websocket.Conn, first *firstCause) error {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			first.set(OutcomeLocalError, ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				err = fmt.Errorf("%w: %v", ErrHeartbeat, err)
				first.set(OutcomeRemoteError, err)
				return err
			}
			observability.RecordHeartbeat(s.name)
			s.log.Debug().Msg("heartbeat ping")
		}
	}
}

// engineRun delegates to the protocol engine for the lifetime of this
// connection. Its completion, normal or not, ends the group.
func (s *SocketSession) engineRun(ctx context.Context, es EngineSession, inbound, outbound *Rendezvous[Message], first *firstCause) error {
	err := es.Run(ctx, inbound, outbound)
	if err != nil && !errors.Is(err, context.Canceled) {
		err = fmt.Errorf("transport: engine session %s: %w", es.ID(), err)
		first.set(OutcomeEngineStopped, err)
		return err
	}
	first.set(OutcomeEngineStopped, nil)
	return errEngineStopped
}

func classifyReadError(err error) (Outcome, error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return OutcomeRemoteClosed, fmt.Errorf("%w: %v", ErrRemoteClosed, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		// The read deadline only expires when the heartbeat window passed
		// without a pong or any other frame.
		return OutcomeRemoteError, fmt.Errorf("%w: %v", ErrHeartbeat, err)
	}
	return OutcomeRemoteError, fmt.Errorf("transport: read: %w", err)
}
