package transport

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/houzzkit/mcpbridge/internal/observability"
)

// State is the supervisor's reconnect state machine position.
type State uint8

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateBackoff
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SupervisorConfig configures one supervised transport instance.
type SupervisorConfig struct {
	// Name identifies this instance in logs, metrics and the registry.
	Name string
	// Endpoint is the initial connection target. May be empty; Start then
	// logs a configuration error and the loop exits without retrying.
	Endpoint string
	Session  SessionConfig
	Backoff  BackoffPolicy
}

// sessionRunner abstracts one connection attempt so the supervisor's state
// machine can be exercised without a live socket.
type sessionRunner interface {
	Run(ctx context.Context, endpoint string, es EngineSession, inbound, outbound *Rendezvous[Message]) Result
}

// Supervisor owns the reconnect loop for exactly one remote control
// endpoint. It is the only long-running task exposed to the host
// application: Start spawns the loop, SetEndpoint hot-swaps the target, and
// Stop drains it. Every connection attempt gets a fresh engine session and a
// fresh channel pair; nothing is shared across attempts except the endpoint
// value and the failure streak.
type Supervisor struct {
	cfg     SupervisorConfig
	engine  Engine
	runner  sessionRunner
	backoff BackoffPolicy
	log     zerolog.Logger

	mu       sync.Mutex
	endpoint Endpoint
	state    State
	armed    bool
	failures int
	started  bool

	stopOnce sync.Once
	stop     chan struct{}
	wake     chan struct{}
	done     chan struct{}
}

// NewSupervisor builds a supervisor around the given protocol engine.
func NewSupervisor(cfg SupervisorConfig, engine Engine, log zerolog.Logger) *Supervisor {
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = "bridge"
	}
	s := &Supervisor{
		cfg:     cfg,
		engine:  engine,
		backoff: cfg.Backoff.withDefaults(),
		log:     log.With().Str("bridge", cfg.Name).Logger(),
		armed:   true,
		stop:    make(chan struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	if addr := strings.TrimSpace(cfg.Endpoint); addr != "" {
		s.endpoint = Endpoint{Addr: addr, Generation: 1}
	}
	s.runner = NewSocketSession(cfg.Session, cfg.Name, s.log, s.handleConnected)
	return s
}

// ID returns the instance name used in logs, metrics and the registry.
func (s *Supervisor) ID() string { return s.cfg.Name }

// Endpoint returns the current target address.
func (s *Supervisor) Endpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint.Addr
}

// State reports the reconnect state machine position.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins the reconnect loop in the background. Idempotent; returns
// immediately.
func (s *Supervisor) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()
	go s.loop()
}

// SetEndpoint atomically swaps the connection target. A value equal to the
// current one is a no-op. The swap takes effect on the next loop iteration;
// an in-flight attempt is never preempted mid-socket. After an authorization
// shutdown this re-arms reconnection, which then makes exactly one new
// attempt. Safe to call concurrently with the loop.
func (s *Supervisor) SetEndpoint(addr string) {
	addr = strings.TrimSpace(addr)
	s.mu.Lock()
	if addr == s.endpoint.Addr {
		s.mu.Unlock()
		return
	}
	s.endpoint = Endpoint{Addr: addr, Generation: s.endpoint.Generation + 1}
	gen := s.endpoint.Generation
	s.armed = true
	s.failures = 0
	s.mu.Unlock()

	s.log.Info().Str("endpoint", addr).Uint64("generation", gen).Msg("endpoint changed")
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stop signals the loop, interrupts a pending backoff sleep, cancels any
// in-flight attempt and blocks until the loop has observed the signal and
// exited. Safe to call more than once.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	started := s.started
	if !started {
		s.state = StateStopped
	}
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.stop) })
	if started {
		<-s.done
	}
}

func (s *Supervisor) handleConnected() {
	s.mu.Lock()
	s.failures = 0
	s.state = StateConnected
	s.mu.Unlock()
	observability.RecordConnectAttempt(s.cfg.Name, "ok")
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Supervisor) stopping() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *Supervisor) loop() {
	defer close(s.done)
	defer s.setState(StateStopped)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.stop
		cancel()
	}()

	for {
		if s.stopping() {
			return
		}

		s.mu.Lock()
		ep := s.endpoint
		armed := s.armed
		s.mu.Unlock()

		if !armed {
			// Authorization shutdown: reconnection stays disabled until a
			// SetEndpoint call re-arms it.
			s.setState(StateStopped)
			select {
			case <-s.stop:
				return
			case <-s.wake:
				continue
			}
		}

		if ep.Addr == "" {
			s.log.Error().Err(ErrNoEndpoint).Msg("cannot start transport")
			return
		}

		s.setState(StateConnecting)
		res := s.attempt(ctx, ep)
		if s.stopping() {
			return
		}

		observability.RecordSessionOutcome(s.cfg.Name, res.Outcome.String())

		if res.Outcome == OutcomeAuthRejected {
			observability.RecordConnectAttempt(s.cfg.Name, "auth_rejected")
			s.log.Error().Err(res.Err).Str("endpoint", ep.Addr).
				Msg("endpoint rejected authorization, reconnect disabled until reconfigured")
			s.mu.Lock()
			s.armed = false
			s.mu.Unlock()
			continue
		}

		if !res.Connected {
			observability.RecordConnectAttempt(s.cfg.Name, "error")
		}
		if res.Err != nil {
			s.log.Warn().Err(res.Err).Str("endpoint", ep.Addr).
				Str("outcome", res.Outcome.String()).Msg("session ended")
		} else {
			s.log.Info().Str("outcome", res.Outcome.String()).Msg("session ended")
		}

		s.mu.Lock()
		delay := s.backoff.Delay(s.failures)
		s.failures++
		s.mu.Unlock()

		s.setState(StateBackoff)
		s.log.Info().Dur("delay", delay).Msg("reconnect scheduled")
		if !s.sleep(delay) {
			return
		}
	}
}

// attempt stands up one engine session bound to a fresh channel pair and
// runs the socket against it. Everything created here dies here.
func (s *Supervisor) attempt(ctx context.Context, ep Endpoint) Result {
	inbound := NewRendezvous[Message]()
	outbound := NewRendezvous[Message]()
	defer inbound.Close()
	defer outbound.Close()

	es, err := s.engine.NewSession()
	if err != nil {
		return Result{Outcome: OutcomeLocalError, Err: err}
	}
	scoped := newScopedSession(es)
	defer scoped.Close()

	return s.runner.Run(ctx, ep.Addr, scoped, inbound, outbound)
}

// sleep waits out a backoff delay. It returns false when the supervisor is
// stopping; an endpoint change cuts the sleep short.
func (s *Supervisor) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.stop:
		return false
	case <-s.wake:
		return true
	case <-timer.C:
		return true
	}
}
