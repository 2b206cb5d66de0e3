package transport

// Outcome describes how one connection attempt ended. It is a deterministic
// reduction of whichever session duty terminated first and why.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	// OutcomeRemoteClosed: the remote side closed the connection cleanly.
	OutcomeRemoteClosed
	// OutcomeRemoteError: the socket failed mid-flight (read/write error,
	// missed heartbeat window, abnormal close).
	OutcomeRemoteError
	// OutcomeAuthRejected: the handshake was refused with an authorization
	// failure. The supervisor disables reconnection on this outcome.
	OutcomeAuthRejected
	// OutcomeLocalError: a local failure ended the attempt (dial error,
	// cancellation, channel teardown).
	OutcomeLocalError
	// OutcomeEngineStopped: the protocol engine's run ended, normally or
	// with an error, before anything else did.
	OutcomeEngineStopped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRemoteClosed:
		return "remote_closed"
	case OutcomeRemoteError:
		return "remote_error"
	case OutcomeAuthRejected:
		return "auth_rejected"
	case OutcomeLocalError:
		return "local_error"
	case OutcomeEngineStopped:
		return "engine_stopped"
	default:
		return "none"
	}
}

// Result carries the outcome of one attempt back to the supervisor.
// Connected reports whether the handshake completed before the attempt
// ended; the supervisor resets its failure streak on it.
type Result struct {
	Outcome   Outcome
	Connected bool
	Err       error
}
