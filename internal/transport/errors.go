package transport

import "errors"

var (
	// ErrNoEndpoint means no endpoint address is configured. This is a
	// configuration error: the supervisor loop exits without scheduling a
	// retry, since there is nothing to retry against.
	ErrNoEndpoint = errors.New("transport: no endpoint configured")

	// ErrAuthRejected means the remote endpoint refused the handshake with an
	// authorization failure. Reconnection is disabled until the endpoint is
	// reconfigured; retrying would hammer a permanently-unauthorized target.
	ErrAuthRejected = errors.New("transport: endpoint rejected authorization")

	// ErrRemoteClosed means the remote side closed the connection cleanly.
	ErrRemoteClosed = errors.New("transport: remote closed connection")

	// ErrHeartbeat means a keepalive ping could not be written, or no pong
	// arrived inside the heartbeat window. Treated as a socket error.
	ErrHeartbeat = errors.New("transport: heartbeat failed")

	// ErrChannelClosed is returned by Rendezvous operations after Close.
	ErrChannelClosed = errors.New("transport: channel closed")
)
