// Package transport owns the supervised duplex connection to a remote
// control endpoint.
//
// Ownership boundary:
// - rendezvous channel pair (inbound/outbound message handoff)
// - socket session duties (reader, writer, heartbeat, engine-run)
// - reconnect supervision, backoff and endpoint hot-swap
//
// The protocol engine that interprets message content is external; it is
// consumed through the Engine interface and handed a fresh session plus a
// fresh channel pair for every physical connection. Nothing in this package
// survives a reconnect except the supervisor itself.
package transport
