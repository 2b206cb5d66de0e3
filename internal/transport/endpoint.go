package transport

// Endpoint is the current connection target. The generation counter
// increments on every swap so an in-flight attempt can be told apart from one
// started after a reconfiguration. At most one Endpoint is current per
// supervisor at any instant; the supervisor owns it and swaps happen under
// its lock, taking effect on the next loop iteration rather than preempting
// an active socket.
type Endpoint struct {
	Addr       string
	Generation uint64
}
