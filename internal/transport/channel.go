package transport

import (
	"context"
	"sync"
)

// Message is one serialized RPC payload in the outer protocol's envelope.
// The transport carries it as opaque bytes and never inspects its content.
type Message []byte

// Rendezvous is a zero-capacity single-producer/single-consumer handoff
// queue. A Send blocks until a matching Receive is ready, so the consumer can
// never be flooded faster than it drains and delivery order is exactly the
// order of sends. Two of these form the duplex pipe between the socket
// session and the protocol engine, one per direction, replaced wholesale on
// every reconnect.
type Rendezvous[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

// NewRendezvous creates an open rendezvous channel.
func NewRendezvous[T any]() *Rendezvous[T] {
	return &Rendezvous[T]{
		ch:   make(chan T),
		done: make(chan struct{}),
	}
}

// Send hands v to a waiting receiver. It blocks until a receiver is ready,
// the channel is closed, or ctx is cancelled.
func (r *Rendezvous[T]) Send(ctx context.Context, v T) error {
	select {
	case <-r.done:
		return ErrChannelClosed
	default:
	}
	select {
	case r.ch <- v:
		return nil
	case <-r.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until a sender hands over a value, the channel is closed,
// or ctx is cancelled.
func (r *Rendezvous[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	select {
	case v := <-r.ch:
		return v, nil
	case <-r.done:
		return zero, ErrChannelClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close releases the channel. Pending and future Send/Receive calls unblock
// with ErrChannelClosed. Safe to call more than once.
func (r *Rendezvous[T]) Close() {
	r.once.Do(func() { close(r.done) })
}
