// Package channel provides generic channel interfaces for decoupled communication
// between the tailer and the ingestion loop.
package channel

import "context"

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	Send(T)
	SendContext(ctx context.Context, v T) error
}

// Channel combines read and write access.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}

// Buffered is a buffered channel implementation.
type Buffered[T any] struct {
	ch chan T
}

// New creates a new buffered channel with the given size.
func New[T any](size int) Channel[T] {
	return &Buffered[T]{ch: make(chan T, size)}
}

// Send sends a value to the channel.
func (b *Buffered[T]) Send(v T) {
	b.ch <- v
}

// SendContext sends a value unless the context is canceled first. A producer
// blocked on a full buffer must not outlive its consumer, so cancellation
// wins over delivery.
func (b *Buffered[T]) SendContext(ctx context.Context, v T) error {
	select {
	case b.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the receive-only channel.
func (b *Buffered[T]) Receive() <-chan T {
	return b.ch
}

// Len returns the number of items currently buffered. The monitor uses this
// as the ingest backlog gauge.
func (b *Buffered[T]) Len() int {
	return len(b.ch)
}

// Close closes the channel.
func (b *Buffered[T]) Close() {
	close(b.ch)
}
