// Package bus implements the synchronous publish/subscribe message bus that
// drives taskwire dispatch.
//
// The bus is deliberately not a broker: there is no durability, no
// backpressure and no parallelism. Publish drains its own message before
// returning, so a purely synchronous chain of handlers executes depth-first,
// in the exact order publishes are issued.
package bus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taskwire/taskwire/pkg/api"
)

// Handler is a bus subscriber. A returned error, or a panic raised before
// the handler hands work to another goroutine, is contained by the bus:
// logged and discarded without stopping the remaining subscribers for the
// topic. A failure on a goroutine the handler spawned is past the
// containment boundary and is never caught here.
type Handler func(ctx context.Context, payload any) error

type message struct {
	topic   string
	payload any
}

// Bus maintains per-topic ordered subscriber lists and a pending-message
// buffer that Publish drains synchronously.
//
// A Bus is single-control-flow: dispatch is ordinary nested function
// invocation and nothing may call it from multiple goroutines. It carries no
// lock on purpose; a reentrant Publish from inside a handler is the normal
// case, and serializing it would change the observable ordering.
type Bus struct {
	subscribers map[string][]Handler
	pending     []message
	logger      *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for subscription and containment logging.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subscribers: make(map[string][]Handler),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe appends h to the topic's subscriber list, creating the list if
// absent. Insertion order is the invocation order for every future publish.
// Duplicate registration is allowed and results in multiple invocations per
// publish; there is no unsubscribe.
func (b *Bus) Subscribe(topic string, h Handler) {
	b.subscribers[topic] = append(b.subscribers[topic], h)
	b.logger.Info("subscribed",
		slog.String("topic", topic),
		slog.Int("subscribers", len(b.subscribers[topic])),
	)
}

// Publish enqueues one message and immediately, synchronously drains exactly
// one pending message before returning. Because every nested Publish issued
// by a subscriber does the same, the entire synchronous subtree of a message
// completes before Publish returns to its caller: depth-first, pre-order
// execution across any purely synchronous chain.
//
// A topic with no subscribers discards the message silently.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) {
	b.pending = append(b.pending, message{topic: topic, payload: payload})
	b.drainOne(ctx)
}

// drainOne removes the oldest pending message and invokes every subscriber
// for its topic, in registration order, each individually guarded.
func (b *Bus) drainOne(ctx context.Context) {
	msg := b.pending[0]
	b.pending = b.pending[1:]

	for _, h := range b.subscribers[msg.topic] {
		b.invoke(ctx, msg.topic, h, msg.payload)
	}
}

// invoke runs one subscriber with the payload, containing a synchronous
// failure (returned error or panic) so that the remaining subscribers for
// the topic still run and nothing propagates to the publisher.
func (b *Bus) invoke(ctx context.Context, topic string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "subscriber panicked",
				slog.String("topic", topic),
				slog.Any("error", fmt.Errorf("%w: %v", api.ErrTaskPanic, r)),
			)
		}
	}()

	if err := h(ctx, payload); err != nil {
		b.logger.ErrorContext(ctx, "subscriber failed",
			slog.String("topic", topic),
			slog.Any("error", err),
		)
	}
}

// Subscribers returns the number of subscribers registered for topic.
func (b *Bus) Subscribers(topic string) int {
	return len(b.subscribers[topic])
}
