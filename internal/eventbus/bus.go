// Package eventbus implements the single-process, synchronous publish/subscribe control
// plane described in SPEC_FULL.md §4.2: topic names are dotted strings, subscribers
// register by topic, and emit dispatches to every registered handler in registration
// order before returning. There is no queueing and no back-pressure — it is a
// control-plane primitive, not a task queue.
package eventbus

import (
	"sync"

	"github.com/ternarybob/arbor"
)

// Topic is a dotted event name, e.g. "PHASE:CHANGED" or "DISCOVERY:ALL_IDLE".
type Topic string

// Handler processes one emitted event. A handler error is logged but does not stop
// dispatch to the remaining handlers for the same emit call.
type Handler func(payload interface{}) error

// subscription pairs a handler with a token so Unsubscribe does not need to compare
// function values (comparing function pointers/closures by address is unreliable — the
// reference implementation this is grounded on has exactly that bug in its Unsubscribe).
type subscription struct {
	token   int
	handler Handler
}

// Bus is the event bus. It is constructed once per run and passed explicitly to every
// phase strategy and worker proxy — never retrieved through a package-level singleton.
type Bus struct {
	mu          sync.Mutex
	subscribers map[Topic][]subscription
	nextToken   int
	logger      arbor.ILogger
}

// New constructs an empty Bus.
func New(logger arbor.ILogger) *Bus {
	return &Bus{
		subscribers: make(map[Topic][]subscription),
		logger:      logger,
	}
}

// Token identifies one subscription for later removal.
type Token struct {
	topic Topic
	id    int
}

// Subscribe registers handler for topic and returns a Token that Unsubscribe accepts.
func (b *Bus) Subscribe(topic Topic, handler Handler) Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextToken++
	tok := b.nextToken
	b.subscribers[topic] = append(b.subscribers[topic], subscription{token: tok, handler: handler})

	if b.logger != nil {
		b.logger.Debug().
			Str("topic", string(topic)).
			Int("subscriber_count", len(b.subscribers[topic])).
			Msg("event handler subscribed")
	}

	return Token{topic: topic, id: tok}
}

// Unsubscribe removes the handler identified by tok. It is a no-op if the token is
// unknown (already removed, or from a different Bus instance).
func (b *Bus) Unsubscribe(tok Token) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.subscribers[tok.topic]
	for i, s := range handlers {
		if s.token == tok.id {
			b.subscribers[tok.topic] = append(handlers[:i:i], handlers[i+1:]...)
			return
		}
	}
}

// Emit dispatches payload synchronously to every handler registered for topic, in
// registration order, and returns once all handlers have run. Handler errors are logged
// and do not short-circuit the remaining handlers or propagate to the caller — the bus is
// a control-plane primitive; a subscriber's failure to process an event is its own
// concern, not the emitter's.
func (b *Bus) Emit(topic Topic, payload interface{}) {
	b.mu.Lock()
	handlers := make([]subscription, len(b.subscribers[topic]))
	copy(handlers, b.subscribers[topic])
	b.mu.Unlock()

	if len(handlers) == 0 {
		return
	}

	for _, s := range handlers {
		if err := s.handler(payload); err != nil && b.logger != nil {
			b.logger.Error().
				Err(err).
				Str("topic", string(topic)).
				Msg("event handler failed")
		}
	}
}

// Close removes every subscriber. Safe to call once at shutdown.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[Topic][]subscription)
}
