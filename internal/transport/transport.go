// Package transport wraps the chat websocket behind connect, subscribe and
// send primitives speaking the wire sub-protocol.
package transport

import "context"

// MessageFunc receives the body of an inbound MESSAGE frame.
type MessageFunc func(body []byte)

// ErrorFunc is supplied at connect time and fires at most once when an
// established connection fails. It may fire long after the application has
// moved on to another conversation; callers must guard against a stale
// handle's callback mutating current state.
type ErrorFunc func(err error)

// Subscription delivers frames for one topic until cancelled.
type Subscription interface {
	Cancel() error
}

// Conn is a live connection handle.
type Conn interface {
	Subscribe(topicName string, fn MessageFunc) (Subscription, error)
	Send(destination string, headers map[string]string, body []byte) error
	Connected() bool
	// Disconnect is idempotent and safe on an already-closed handle.
	Disconnect()
}

// Transport opens connections. The websocket implementation is Dialer;
// session tests substitute fakes.
type Transport interface {
	Connect(ctx context.Context, headers map[string]string, onError ErrorFunc) (Conn, error)
}
