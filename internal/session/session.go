// Package session owns the live connection bound to one conversation: the
// connect/teardown lifecycle, the single subscription, and reconnection.
//
// Reconnection retries indefinitely at a fixed delay with no backoff and no
// attempt cap; against a long outage this keeps dialing every interval for
// as long as a conversation stays selected.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tradechat/internal/topic"
	"tradechat/internal/transport"
	"tradechat/internal/wire"
)

// Status is the connection state exposed to consumers.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned by Publish when no live connection exists.
var ErrNotConnected = errors.New("session: not connected")

// DefaultReconnectDelay matches the original fixed retry interval.
const DefaultReconnectDelay = 3 * time.Second

// FrameFunc receives inbound message bodies along with the conversation the
// subscription was bound to when it was created.
type FrameFunc func(conversationID string, body []byte)

// HeadersFunc supplies the connect headers, typically bearer auth.
type HeadersFunc func() map[string]string

// Option tunes a Manager.
type Option func(*Manager)

// WithReconnectDelay overrides the fixed retry delay.
func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.delay = d
		}
	}
}

// Manager drives the session state machine. At most one live transport
// handle and one subscription exist per Manager at any time; both are owned
// exclusively by it, as is the reconnect timer. Stale asynchronous
// callbacks (connect completions, connection-lost notifications, retry
// timers) are discarded via a generation counter.
type Manager struct {
	transport transport.Transport
	headers   HeadersFunc
	onFrame   FrameFunc
	logger    *slog.Logger
	delay     time.Duration

	mu      sync.Mutex
	status  Status
	lastErr error
	convID  string
	conn    transport.Conn
	binder  topic.Binder
	retry   *time.Timer
	gen     uint64
	ctx     context.Context
}

// NewManager wires a Manager. onFrame is invoked from the transport's
// delivery goroutine.
func NewManager(t transport.Transport, headers HeadersFunc, onFrame FrameFunc, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		transport: t,
		headers:   headers,
		onFrame:   onFrame,
		logger:    logger,
		delay:     DefaultReconnectDelay,
		status:    StatusIdle,
		binder:    topic.Binder{Logger: logger},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Select binds the manager to a conversation. Any prior session is fully
// torn down first, synchronously, before the new connect is initiated.
func (m *Manager) Select(ctx context.Context, conversationID string) {
	m.mu.Lock()
	m.teardownLocked()
	m.gen++
	gen := m.gen
	m.convID = conversationID
	m.ctx = ctx
	m.status = StatusConnecting
	m.lastErr = nil
	m.mu.Unlock()

	go m.connect(ctx, gen, conversationID)
}

// Teardown cancels the retry timer, releases the subscription and closes
// the connection, in that order. Safe to call repeatedly.
func (m *Manager) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.teardownLocked()
	m.status = StatusTerminated
	m.convID = ""
}

// Status returns the current connection state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Connected reports whether a live, handshaken connection exists.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == StatusConnected && m.conn != nil
}

// Err returns the last connection error, cleared on successful connect.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// ConversationID returns the currently bound conversation, "" when none.
func (m *Manager) ConversationID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.convID
}

// Publish sends a body to the bound conversation's destination.
// Fire-and-forget: no delivery acknowledgment is awaited.
func (m *Manager) Publish(conversationID string, body []byte) error {
	m.mu.Lock()
	conn := m.conn
	status := m.status
	bound := m.convID
	m.mu.Unlock()

	if status != StatusConnected || conn == nil {
		return ErrNotConnected
	}
	if conversationID != bound {
		return fmt.Errorf("session: conversation %q not bound (current %q)", conversationID, bound)
	}
	headers := map[string]string{wire.HdrContentType: "application/json"}
	return conn.Send(topic.DestinationFor(conversationID), headers, body)
}

func (m *Manager) connect(ctx context.Context, gen uint64, conversationID string) {
	headers := map[string]string{}
	if m.headers != nil {
		headers = m.headers()
	}
	conn, err := m.transport.Connect(ctx, headers, func(err error) {
		m.connectionLost(gen, conversationID, err)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		// Selection changed while connecting; this handle is stale.
		if conn != nil {
			conn.Disconnect()
		}
		return
	}
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("connect failed", "conversation_id", conversationID, "error", err)
		}
		m.lastErr = err
		m.status = StatusReconnecting
		m.scheduleRetryLocked(ctx, gen, conversationID)
		return
	}

	m.conn = conn
	m.status = StatusConnected
	m.lastErr = nil
	if m.logger != nil {
		m.logger.Info("session connected", "conversation_id", conversationID)
	}

	onFrame := m.onFrame
	if bindErr := m.binder.Bind(conn, conversationID, func(body []byte) {
		if onFrame != nil {
			onFrame(conversationID, body)
		}
	}); bindErr != nil {
		// Degraded: connected but receiving nothing. Not auto-recovered.
		if m.logger != nil {
			m.logger.Error("subscribe failed", "conversation_id", conversationID, "error", bindErr)
		}
	}
}

func (m *Manager) connectionLost(gen uint64, conversationID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		// A stale handle's error callback must not mutate current state.
		return
	}
	if m.logger != nil {
		m.logger.Warn("connection lost", "conversation_id", conversationID, "error", err)
	}
	m.binder.Release()
	if m.conn != nil {
		m.conn.Disconnect()
		m.conn = nil
	}
	m.lastErr = err
	m.status = StatusReconnecting
	m.scheduleRetryLocked(m.ctx, gen, conversationID)
}

func (m *Manager) scheduleRetryLocked(ctx context.Context, gen uint64, conversationID string) {
	if m.retry != nil {
		m.retry.Stop()
	}
	m.retry = time.AfterFunc(m.delay, func() {
		m.retryFire(ctx, gen, conversationID)
	})
}

func (m *Manager) retryFire(ctx context.Context, gen uint64, conversationID string) {
	m.mu.Lock()
	if gen != m.gen || m.convID != conversationID {
		// The selection moved on while the timer was pending.
		m.mu.Unlock()
		return
	}
	m.status = StatusConnecting
	m.mu.Unlock()

	m.connect(ctx, gen, conversationID)
}

func (m *Manager) teardownLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	m.binder.Release()
	if m.conn != nil {
		m.conn.Disconnect()
		m.conn = nil
	}
}
