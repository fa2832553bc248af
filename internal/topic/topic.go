// Package topic computes the channel names for a conversation and enforces
// the one-active-subscription invariant for a session.
package topic

import (
	"log/slog"
	"sync"

	"tradechat/internal/transport"
)

// For returns the subscribe topic for a conversation.
func For(conversationID string) string {
	return "/chat-trade/" + conversationID
}

// DestinationFor returns the send destination for a conversation.
func DestinationFor(conversationID string) string {
	return "/app/chat.sendMessage/" + conversationID
}

// Binder pairs subscribe/unsubscribe so a session holds at most one active
// subscription. Binding while another subscription is active cancels the
// old one first.
type Binder struct {
	Logger *slog.Logger

	mu             sync.Mutex
	active         transport.Subscription
	conversationID string
}

// Bind subscribes conn to the conversation's topic, cancelling any prior
// subscription first.
func (b *Binder) Bind(conn transport.Conn, conversationID string, fn transport.MessageFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()

	sub, err := conn.Subscribe(For(conversationID), fn)
	if err != nil {
		return err
	}
	b.active = sub
	b.conversationID = conversationID
	return nil
}

// Release cancels the active subscription, if any. Cancellation is
// best-effort: a transport that already dropped the connection cannot
// deliver the UNSUBSCRIBE frame, and that is not fatal.
func (b *Binder) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
}

// Active reports the conversation currently subscribed, if any.
func (b *Binder) Active() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversationID, b.active != nil
}

func (b *Binder) releaseLocked() {
	if b.active == nil {
		return
	}
	if err := b.active.Cancel(); err != nil && b.Logger != nil {
		b.Logger.Debug("unsubscribe failed", "conversation_id", b.conversationID, "error", err)
	}
	b.active = nil
	b.conversationID = ""
}
