package chat

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tradechat/internal/wire"
)

// Publisher is the slice of the session the send gate needs.
type Publisher interface {
	Connected() bool
	Publish(conversationID string, body []byte) error
}

// RejectReason explains why TrySend refused to dispatch.
type RejectReason string

const (
	RejectNone           RejectReason = ""
	RejectEmptyText      RejectReason = "empty text"
	RejectNoConversation RejectReason = "no conversation selected"
	RejectNotConnected   RejectReason = "not connected"
	RejectDispatchFailed RejectReason = "dispatch failed"
)

// SendResult reports the outcome of TrySend. ClearInput tells the caller to
// clear its input buffer; it is distinct from Sent so a rejection never
// wipes what the user typed.
type SendResult struct {
	Sent       bool
	ClearInput bool
	Reason     RejectReason
	Pending    Message
}

// SendGate validates outgoing messages before they touch the network.
// The sender identity is an explicit dependency, not ambient state.
type SendGate struct {
	SenderID   int64
	SenderName string
	List       *List
	Logger     *slog.Logger
	Now        func() time.Time
}

// TrySend dispatches rawText to the conversation's destination when the
// text is non-empty after trimming, a conversation is selected and the
// session is connected. On dispatch it appends a provisional pending
// message keyed by a client-generated receipt; the reconciler replaces it
// when the subscription echoes the receipt back.
func (g *SendGate) TrySend(session Publisher, conversationID, rawText string) SendResult {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return SendResult{Reason: RejectEmptyText}
	}
	if conversationID == "" {
		return SendResult{Reason: RejectNoConversation}
	}
	if session == nil || !session.Connected() {
		return SendResult{Reason: RejectNotConnected}
	}

	receipt := uuid.NewString()
	body, err := wire.OutboundPayload{
		SenderID: g.SenderID,
		Content:  text,
		Receipt:  receipt,
	}.Marshal()
	if err != nil {
		g.logError("encode outbound payload failed", err, conversationID)
		return SendResult{Reason: RejectDispatchFailed}
	}
	if err := session.Publish(conversationID, body); err != nil {
		g.logError("publish failed", err, conversationID)
		return SendResult{Reason: RejectDispatchFailed}
	}

	pending := Message{
		ID:         receipt,
		SenderID:   g.SenderID,
		SenderName: g.SenderName,
		Content:    text,
		SentAt:     g.now(),
		Receipt:    receipt,
	}
	if g.List != nil {
		g.List.AppendPending(conversationID, pending)
		pending.Pending = true
	}
	return SendResult{Sent: true, ClearInput: true, Pending: pending}
}

func (g *SendGate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *SendGate) logError(msg string, err error, conversationID string) {
	if g.Logger != nil {
		g.Logger.Error(msg, "error", err, "conversation_id", conversationID)
	}
}
