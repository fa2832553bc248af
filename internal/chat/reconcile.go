package chat

import (
	"log/slog"
	"sync"
	"time"

	"tradechat/internal/wire"
)

// List is the authoritative local registry of conversations. It reconciles
// inbound frames into per-conversation message lists: duplicates (same
// message id) are dropped, pending local echoes are replaced by their server
// copy via receipt correlation, and everything else is appended in arrival
// order.
//
// Frames are always merged into the conversation the session was bound to
// when the subscription was created, even if the user has since opened a
// different thread; the record stays correct either way.
type List struct {
	mu     sync.Mutex
	logger *slog.Logger
	byID   map[string]*Conversation
	order  []string
}

// NewList builds an empty registry.
func NewList(logger *slog.Logger) *List {
	return &List{
		logger: logger,
		byID:   map[string]*Conversation{},
	}
}

// Upsert inserts or replaces a conversation record, keeping any messages
// already reconciled locally when the incoming record carries none.
func (l *List) Upsert(conv Conversation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	existing, ok := l.byID[conv.ID]
	if !ok {
		stored := conv.clone()
		l.byID[conv.ID] = &stored
		l.order = append(l.order, conv.ID)
		return
	}
	if len(conv.Messages) == 0 {
		conv.Messages = existing.Messages
	}
	stored := conv.clone()
	l.byID[conv.ID] = &stored
}

// Get returns a copy of the conversation.
func (l *List) Get(id string) (Conversation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	conv, ok := l.byID[id]
	if !ok {
		return Conversation{}, false
	}
	return conv.clone(), true
}

// All returns copies of every conversation in insertion order.
func (l *List) All() []Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Conversation, 0, len(l.order))
	for _, id := range l.order {
		if conv, ok := l.byID[id]; ok {
			out = append(out, conv.clone())
		}
	}
	return out
}

// Remove drops a conversation record.
func (l *List) Remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byID[id]; !ok {
		return
	}
	delete(l.byID, id)
	for i, existing := range l.order {
		if existing == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Merge reconciles one message into a conversation. It returns true when
// the list changed (append or pending replacement) and false on duplicate
// delivery. Unknown conversations get a skeleton record so a late frame for
// a no-longer-listed thread is never lost.
func (l *List) Merge(conversationID string, msg Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	conv, ok := l.byID[conversationID]
	if !ok {
		conv = &Conversation{ID: conversationID}
		l.byID[conversationID] = conv
		l.order = append(l.order, conversationID)
	}
	if msg.Receipt != "" {
		for i := range conv.Messages {
			if conv.Messages[i].Pending && conv.Messages[i].Receipt == msg.Receipt {
				msg.Pending = false
				conv.Messages[i] = msg
				return true
			}
		}
	}
	if msg.ID != "" {
		for i := range conv.Messages {
			if conv.Messages[i].ID == msg.ID {
				return false
			}
		}
	}
	conv.Messages = append(conv.Messages, msg)
	return true
}

// MergeFrame parses a raw inbound body and merges it. Malformed payloads
// are dropped with a warning; a single bad frame must not disrupt the
// session or corrupt the list.
func (l *List) MergeFrame(conversationID string, body []byte) (Message, bool) {
	payload, err := wire.ParseInbound(body)
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("dropping malformed inbound frame", "conversation_id", conversationID, "error", err)
		}
		return Message{}, false
	}
	msg := messageFromPayload(payload)
	return msg, l.Merge(conversationID, msg)
}

// AppendPending appends a provisional local echo for an outbound send.
func (l *List) AppendPending(conversationID string, msg Message) {
	msg.Pending = true
	l.Merge(conversationID, msg)
}

func messageFromPayload(p wire.InboundPayload) Message {
	msg := Message{
		ID:         string(p.ID),
		SenderID:   p.SenderID,
		SenderName: p.SenderName,
		AvatarURL:  p.AvatarURL,
		Content:    p.Content,
		Read:       p.Read,
		Receipt:    p.Receipt,
	}
	if p.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, p.Timestamp); err == nil {
			msg.SentAt = ts
		}
	}
	return msg
}
