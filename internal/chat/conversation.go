// Package chat holds the conversation model, the reconciler that merges
// inbound frames into it, and the send gate guarding outbound dispatch.
package chat

import "time"

// Partner identifies the other party of a conversation.
type Partner struct {
	ID        int64
	Name      string
	AvatarURL string
}

// Item references the listing/post a conversation is about.
type Item struct {
	Title    string
	ImageURL string
}

// MeetingStatus tracks an arranged handover.
type MeetingStatus string

const (
	MeetingProposed  MeetingStatus = "proposed"
	MeetingConfirmed MeetingStatus = "confirmed"
	MeetingDeclined  MeetingStatus = "declined"
)

// Meeting is the optional handover sub-resource of a conversation.
type Meeting struct {
	Place  string
	Time   time.Time
	Status MeetingStatus
}

// Message is one chat message. Messages are never mutated after creation,
// with one exception: a pending message is replaced in place when the
// server echo carrying its receipt arrives.
type Message struct {
	ID         string
	SenderID   int64
	SenderName string
	AvatarURL  string
	Content    string
	SentAt     time.Time
	Read       bool
	Pending    bool
	Receipt    string
}

// Conversation is one thread between two parties about one traded item.
// The message list is append-ordered by arrival; arrival order from the
// transport is authoritative for display, not timestamps.
type Conversation struct {
	ID       string
	Partner  Partner
	Item     Item
	Messages []Message
	Meeting  *Meeting
	TradeID  string
}

func (c Conversation) clone() Conversation {
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	if c.Meeting != nil {
		m := *c.Meeting
		out.Meeting = &m
	}
	return out
}
