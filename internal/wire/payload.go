package wire

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MessageID is a chat message identifier. The server assigns numeric ids,
// older deployments used strings; both decode into the same type.
type MessageID string

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (id *MessageID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = MessageID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = MessageID(n.String())
	return nil
}

// MarshalJSON emits the id as a string; empty ids marshal as null.
func (id MessageID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

// OutboundPayload is the body of a SEND frame.
type OutboundPayload struct {
	SenderID int64  `json:"senderId"`
	Content  string `json:"content"`
	Receipt  string `json:"receipt,omitempty"`
}

// Marshal serializes the outbound payload.
func (p OutboundPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// ParseOutbound decodes and validates a SEND body, failing closed like
// ParseInbound.
func ParseOutbound(data []byte) (OutboundPayload, error) {
	var p OutboundPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return OutboundPayload{}, fmt.Errorf("wire: outbound payload: %w", err)
	}
	if strings.TrimSpace(p.Content) == "" {
		return OutboundPayload{}, fmt.Errorf("wire: outbound payload missing content")
	}
	if p.SenderID == 0 {
		return OutboundPayload{}, fmt.Errorf("wire: outbound payload missing senderId")
	}
	return p, nil
}

// InboundPayload is the body of a MESSAGE frame.
type InboundPayload struct {
	ID         MessageID `json:"id"`
	SenderID   int64     `json:"senderId"`
	SenderName string    `json:"senderName,omitempty"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	Content    string    `json:"content"`
	Timestamp  string    `json:"timestamp,omitempty"`
	Receipt    string    `json:"receipt,omitempty"`
	Read       bool      `json:"read,omitempty"`
}

// Marshal serializes an inbound payload; the relay uses it to build echo
// frames.
func (p InboundPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// ParseInbound decodes and validates an inbound message body. It fails
// closed: any shape mismatch or missing required field is an error so the
// caller can drop the frame instead of propagating a half-parsed message.
func ParseInbound(data []byte) (InboundPayload, error) {
	var p InboundPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return InboundPayload{}, fmt.Errorf("wire: inbound payload: %w", err)
	}
	if strings.TrimSpace(p.Content) == "" {
		return InboundPayload{}, fmt.Errorf("wire: inbound payload missing content")
	}
	if p.SenderID == 0 {
		return InboundPayload{}, fmt.Errorf("wire: inbound payload missing senderId")
	}
	return p, nil
}
