// Package dto defines the REST representations shared by the relay's HTTP
// surface and the conversation store client.
package dto

import "time"

// Partner describes the other party of a conversation.
type Partner struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Item references the traded post a conversation is about.
type Item struct {
	Title    string `json:"title"`
	ImageURL string `json:"image_url,omitempty"`
}

// Meeting is the optional arranged-handover sub-resource.
type Meeting struct {
	Place  string    `json:"place"`
	Time   time.Time `json:"time"`
	Status string    `json:"status"`
}

// Conversation describes chat metadata.
type Conversation struct {
	ID      string   `json:"id"`
	Partner Partner  `json:"partner"`
	Item    Item     `json:"item"`
	TradeID string   `json:"trade_id,omitempty"`
	Meeting *Meeting `json:"meeting,omitempty"`
}

// ConversationList is a collection of conversations.
type ConversationList struct {
	Items []Conversation `json:"items"`
}

// ChatMessage contains a single message payload.
type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	SenderName     string    `json:"sender_name,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Read           bool      `json:"read,omitempty"`
}

// ChatMessageList is a message collection.
type ChatMessageList struct {
	Items []ChatMessage `json:"items"`
}
