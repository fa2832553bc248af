// Package relay implements the development message broker the chat client
// runs against: a websocket endpoint speaking the wire sub-protocol, a REST
// conversation API, and an optional Kafka bridge for multi-instance fanout.
package relay

import (
	"sync"

	"tradechat/internal/dto"
)

// Store keeps conversations and their messages in memory.
type Store struct {
	mu       sync.Mutex
	convs    map[string]dto.Conversation
	messages map[string][]dto.ChatMessage
	order    []string
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{
		convs:    map[string]dto.Conversation{},
		messages: map[string][]dto.ChatMessage{},
	}
}

// Seed inserts conversation fixtures.
func (s *Store) Seed(convs ...dto.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range convs {
		if _, ok := s.convs[conv.ID]; !ok {
			s.order = append(s.order, conv.ID)
		}
		s.convs[conv.ID] = conv
	}
}

// List returns all conversations in insertion order.
func (s *Store) List() []dto.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dto.Conversation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.convs[id])
	}
	return out
}

// Messages returns the history of one conversation.
func (s *Store) Messages(conversationID string) ([]dto.ChatMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[conversationID]; !ok {
		return nil, false
	}
	return append([]dto.ChatMessage(nil), s.messages[conversationID]...), true
}

// Append records a message, creating the conversation when unknown.
func (s *Store) Append(conversationID string, msg dto.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[conversationID]; !ok {
		s.convs[conversationID] = dto.Conversation{ID: conversationID}
		s.order = append(s.order, conversationID)
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
}

// Delete removes a conversation and its history.
func (s *Store) Delete(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[conversationID]; !ok {
		return false
	}
	delete(s.convs, conversationID)
	delete(s.messages, conversationID)
	for i, id := range s.order {
		if id == conversationID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}
