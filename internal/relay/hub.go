package relay

import (
	"log/slog"
	"sync"

	"tradechat/internal/wire"
)

// frameWriter is the slice of a websocket client the hub needs.
type frameWriter interface {
	writeFrame(frame wire.Frame) error
}

// Hub tracks which clients subscribe to which topics and broadcasts
// MESSAGE frames. Delivery order per topic follows broadcast order.
type Hub struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string]map[frameWriter]string
}

// NewHub builds an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   map[string]map[frameWriter]string{},
	}
}

// Subscribe registers a client on a topic under its subscription id.
func (h *Hub) Subscribe(c frameWriter, topicName, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[topicName] == nil {
		h.subs[topicName] = map[frameWriter]string{}
	}
	h.subs[topicName][c] = subID
}

// Unsubscribe removes a client's subscription by id.
func (h *Hub) Unsubscribe(c frameWriter, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topicName, clients := range h.subs {
		if clients[c] == subID {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.subs, topicName)
			}
		}
	}
}

// Drop removes every subscription of a client.
func (h *Hub) Drop(c frameWriter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topicName, clients := range h.subs {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.subs, topicName)
		}
	}
}

// SubscriberCount reports active subscriptions on a topic.
func (h *Hub) SubscriberCount(topicName string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topicName])
}

// Broadcast delivers a message body to every subscriber of a topic.
func (h *Hub) Broadcast(topicName, messageID string, body []byte) {
	h.mu.Lock()
	targets := make(map[frameWriter]string, len(h.subs[topicName]))
	for c, subID := range h.subs[topicName] {
		targets[c] = subID
	}
	h.mu.Unlock()

	for c, subID := range targets {
		frame := wire.NewFrame(wire.CmdMessage)
		frame.Headers[wire.HdrDestination] = topicName
		frame.Headers[wire.HdrSubscription] = subID
		frame.Headers[wire.HdrMessageID] = messageID
		frame.Headers[wire.HdrContentType] = "application/json"
		frame.Body = body
		if err := c.writeFrame(frame); err != nil && h.logger != nil {
			h.logger.Debug("broadcast write failed", "topic", topicName, "error", err)
		}
	}
}
