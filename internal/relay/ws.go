package relay

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tradechat/internal/dto"
	"tradechat/internal/topic"
	"tradechat/internal/wire"
)

const sendDestinationPrefix = "/app/chat.sendMessage/"

// Publisher forwards an accepted message for fanout. The local hub is the
// default; the Kafka bridge replaces it when brokers are configured.
type Publisher interface {
	PublishMessage(conversationID, messageID string, body []byte) error
}

// wsClient serves one websocket connection through the sub-protocol
// handshake and frame loop.
type wsClient struct {
	ws        *websocket.Conn
	hub       *Hub
	store     *Store
	publisher Publisher
	logger    *slog.Logger
	authToken string

	writeMu   sync.Mutex
	connected bool
}

func (c *wsClient) writeFrame(frame wire.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, frame.Encode())
}

func (c *wsClient) writeError(message string) {
	frame := wire.NewFrame(wire.CmdError)
	frame.Body = []byte(message)
	if err := c.writeFrame(frame); err != nil && c.logger != nil {
		c.logger.Debug("error frame write failed", "error", err)
	}
}

// serve runs the frame loop until the peer disconnects.
func (c *wsClient) serve() {
	defer func() {
		c.hub.Drop(c)
		c.ws.Close()
	}()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		frame, err := wire.Decode(data)
		if err != nil {
			c.writeError("malformed frame")
			continue
		}
		switch frame.Command {
		case wire.CmdConnect:
			c.handleConnect(frame)
		case wire.CmdSubscribe:
			c.handleSubscribe(frame)
		case wire.CmdUnsubscribe:
			c.hub.Unsubscribe(c, frame.Header(wire.HdrSubscription))
		case wire.CmdSend:
			c.handleSend(frame)
		case wire.CmdDisconnect:
			return
		default:
			c.writeError("unexpected command " + string(frame.Command))
		}
	}
}

func (c *wsClient) handleConnect(frame wire.Frame) {
	if c.authToken != "" {
		auth := frame.Header(wire.HdrAuthorization)
		if auth != "Bearer "+c.authToken {
			c.writeError("unauthorized")
			return
		}
	}
	c.connected = true
	reply := wire.NewFrame(wire.CmdConnected)
	reply.Headers["version"] = "1.2"
	if err := c.writeFrame(reply); err != nil && c.logger != nil {
		c.logger.Debug("connected frame write failed", "error", err)
	}
}

func (c *wsClient) handleSubscribe(frame wire.Frame) {
	if !c.connected {
		c.writeError("not connected")
		return
	}
	dest := frame.Header(wire.HdrDestination)
	subID := frame.Header(wire.HdrSubscription)
	if dest == "" || subID == "" {
		c.writeError("subscribe requires destination and id")
		return
	}
	c.hub.Subscribe(c, dest, subID)
}

func (c *wsClient) handleSend(frame wire.Frame) {
	if !c.connected {
		c.writeError("not connected")
		return
	}
	dest := frame.Header(wire.HdrDestination)
	if !strings.HasPrefix(dest, sendDestinationPrefix) {
		c.writeError("unknown destination " + dest)
		return
	}
	conversationID := strings.TrimPrefix(dest, sendDestinationPrefix)

	payload, err := wire.ParseOutbound(frame.Body)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("dropping malformed send", "conversation_id", conversationID, "error", err)
		}
		c.writeError("malformed payload")
		return
	}

	now := time.Now().UTC()
	messageID := uuid.NewString()
	c.store.Append(conversationID, dto.ChatMessage{
		ID:             messageID,
		ConversationID: conversationID,
		SenderID:       payload.SenderID,
		Content:        payload.Content,
		CreatedAt:      now,
	})

	echo := wire.InboundPayload{
		ID:        wire.MessageID(messageID),
		SenderID:  payload.SenderID,
		Content:   payload.Content,
		Timestamp: now.Format(time.RFC3339),
		Receipt:   payload.Receipt,
	}
	body, err := echo.Marshal()
	if err != nil {
		if c.logger != nil {
			c.logger.Error("encode echo failed", "error", err)
		}
		return
	}
	if err := c.publisher.PublishMessage(conversationID, messageID, body); err != nil {
		if c.logger != nil {
			c.logger.Error("fanout failed", "conversation_id", conversationID, "error", err)
		}
	}
}

// localPublisher fans out through the in-process hub only.
type localPublisher struct {
	hub *Hub
}

func (p localPublisher) PublishMessage(conversationID, messageID string, body []byte) error {
	p.hub.Broadcast(topic.For(conversationID), messageID, body)
	return nil
}
