package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tradechat/internal/wire"
)

// ErrNotConnected is returned by Send and Subscribe on a closed handle.
var ErrNotConnected = errors.New("transport: not connected")

// Dialer opens websocket connections to the chat endpoint and performs the
// sub-protocol handshake.
type Dialer struct {
	Endpoint         string
	HandshakeTimeout time.Duration
	Logger           *slog.Logger
}

// Connect dials the endpoint, sends CONNECT with the supplied headers and
// waits for CONNECTED. onError fires at most once if the established
// connection later fails; handshake failures are returned directly.
func (d *Dialer) Connect(ctx context.Context, headers map[string]string, onError ErrorFunc) (Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := &websocket.Dialer{HandshakeTimeout: timeout}

	ws, _, err := dialer.DialContext(ctx, wsURL(d.Endpoint), http.Header{})
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", d.Endpoint, err)
	}

	connect := wire.NewFrame(wire.CmdConnect)
	connect.Headers[wire.HdrVersion] = "1.2"
	for name, value := range headers {
		connect.Headers[name] = value
	}
	if err := ws.WriteMessage(websocket.TextMessage, connect.Encode()); err != nil {
		ws.Close()
		return nil, fmt.Errorf("transport: handshake write: %w", err)
	}

	ws.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := ws.ReadMessage()
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("transport: handshake read: %w", err)
	}
	reply, err := wire.Decode(data)
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("transport: handshake: %w", err)
	}
	if reply.Command == wire.CmdError {
		ws.Close()
		return nil, fmt.Errorf("transport: server refused connect: %s", string(reply.Body))
	}
	if reply.Command != wire.CmdConnected {
		ws.Close()
		return nil, fmt.Errorf("transport: unexpected handshake frame %s", reply.Command)
	}
	ws.SetReadDeadline(time.Time{})

	conn := &wsConn{
		ws:      ws,
		logger:  d.Logger,
		onError: onError,
		subs:    map[string]*wsSubscription{},
	}
	go conn.readLoop()
	return conn, nil
}

// wsURL maps the configured http(s) endpoint onto the ws(s) scheme the
// dialer expects; browser clients configure the endpoint as an http URL.
func wsURL(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}

var (
	_ Transport = (*Dialer)(nil)
	_ Conn      = (*wsConn)(nil)
)

type wsConn struct {
	ws      *websocket.Conn
	logger  *slog.Logger
	onError ErrorFunc

	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
	subs   map[string]*wsSubscription
}

type wsSubscription struct {
	conn  *wsConn
	id    string
	topic string
	fn    MessageFunc
}

func (s *wsSubscription) Cancel() error {
	s.conn.mu.Lock()
	if cur, ok := s.conn.subs[s.topic]; ok && cur.id == s.id {
		delete(s.conn.subs, s.topic)
	}
	closed := s.conn.closed
	s.conn.mu.Unlock()
	if closed {
		return ErrNotConnected
	}

	frame := wire.NewFrame(wire.CmdUnsubscribe)
	frame.Headers[wire.HdrSubscription] = s.id
	return s.conn.writeFrame(frame)
}

func (c *wsConn) Subscribe(topicName string, fn MessageFunc) (Subscription, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	sub := &wsSubscription{conn: c, id: uuid.NewString(), topic: topicName, fn: fn}
	c.subs[topicName] = sub
	c.mu.Unlock()

	frame := wire.NewFrame(wire.CmdSubscribe)
	frame.Headers[wire.HdrSubscription] = sub.id
	frame.Headers[wire.HdrDestination] = topicName
	if err := c.writeFrame(frame); err != nil {
		c.mu.Lock()
		delete(c.subs, topicName)
		c.mu.Unlock()
		return nil, err
	}
	return sub, nil
}

// Send enqueues a frame for transmission. Fire-and-forget: no delivery
// acknowledgment is awaited.
func (c *wsConn) Send(destination string, headers map[string]string, body []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrNotConnected
	}
	frame := wire.NewFrame(wire.CmdSend)
	frame.Headers[wire.HdrDestination] = destination
	for name, value := range headers {
		frame.Headers[name] = value
	}
	frame.Body = body
	return c.writeFrame(frame)
}

func (c *wsConn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *wsConn) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.subs = map[string]*wsSubscription{}
	c.mu.Unlock()

	frame := wire.NewFrame(wire.CmdDisconnect)
	if err := c.writeFrame(frame); err != nil && c.logger != nil {
		c.logger.Debug("disconnect frame write failed", "error", err)
	}
	if err := c.ws.Close(); err != nil && c.logger != nil {
		c.logger.Debug("websocket close failed", "error", err)
	}
}

func (c *wsConn) writeFrame(frame wire.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, frame.Encode())
}

func (c *wsConn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}
		frame, err := wire.Decode(data)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("dropping undecodable frame", "error", err)
			}
			continue
		}
		switch frame.Command {
		case wire.CmdMessage:
			c.dispatch(frame)
		case wire.CmdError:
			if c.logger != nil {
				c.logger.Warn("server error frame", "message", string(frame.Body))
			}
		default:
			if c.logger != nil {
				c.logger.Debug("ignoring frame", "command", string(frame.Command))
			}
		}
	}
}

func (c *wsConn) dispatch(frame wire.Frame) {
	topicName := frame.Header(wire.HdrDestination)
	c.mu.Lock()
	sub := c.subs[topicName]
	c.mu.Unlock()
	if sub == nil {
		if c.logger != nil {
			c.logger.Debug("message for inactive topic", "topic", topicName)
		}
		return
	}
	sub.fn(frame.Body)
}

// fail marks the handle closed and fires the connect-time error callback
// once. Deliberate disconnects do not fire it.
func (c *wsConn) fail(err error) {
	c.mu.Lock()
	wasClosed := c.closed
	c.closed = true
	c.subs = map[string]*wsSubscription{}
	c.mu.Unlock()
	if wasClosed {
		return
	}
	c.ws.Close()
	if c.logger != nil {
		c.logger.Warn("connection lost", "error", err)
	}
	if c.onError != nil {
		c.onError(err)
	}
}
