// Package wire implements the framed sub-protocol spoken over the chat
// websocket: text frames with a command line, header lines, a blank line,
// a body and a NUL terminator.
package wire

import (
	"bytes"
	"fmt"
	"strings"
)

// Command identifies the frame kind.
type Command string

const (
	CmdConnect     Command = "CONNECT"
	CmdConnected   Command = "CONNECTED"
	CmdSubscribe   Command = "SUBSCRIBE"
	CmdUnsubscribe Command = "UNSUBSCRIBE"
	CmdSend        Command = "SEND"
	CmdMessage     Command = "MESSAGE"
	CmdError       Command = "ERROR"
	CmdDisconnect  Command = "DISCONNECT"
)

// Well-known header names.
const (
	HdrAuthorization = "Authorization"
	HdrDestination   = "destination"
	HdrSubscription  = "id"
	HdrContentType   = "content-type"
	HdrMessageID     = "message-id"
	HdrVersion       = "accept-version"
)

var knownCommands = map[Command]bool{
	CmdConnect:     true,
	CmdConnected:   true,
	CmdSubscribe:   true,
	CmdUnsubscribe: true,
	CmdSend:        true,
	CmdMessage:     true,
	CmdError:       true,
	CmdDisconnect:  true,
}

// Frame is one unit of the sub-protocol.
type Frame struct {
	Command Command
	Headers map[string]string
	Body    []byte
}

// NewFrame builds a frame with an initialized header map.
func NewFrame(cmd Command) Frame {
	return Frame{Command: cmd, Headers: map[string]string{}}
}

// Header returns the named header or "" when absent.
func (f Frame) Header(name string) string {
	if f.Headers == nil {
		return ""
	}
	return f.Headers[name]
}

// Encode serializes the frame. Header names and values must not contain
// newlines or colons; callers own that invariant since all headers here are
// protocol-controlled.
func (f Frame) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(string(f.Command))
	buf.WriteByte('\n')
	for name, value := range f.Headers {
		buf.WriteString(name)
		buf.WriteByte(':')
		buf.WriteString(value)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// Decode parses a single frame. It fails closed: unknown commands, missing
// separators and malformed header lines are errors, never partial frames.
func Decode(data []byte) (Frame, error) {
	data = bytes.TrimSuffix(data, []byte{0})
	head, body, found := bytes.Cut(data, []byte("\n\n"))
	if !found {
		return Frame{}, fmt.Errorf("wire: frame missing header/body separator")
	}
	lines := strings.Split(string(head), "\n")
	cmd := Command(strings.TrimSuffix(lines[0], "\r"))
	if !knownCommands[cmd] {
		return Frame{}, fmt.Errorf("wire: unknown command %q", lines[0])
	}
	frame := NewFrame(cmd)
	for _, line := range lines[1:] {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return Frame{}, fmt.Errorf("wire: malformed header line %q", line)
		}
		// First occurrence wins, matching STOMP semantics.
		if _, exists := frame.Headers[name]; !exists {
			frame.Headers[name] = value
		}
	}
	if len(body) > 0 {
		frame.Body = append([]byte(nil), body...)
	}
	return frame, nil
}
