// Package wire defines the JSON frame format spoken between the chat
// client and server over the websocket.
//
// Frames are independent: there are no sequence numbers and no correlation
// identifiers. The client pairs a response to its request with a local
// pending indicator, nothing on the wire.
package wire

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type identifies a frame's kind.
type Type string

const (
	// TypeMessage is the only client → server frame: a user utterance.
	TypeMessage Type = "message"

	// Server → client frames.
	TypeResponse Type = "response" // assistant reply, append to history
	TypeError    Type = "error"    // request failed, transient notice only
	TypeStatus   Type = "status"   // progress indicator, e.g. "planning..."
)

// Frame is the unit of exchange. Timestamp is RFC 3339 and stamped on
// every outgoing frame at construction time, both directions.
type Frame struct {
	Type      Type   `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Known reports whether t is one of the defined frame types.
func (t Type) Known() bool {
	switch t {
	case TypeMessage, TypeResponse, TypeError, TypeStatus:
		return true
	}
	return false
}

// stamp returns the current UTC time in RFC 3339.
func stamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// NewMessage builds a client → server user message frame.
func NewMessage(content string) Frame {
	return Frame{Type: TypeMessage, Content: content, Timestamp: stamp()}
}

// NewResponse builds a server → client assistant reply frame.
func NewResponse(content string) Frame {
	return Frame{Type: TypeResponse, Content: content, Timestamp: stamp()}
}

// NewError builds a server → client failure frame.
func NewError(content string) Frame {
	return Frame{Type: TypeError, Content: content, Timestamp: stamp()}
}

// NewStatus builds a server → client progress frame.
func NewStatus(content string) Frame {
	return Frame{Type: TypeStatus, Content: content, Timestamp: stamp()}
}

// Encode marshals the frame to JSON.
func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// Decode parses a frame from raw JSON. Malformed JSON is an error; a
// syntactically valid frame with an unknown type is not; dispatch on
// Type.Known() is the receiver's job, so an unrecognized type can be
// handled gracefully instead of torn down.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("malformed frame: %w", err)
	}
	return f, nil
}

// Empty reports whether the frame's content is empty or whitespace-only.
func (f Frame) Empty() bool {
	return strings.TrimSpace(f.Content) == ""
}
