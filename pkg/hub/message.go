// Package hub fans one stream out to many websocket viewers. The video
// stream carries JPEG frames and the point-cloud stream carries JSON
// datasets; a viewer that cannot keep up is disconnected, never waited on.
package hub

import "github.com/gofiber/websocket/v2"

// MessageType is the websocket frame type a message is written as.
type MessageType int

const (
	JSONMessage   MessageType = iota // point-cloud datasets, status
	BinaryMessage                    // encoded video frames
)

// Message is one unit broadcast to every viewer of a hub.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps an encoded frame.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

func (m Message) wsType() int {
	if m.Type == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
