package chatlink

import "encoding/json"

// Frame type discriminants used on the wire.
const (
	FrameTypeMessage = "message"
	FrameTypePing    = "ping"
	FrameTypePong    = "pong"
)

// FrameKind classifies a decoded frame.
type FrameKind int

const (
	// KindUnknown marks frames with a missing or unrecognized discriminant.
	KindUnknown FrameKind = iota

	// KindControl marks keepalive frames (ping/pong), consumed by the client
	// and never surfaced to the caller.
	KindControl

	// KindData marks chat message frames forwarded via OnMessage.
	KindData
)

// Frame is the JSON envelope exchanged over the session. Only "message"
// frames carry the room/sender/content fields; the server fills them in
// before broadcasting.
type Frame struct {
	Type     string `json:"type"`
	RoomID   int    `json:"room_id,omitempty"`
	SenderID int    `json:"sender_id,omitempty"`
	Username string `json:"username,omitempty"`
	Content  string `json:"content,omitempty"`
	TS       int64  `json:"ts,omitempty"`
}

// ChatMessage is the caller-facing message event. The caller owns it after
// dispatch; the client keeps no history.
type ChatMessage struct {
	RoomID    int
	SenderID  int
	Username  string
	Content   string
	Timestamp int64
}

// DecodeFrame parses one inbound frame. A parse failure is a protocol error;
// the caller drops the frame without touching connection state.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, WrapError(ErrorProtocol, "malformed frame", err)
	}
	return f, nil
}

// Kind classifies the frame by its type discriminant.
func (f Frame) Kind() FrameKind {
	switch f.Type {
	case FrameTypeMessage:
		return KindData
	case FrameTypePing, FrameTypePong:
		return KindControl
	default:
		return KindUnknown
	}
}

// ChatMessage projects a "message" frame into the caller-facing event.
func (f Frame) ChatMessage() (ChatMessage, error) {
	if f.Type != FrameTypeMessage {
		return ChatMessage{}, NewError(ErrorProtocol, "not a message frame: "+f.Type)
	}
	if f.Username == "" {
		return ChatMessage{}, NewError(ErrorProtocol, "message frame without username")
	}
	return ChatMessage{
		RoomID:    f.RoomID,
		SenderID:  f.SenderID,
		Username:  f.Username,
		Content:   f.Content,
		Timestamp: f.TS,
	}, nil
}

// outboundContent is the minimal outgoing payload. Room, sender and timestamp
// are attached server-side.
type outboundContent struct {
	Content string `json:"content"`
}

// EncodeContent wraps outgoing user content for the wire.
func EncodeContent(content string) ([]byte, error) {
	data, err := json.Marshal(outboundContent{Content: content})
	if err != nil {
		return nil, WrapError(ErrorProtocol, "encode content", err)
	}
	return data, nil
}

// encodePong returns the canned keepalive reply.
func encodePong() []byte {
	data, _ := json.Marshal(Frame{Type: FrameTypePong})
	return data
}
