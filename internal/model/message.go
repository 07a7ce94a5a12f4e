package model

import "encoding/json"

// Inbound and outbound message types of the subscription channel.
const (
	MessagePing         = "ping"
	MessagePong         = "pong"
	MessageSubscribe    = "subscribe"
	MessageSubscribed   = "subscribed"
	MessageUnsubscribe  = "unsubscribe"
	MessageUnsubscribed = "unsubscribed"
	MessageRefresh      = "refresh"
	MessageError        = "error"
)

// ClientMessage is a frame sent by a dashboard client. Topics stays raw so a
// non-list payload can be answered with an error instead of failing decode.
type ClientMessage struct {
	Type   string          `json:"type"`
	Topics json.RawMessage `json:"topics,omitempty"`
}

// ServerMessage is a protocol reply. Snapshot frames are sent bare.
type ServerMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// TopicsReply acknowledges a subscribe or unsubscribe request.
type TopicsReply struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics"`
}
