// Package protocol defines the JSON messages exchanged over the shutdown
// relay websocket.
package protocol

import "encoding/json"

// Message types.
const (
	TypeConnected       = "connected"
	TypeQueryEndSession = "query_end_session"
	TypeAck             = "ack"
	TypePing            = "ping"
	TypePong            = "pong"
	TypeError           = "error"
)

// Request is a message from a relay sender to the monitor.
type Request struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is a message from the monitor to a relay sender.
type Response struct {
	ID      string      `json:"id,omitempty"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ConnectedPayload is sent by the monitor when a sender connects.
type ConnectedPayload struct {
	SenderID string `json:"sender_id"`
}

// QueryEndSessionPayload carries a forwarded end-session query.
type QueryEndSessionPayload struct {
	Sender string `json:"sender,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// AckPayload answers a query. Delivered is false when the query fell
// inside the quiet period of an earlier one and was dropped.
type AckPayload struct {
	Delivered bool `json:"delivered"`
}

// ErrorPayload for error responses.
type ErrorPayload struct {
	Error string `json:"error"`
}
