// Package server defines the closed set of events exchanged with clients
// over the websocket transport.
package server

import "encoding/json"

// EventType discriminates the JSON envelope exchanged with clients.
type EventType string

// Inbound event types (client to server).
const (
	EventJoin         EventType = "join"
	EventSendMessage  EventType = "sendMessage"
	EventSendLocation EventType = "sendLocation"
)

// Outbound event types (server to clients).
const (
	EventMessage         EventType = "message"
	EventLocationMessage EventType = "locationMessage"
	EventRoomData        EventType = "roomData"
	EventAck             EventType = "ack"
)

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRequest asks to register the connection in a room.
type JoinRequest struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// SendMessageRequest carries a chat message from a joined connection.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// SendLocationRequest carries the sender's coordinates.
type SendLocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Ack acknowledges one inbound event back to its originating connection.
// Error and Result are mutually exclusive; both empty means plain success.
type Ack struct {
	Event  EventType `json:"event"`
	Error  string    `json:"error,omitempty"`
	Result string    `json:"result,omitempty"`
}

// encodeEvent wraps a payload in the wire envelope and marshals it.
func encodeEvent(eventType EventType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}
