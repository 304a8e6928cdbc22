// Package server routes inbound connection events through the registry and
// emits the resulting messages via the transport's notifier capabilities.
package server

import (
	"encoding/json"
	"log"
)

// RoomNotifier is the transport capability the router depends on. The hub
// implements it; tests substitute a recorder.
type RoomNotifier interface {
	// SendTo delivers a payload to a single connection.
	SendTo(connectionID string, payload []byte)
	// BroadcastToRoom delivers a payload to every connection in the room.
	BroadcastToRoom(room string, payload []byte)
	// BroadcastToRoomExcept delivers a payload to every connection in the
	// room except the named one.
	BroadcastToRoomExcept(room, exceptID string, payload []byte)
}

// ProfanityChecker is the opaque content predicate applied to outgoing
// chat messages.
type ProfanityChecker interface {
	IsProfane(text string) bool
}

// EventRouter validates inbound events against the registry, mutates it on
// join and disconnect, and fans the resulting messages out to the right
// connections. Every failure is terminal at the handler boundary: it is
// reported to the originating connection and never reaches anyone else.
type EventRouter struct {
	registry *Registry
	notifier RoomNotifier
	filter   ProfanityChecker
}

// NewEventRouter wires a router to its registry, transport, and content
// filter.
func NewEventRouter(registry *Registry, notifier RoomNotifier, filter ProfanityChecker) *EventRouter {
	return &EventRouter{registry: registry, notifier: notifier, filter: filter}
}

// Dispatch decodes one inbound frame from a connection and invokes the
// matching handler. Events for a single connection arrive here in order,
// so its own join/message/disconnect sequence is never reordered.
func (rt *EventRouter) Dispatch(connectionID string, raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		log.Printf("Invalid frame from %s: %v", connectionID, err)
		rt.ackError(connectionID, envelope.Type, "invalid payload")
		return
	}

	switch envelope.Type {
	case EventJoin:
		var req JoinRequest
		if err := json.Unmarshal(envelope.Payload, &req); err != nil {
			rt.ackError(connectionID, EventJoin, "invalid payload")
			return
		}
		rt.handleJoin(connectionID, req)

	case EventSendMessage:
		var req SendMessageRequest
		if err := json.Unmarshal(envelope.Payload, &req); err != nil {
			rt.ackError(connectionID, EventSendMessage, "invalid payload")
			return
		}
		rt.handleSendMessage(connectionID, req)

	case EventSendLocation:
		var req SendLocationRequest
		if err := json.Unmarshal(envelope.Payload, &req); err != nil {
			rt.ackError(connectionID, EventSendLocation, "invalid payload")
			return
		}
		rt.handleSendLocation(connectionID, req)

	default:
		log.Printf("Unknown event %q from %s", envelope.Type, connectionID)
		rt.ackError(connectionID, envelope.Type, "unknown event")
	}
}

func (rt *EventRouter) handleJoin(connectionID string, req JoinRequest) {
	// A connection registers at most once; a second join is rejected
	// rather than overwriting the existing user.
	if _, ok := rt.registry.GetUser(connectionID); ok {
		rt.ackError(connectionID, EventJoin, "already joined a room")
		return
	}

	user, err := rt.registry.AddUser(connectionID, req.Username, req.Room)
	if err != nil {
		rt.ackError(connectionID, EventJoin, err.Error())
		return
	}

	rt.sendTo(connectionID, EventMessage, NewMessage(SystemUsername, "Welcome!"))
	rt.broadcastExcept(user.Room, connectionID, EventMessage,
		NewMessage(SystemUsername, user.Username+" has joined!"))
	rt.broadcast(user.Room, EventRoomData, RoomData{
		Room:  user.Room,
		Users: rt.registry.GetUsersInRoom(user.Room),
	})
	rt.sendTo(connectionID, EventAck, Ack{Event: EventJoin})
}

func (rt *EventRouter) handleSendMessage(connectionID string, req SendMessageRequest) {
	user, ok := rt.registry.GetUser(connectionID)
	if !ok {
		rt.notifyNotJoined(connectionID)
		return
	}

	if rt.filter.IsProfane(req.Text) {
		rt.ackError(connectionID, EventSendMessage, "Profanity is not allowed")
		return
	}

	rt.broadcast(user.Room, EventMessage, NewMessage(user.Username, req.Text))
	rt.sendTo(connectionID, EventAck, Ack{Event: EventSendMessage, Result: "Delivered!"})
}

func (rt *EventRouter) handleSendLocation(connectionID string, req SendLocationRequest) {
	user, ok := rt.registry.GetUser(connectionID)
	if !ok {
		rt.notifyNotJoined(connectionID)
		return
	}

	rt.broadcast(user.Room, EventLocationMessage,
		NewLocationMessage(user.Username, req.Latitude, req.Longitude))
	rt.sendTo(connectionID, EventAck, Ack{Event: EventSendLocation})
}

// HandleDisconnect removes the connection's user, if any, and notifies the
// room it left. Disconnect before join is a silent no-op.
func (rt *EventRouter) HandleDisconnect(connectionID string) {
	user, ok := rt.registry.RemoveUser(connectionID)
	if !ok {
		return
	}

	rt.broadcast(user.Room, EventMessage,
		NewMessage(SystemUsername, user.Username+" has left!"))
	rt.broadcast(user.Room, EventRoomData, RoomData{
		Room:  user.Room,
		Users: rt.registry.GetUsersInRoom(user.Room),
	})
}

func (rt *EventRouter) notifyNotJoined(connectionID string) {
	rt.sendTo(connectionID, EventMessage,
		NewMessage(SystemUsername, "Failed to connect to server. Try refreshing the page."))
}

func (rt *EventRouter) ackError(connectionID string, event EventType, reason string) {
	rt.sendTo(connectionID, EventAck, Ack{Event: event, Error: reason})
}

func (rt *EventRouter) sendTo(connectionID string, eventType EventType, payload any) {
	raw, err := encodeEvent(eventType, payload)
	if err != nil {
		log.Printf("Error encoding %s event for %s: %v", eventType, connectionID, err)
		return
	}
	rt.notifier.SendTo(connectionID, raw)
}

func (rt *EventRouter) broadcast(room string, eventType EventType, payload any) {
	raw, err := encodeEvent(eventType, payload)
	if err != nil {
		log.Printf("Error encoding %s broadcast for room %q: %v", eventType, room, err)
		return
	}
	rt.notifier.BroadcastToRoom(room, raw)
}

func (rt *EventRouter) broadcastExcept(room, exceptID string, eventType EventType, payload any) {
	raw, err := encodeEvent(eventType, payload)
	if err != nil {
		log.Printf("Error encoding %s broadcast for room %q: %v", eventType, room, err)
		return
	}
	rt.notifier.BroadcastToRoomExcept(room, exceptID, raw)
}
