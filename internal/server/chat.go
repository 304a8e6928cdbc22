// Package server assembles the registry, hub, and event router into one
// chat relay service.
package server

import (
	"log"
	"time"
)

// ChatServer owns the registry and wires it into the hub and event router.
// The registry handle is passed explicitly; there is no ambient global
// state beyond the process configuration.
type ChatServer struct {
	registry *Registry
	hub      *Hub
	router   *EventRouter
}

// NewChatServer builds a relay around the given profanity predicate.
func NewChatServer(filter ProfanityChecker) *ChatServer {
	registry := NewRegistry()
	hub := NewHub(registry)
	router := NewEventRouter(registry, hub, filter)

	return &ChatServer{
		registry: registry,
		hub:      hub,
		router:   router,
	}
}

// Start launches the hub loop. Call it before serving HTTP traffic.
func (s *ChatServer) Start() {
	go s.hub.Run()
	log.Println("Hub started and ready to manage WebSocket connections")
}

// Shutdown gracefully stops the hub and waits for connection goroutines.
func (s *ChatServer) Shutdown(timeout time.Duration) error {
	return s.hub.Shutdown(timeout)
}

// Registry exposes the connection registry, mainly for tests.
func (s *ChatServer) Registry() *Registry {
	return s.registry
}
