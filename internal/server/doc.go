// Package server implements the core of the chat relay: the connection
// registry, the event router, and the websocket hub.
//
// The implementation is organized into specialized files for configuration,
// registry, routing, hub management, clients, and HTTP handlers to keep the
// codebase maintainable and testable as the project grows.
package server
