// Package server exposes HTTP handlers, including websocket upgrades, the
// health check, and the built-in chat page.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler upgrades the HTTP connection, assigns the transport
// connection id, and hands the client to the hub, which launches the
// read/write pumps.
func (s *ChatServer) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(uuid.NewString(), conn, s.hub, s.router, r.RemoteAddr)
	s.hub.register <- client
}

// HealthHandler provides a simple health check endpoint that returns the
// server status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat relay is running!")
}

// ChatPageHandler serves a minimal HTML client for manual testing: join a
// room, exchange messages, share a location, and watch the member list.
func ChatPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Chat Relay</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; background-color: #f9f9f9; }
        #users { color: #555; margin: 10px 0; }
        input[type="text"] { padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
    </style>
</head>
<body>
    <h1>Chat Relay</h1>
    <div>
        <input type="text" id="username" placeholder="Username">
        <input type="text" id="room" placeholder="Room">
        <button onclick="join()">Join</button>
    </div>
    <div id="users"></div>
    <div id="messages"></div>
    <div>
        <input type="text" id="text" placeholder="Type a message...">
        <button onclick="sendMessage()">Send</button>
        <button onclick="sendLocation()">Share location</button>
    </div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');

        function addLine(html) {
            const div = document.createElement('div');
            div.innerHTML = html;
            messagesDiv.appendChild(div);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function connect() {
            ws = new WebSocket('ws://' + location.host + '/ws');
            ws.onopen = function() {
                send('join', {
                    username: document.getElementById('username').value,
                    room: document.getElementById('room').value
                });
            };
            ws.onmessage = function(event) {
                event.data.split('\n').forEach(handleFrame);
            };
            ws.onclose = function() {
                addLine('<em>Disconnected</em>');
                ws = null;
            };
        }

        function handleFrame(data) {
            const frame = JSON.parse(data);
            const p = frame.payload;
            if (frame.type === 'message') {
                addLine('<strong>' + p.username + ':</strong> ' + p.text);
            } else if (frame.type === 'locationMessage') {
                addLine('<strong>' + p.username + ':</strong> <a href="' + p.url + '" target="_blank">My location</a>');
            } else if (frame.type === 'roomData') {
                document.getElementById('users').textContent = p.room + ': ' + p.users.join(', ');
            } else if (frame.type === 'ack' && p.error) {
                addLine('<em>' + p.error + '</em>');
            }
        }

        function send(type, payload) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({type: type, payload: payload}));
            }
        }

        function join() {
            if (!ws) { connect(); }
        }

        function sendMessage() {
            const input = document.getElementById('text');
            send('sendMessage', {text: input.value});
            input.value = '';
        }

        function sendLocation() {
            navigator.geolocation.getCurrentPosition(function(pos) {
                send('sendLocation', {latitude: pos.coords.latitude, longitude: pos.coords.longitude});
            });
        }

        document.getElementById('text').addEventListener('keypress', function(e) {
            if (e.key === 'Enter') { sendMessage(); }
        });
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}
