package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/fabian-grajko/chat-app/internal/moderation"
)

// chatTestServer runs a full relay behind an httptest server so tests can
// exercise the websocket flow end to end.
type chatTestServer struct {
	chat *ChatServer
	ts   *httptest.Server
}

func startChatTestServer(t *testing.T, bannedWords []string) *chatTestServer {
	t.Helper()

	filter, err := moderation.NewModerator(bannedWords)
	require.NoError(t, err)

	chat := NewChatServer(filter)
	chat.Start()

	ts := httptest.NewServer(chat.SetupRoutes())

	SetConfig(&Config{AllowedOrigins: []string{ts.URL}})
	t.Cleanup(func() {
		ts.Close()
		require.NoError(t, chat.Shutdown(2*time.Second))
		SetConfig(nil)
	})

	return &chatTestServer{chat: chat, ts: ts}
}

// dial opens a websocket connection with an allowed origin and wraps it in
// an event reader.
func (s *chatTestServer) dial(t *testing.T) *wsReader {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{s.ts.URL}}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &wsReader{conn: conn}
}

// wsReader reads outbound events frame by frame, unbatching messages the
// write pump coalesced into one frame.
type wsReader struct {
	conn  *websocket.Conn
	queue [][]byte
}

func (r *wsReader) sendEvent(t *testing.T, eventType EventType, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	frame, err := json.Marshal(Envelope{Type: eventType, Payload: raw})
	require.NoError(t, err)
	require.NoError(t, r.conn.WriteMessage(websocket.TextMessage, frame))
}

func (r *wsReader) next(t *testing.T) Envelope {
	t.Helper()
	if len(r.queue) == 0 {
		require.NoError(t, r.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, raw, err := r.conn.ReadMessage()
		require.NoError(t, err)
		r.queue = bytes.Split(raw, []byte{'\n'})
	}
	raw := r.queue[0]
	r.queue = r.queue[1:]

	var envelope Envelope
	require.NoError(t, json.Unmarshal(raw, &envelope))
	return envelope
}

func (r *wsReader) nextMessage(t *testing.T) Message {
	t.Helper()
	envelope := r.next(t)
	require.Equal(t, EventMessage, envelope.Type)
	var msg Message
	require.NoError(t, json.Unmarshal(envelope.Payload, &msg))
	return msg
}

func (r *wsReader) nextRoomData(t *testing.T) RoomData {
	t.Helper()
	envelope := r.next(t)
	require.Equal(t, EventRoomData, envelope.Type)
	var roomData RoomData
	require.NoError(t, json.Unmarshal(envelope.Payload, &roomData))
	return roomData
}

func (r *wsReader) nextAck(t *testing.T) Ack {
	t.Helper()
	envelope := r.next(t)
	require.Equal(t, EventAck, envelope.Type)
	var ack Ack
	require.NoError(t, json.Unmarshal(envelope.Payload, &ack))
	return ack
}

func (r *wsReader) expectNoEvent(t *testing.T, timeout time.Duration) {
	t.Helper()
	require.Empty(t, r.queue)
	require.NoError(t, r.conn.SetReadDeadline(time.Now().Add(timeout)))
	_, _, err := r.conn.ReadMessage()
	require.Error(t, err, "expected no event, but received one")
}

func (r *wsReader) join(t *testing.T, username, room string) {
	t.Helper()
	r.sendEvent(t, EventJoin, JoinRequest{Username: username, Room: room})

	welcome := r.nextMessage(t)
	require.Equal(t, "Welcome!", welcome.Text)
	r.nextRoomData(t)
	ack := r.nextAck(t)
	require.Empty(t, ack.Error)
}

func TestWebSocket_JoinDeliversWelcomeAndRoomData(t *testing.T) {
	srv := startChatTestServer(t, nil)

	alice := srv.dial(t)
	alice.sendEvent(t, EventJoin, JoinRequest{Username: "alice", Room: "general"})

	welcome := alice.nextMessage(t)
	require.Equal(t, SystemUsername, welcome.Username)
	require.Equal(t, "Welcome!", welcome.Text)

	roomData := alice.nextRoomData(t)
	require.Equal(t, "general", roomData.Room)
	require.Equal(t, []string{"alice"}, roomData.Users)

	ack := alice.nextAck(t)
	require.Equal(t, EventJoin, ack.Event)
	require.Empty(t, ack.Error)
}

func TestWebSocket_SecondJoinNotifiesExistingMembers(t *testing.T) {
	srv := startChatTestServer(t, nil)

	alice := srv.dial(t)
	alice.join(t, "alice", "general")

	bob := srv.dial(t)
	bob.join(t, "bob", "general")

	joined := alice.nextMessage(t)
	require.Equal(t, SystemUsername, joined.Username)
	require.Equal(t, "bob has joined!", joined.Text)

	roomData := alice.nextRoomData(t)
	require.ElementsMatch(t, []string{"alice", "bob"}, roomData.Users)
}

func TestWebSocket_DuplicateUsernameRejected(t *testing.T) {
	srv := startChatTestServer(t, nil)

	alice := srv.dial(t)
	alice.join(t, "alice", "general")

	impostor := srv.dial(t)
	impostor.sendEvent(t, EventJoin, JoinRequest{Username: "Alice", Room: "general"})

	ack := impostor.nextAck(t)
	require.Equal(t, EventJoin, ack.Event)
	require.Equal(t, "username is in use", ack.Error)

	// Same name in a different room is fine.
	elsewhere := srv.dial(t)
	elsewhere.join(t, "alice", "other-room")
}

func TestWebSocket_MessageReachesWholeRoomIncludingSender(t *testing.T) {
	srv := startChatTestServer(t, nil)

	alice := srv.dial(t)
	alice.join(t, "alice", "general")

	bob := srv.dial(t)
	bob.join(t, "bob", "general")
	alice.nextMessage(t)
	alice.nextRoomData(t)

	alice.sendEvent(t, EventSendMessage, SendMessageRequest{Text: "hi"})

	echoed := alice.nextMessage(t)
	require.Equal(t, "alice", echoed.Username)
	require.Equal(t, "hi", echoed.Text)

	ack := alice.nextAck(t)
	require.Equal(t, "Delivered!", ack.Result)

	received := bob.nextMessage(t)
	require.Equal(t, "alice", received.Username)
	require.Equal(t, "hi", received.Text)
}

func TestWebSocket_UnjoinedSenderGetsSystemNotice(t *testing.T) {
	srv := startChatTestServer(t, nil)

	stranger := srv.dial(t)
	stranger.sendEvent(t, EventSendMessage, SendMessageRequest{Text: "hi"})

	notice := stranger.nextMessage(t)
	require.Equal(t, SystemUsername, notice.Username)
	require.Equal(t, "Failed to connect to server. Try refreshing the page.", notice.Text)
	stranger.expectNoEvent(t, 200*time.Millisecond)
}

func TestWebSocket_ProfaneMessageIsDropped(t *testing.T) {
	srv := startChatTestServer(t, []string{"badword"})

	alice := srv.dial(t)
	alice.join(t, "alice", "general")

	bob := srv.dial(t)
	bob.join(t, "bob", "general")
	alice.nextMessage(t)
	alice.nextRoomData(t)

	alice.sendEvent(t, EventSendMessage, SendMessageRequest{Text: "badword"})

	ack := alice.nextAck(t)
	require.Equal(t, EventSendMessage, ack.Event)
	require.Equal(t, "Profanity is not allowed", ack.Error)

	bob.expectNoEvent(t, 200*time.Millisecond)
}

func TestWebSocket_LocationShareBroadcastsURL(t *testing.T) {
	srv := startChatTestServer(t, nil)

	alice := srv.dial(t)
	alice.join(t, "alice", "general")

	alice.sendEvent(t, EventSendLocation, SendLocationRequest{Latitude: 48.85, Longitude: 2.35})

	envelope := alice.next(t)
	require.Equal(t, EventLocationMessage, envelope.Type)
	var location LocationMessage
	require.NoError(t, json.Unmarshal(envelope.Payload, &location))
	require.Equal(t, "alice", location.Username)
	require.Equal(t, "https://google.com/maps?q=48.85,2.35", location.URL)

	ack := alice.nextAck(t)
	require.Equal(t, EventSendLocation, ack.Event)
	require.Empty(t, ack.Error)
}

func TestWebSocket_DisconnectNotifiesRemainingMembers(t *testing.T) {
	srv := startChatTestServer(t, nil)

	alice := srv.dial(t)
	alice.join(t, "alice", "general")

	bob := srv.dial(t)
	bob.join(t, "bob", "general")
	alice.nextMessage(t)
	alice.nextRoomData(t)

	require.NoError(t, bob.conn.Close())

	left := alice.nextMessage(t)
	require.Equal(t, SystemUsername, left.Username)
	require.Equal(t, "bob has left!", left.Text)

	roomData := alice.nextRoomData(t)
	require.Equal(t, []string{"alice"}, roomData.Users)
}

func TestWebSocket_DisconnectBeforeJoinIsSilent(t *testing.T) {
	srv := startChatTestServer(t, nil)

	alice := srv.dial(t)
	alice.join(t, "alice", "general")

	lurker := srv.dial(t)
	require.NoError(t, lurker.conn.Close())

	alice.expectNoEvent(t, 200*time.Millisecond)
}

func TestHTTP_HealthEndpoint(t *testing.T) {
	srv := startChatTestServer(t, nil)

	resp, err := http.Get(srv.ts.URL + "/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
}

func TestHTTP_WebSocketEndpointRejectsPost(t *testing.T) {
	srv := startChatTestServer(t, nil)

	resp, err := http.Post(srv.ts.URL+"/ws", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
