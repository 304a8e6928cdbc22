package server

import (
	"fmt"
	"time"
)

// SystemUsername is the sender name on all server-generated messages.
const SystemUsername = "System"

// Message is a transient chat message. It is constructed at emit time and
// never persisted.
type Message struct {
	Username  string `json:"username"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// LocationMessage carries a shared location as a maps URL.
type LocationMessage struct {
	Username  string `json:"username"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"createdAt"`
}

// RoomData is the membership snapshot broadcast to a room after every
// join and leave.
type RoomData struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// NewMessage builds a chat message stamped with the current time in Unix
// milliseconds.
func NewMessage(username, text string) Message {
	return Message{
		Username:  username,
		Text:      text,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// NewLocationMessage builds a location message pointing at a maps URL for
// the given coordinates.
func NewLocationMessage(username string, latitude, longitude float64) LocationMessage {
	return LocationMessage{
		Username:  username,
		URL:       fmt.Sprintf("https://google.com/maps?q=%v,%v", latitude, longitude),
		CreatedAt: time.Now().UnixMilli(),
	}
}
