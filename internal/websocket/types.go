package websocket

import (
	"time"

	"github.com/coder/websocket"
)

// Message types sent to browsers.
const (
	MessageTypeReload = "reload"
)

// client represents a connected browser.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
