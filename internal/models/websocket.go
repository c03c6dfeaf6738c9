package models

import (
	"time"

	"github.com/gofiber/contrib/websocket"
)

// ServerMessage is one outbound WebSocket frame
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// UserConnection is one live WebSocket connection, scoped to the tenant the
// client had selected when it connected.
type UserConnection struct {
	ConnID    string
	UserID    string
	TenantID  string
	Conn      *websocket.Conn
	WriteChan chan ServerMessage
	StopChan  chan bool
	CreatedAt time.Time
}
