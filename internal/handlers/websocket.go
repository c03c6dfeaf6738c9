package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"tribehub/internal/models"
	"tribehub/internal/services"
)

// WebSocketHandler pushes live notifications and board events to connected
// clients. The connection is read-mostly: clients send only pings and an
// optional tenant switch message.
type WebSocketHandler struct {
	connManager         *services.ConnectionManager
	notificationService *services.NotificationService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(connManager *services.ConnectionManager, notificationService *services.NotificationService) *WebSocketHandler {
	return &WebSocketHandler{
		connManager:         connManager,
		notificationService: notificationService,
	}
}

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
	wsPingInterval = 30 * time.Second
)

// Handle runs one WebSocket connection until the client goes away
func (h *WebSocketHandler) Handle(c *websocket.Conn) {
	userID, _ := c.Locals("user_id").(string)
	tenantID, _ := c.Locals("tenant_id").(string)
	if userID == "" {
		c.Close()
		return
	}

	conn := &models.UserConnection{
		ConnID:    uuid.New().String(),
		UserID:    userID,
		TenantID:  tenantID,
		Conn:      c,
		WriteChan: make(chan models.ServerMessage, 64),
		StopChan:  make(chan bool, 1),
		CreatedAt: time.Now(),
	}

	h.connManager.Add(conn)
	defer h.connManager.Remove(conn.ConnID)

	done := make(chan struct{})
	go h.writeLoop(conn, done)

	// Unread badge state pushed right after connect so the client does not
	// need a separate fetch
	if count, err := h.notificationService.UnreadCount(context.Background(), tenantID, userID); err == nil {
		conn.WriteChan <- models.ServerMessage{
			Type:    "unread_count",
			Payload: map[string]interface{}{"unread": count},
		}
	}

	conn.WriteChan <- models.ServerMessage{Type: "connected"}

	h.readLoop(conn)
	close(done)
}

// writeLoop serializes all frames for one connection and keeps it alive with
// periodic pings
func (h *WebSocketHandler) writeLoop(conn *models.UserConnection, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-conn.WriteChan:
			conn.Conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.Conn.WriteJSON(msg); err != nil {
				log.Printf("🔌 WebSocket write failed for %s: %v", conn.ConnID, err)
				return
			}
		case <-ticker.C:
			if err := conn.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case <-conn.StopChan:
			return
		case <-done:
			return
		}
	}
}

// readLoop consumes client frames until the connection drops
func (h *WebSocketHandler) readLoop(conn *models.UserConnection) {
	conn.Conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		var msg struct {
			Type     string `json:"type"`
			TenantID string `json:"tenant_id,omitempty"`
		}
		if err := conn.Conn.ReadJSON(&msg); err != nil {
			return
		}
		conn.Conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch msg.Type {
		case "ping":
			conn.WriteChan <- models.ServerMessage{Type: "pong"}
		case "switch_tenant":
			// Re-scope the connection; membership was already checked by the
			// REST layer before the client switched workspaces
			if msg.TenantID != "" {
				conn.TenantID = msg.TenantID
			}
		}
	}
}
