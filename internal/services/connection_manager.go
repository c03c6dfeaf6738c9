package services

import (
	"log"
	"sync"

	"tribehub/internal/models"
)

// ConnectionManager manages all active WebSocket connections
type ConnectionManager struct {
	connections map[string]*models.UserConnection
	mutex       sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*models.UserConnection),
	}
}

// Add adds a new connection
func (cm *ConnectionManager) Add(conn *models.UserConnection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.connections[conn.ConnID] = conn
	log.Printf("✅ Connection added: %s (Total: %d)", conn.ConnID, len(cm.connections))
}

// Remove removes a connection
func (cm *ConnectionManager) Remove(connID string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	if conn, exists := cm.connections[connID]; exists {
		close(conn.WriteChan)
		close(conn.StopChan)
		delete(cm.connections, connID)
		log.Printf("❌ Connection removed: %s (Total: %d)", connID, len(cm.connections))
	}
}

// Get retrieves a connection by ID
func (cm *ConnectionManager) Get(connID string) (*models.UserConnection, bool) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	conn, exists := cm.connections[connID]
	return conn, exists
}

// Count returns the number of active connections
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}

// SendToUser delivers a message to every connection the user has open.
// Returns the number of connections reached.
func (cm *ConnectionManager) SendToUser(userID string, msg models.ServerMessage) int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	sent := 0
	for _, conn := range cm.connections {
		if conn.UserID != userID {
			continue
		}
		select {
		case conn.WriteChan <- msg:
			sent++
		default:
			// Slow consumer: drop rather than block the caller
			log.Printf("⚠️ Dropped message for slow connection %s", conn.ConnID)
		}
	}
	return sent
}

// SendToTenant delivers a message to every connection in a workspace,
// optionally skipping the user who triggered the event.
func (cm *ConnectionManager) SendToTenant(tenantID, skipUserID string, msg models.ServerMessage) int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	sent := 0
	for _, conn := range cm.connections {
		if conn.TenantID != tenantID || conn.UserID == skipUserID {
			continue
		}
		select {
		case conn.WriteChan <- msg:
			sent++
		default:
			log.Printf("⚠️ Dropped message for slow connection %s", conn.ConnID)
		}
	}
	return sent
}
