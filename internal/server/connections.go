package server

import (
	"sync"

	"github.com/coder/websocket"
)

type PlayerConnection struct {
	GameID   string
	PlayerID int
	Username string
	Token    string
}

type ConnectionManager struct {
	connections map[string]*websocket.Conn  // connectionID → socket
	players     map[string]PlayerConnection // connectionID → player info
	tokens      map[string]string           // token → connectionID
	mu          sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		players:     make(map[string]PlayerConnection),
		tokens:      make(map[string]string),
	}
}

func (cm *ConnectionManager) AddConnection(id string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
}

func (cm *ConnectionManager) RemoveConnection(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if player, exists := cm.players[id]; exists && player.Token != "" {
		if cm.tokens[player.Token] == id {
			delete(cm.tokens, player.Token)
		}
	}
	delete(cm.connections, id)
	delete(cm.players, id)
}

// MapToken stores token → connectionID mapping. If the token was bound to
// another connection (a reconnect on a fresh socket), the old binding is
// dropped and its connection id returned so the caller can close it.
func (cm *ConnectionManager) MapToken(token, connectionID string) (oldConnectionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if old, exists := cm.tokens[token]; exists && old != connectionID {
		oldConnectionID = old
		if player, ok := cm.players[old]; ok {
			player.Token = ""
			cm.players[old] = player
		}
	}
	cm.tokens[token] = connectionID

	if player, exists := cm.players[connectionID]; exists {
		player.Token = token
		cm.players[connectionID] = player
	} else {
		cm.players[connectionID] = PlayerConnection{
			Token: token,
		}
	}

	return oldConnectionID
}

// UnmapToken removes token mapping
func (cm *ConnectionManager) UnmapToken(token string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if connID, exists := cm.tokens[token]; exists {
		if player, ok := cm.players[connID]; ok {
			player.Token = ""
			cm.players[connID] = player
		}
		delete(cm.tokens, token)
	}
}

// GetTokenByConnection returns token for a connection
func (cm *ConnectionManager) GetTokenByConnection(connectionID string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if player, exists := cm.players[connectionID]; exists {
		return player.Token
	}
	return ""
}

// GetConnectionByToken returns connectionID for a token
func (cm *ConnectionManager) GetConnectionByToken(token string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return cm.tokens[token]
}

// GetConnection returns websocket for connectionID
func (cm *ConnectionManager) GetConnection(connectionID string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return cm.connections[connectionID]
}
