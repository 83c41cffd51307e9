package server

import (
	"telefunken-server/internal/game"
	"telefunken-server/internal/telefunken"
)

// ============================================================================
// ERROR RESPONSES
// ============================================================================
// tygo:generate
type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ============================================================================
// CREATE GAME (create_game)
// ============================================================================
// tygo:generate
type CreateGameRequest struct {
	Username    string `json:"username"`
	RandomOrder bool   `json:"randomOrder"`
}

// tygo:generate
type CreateGameResponse struct {
	RoomCode string `json:"roomCode"`
	Token    string `json:"token"`
	PlayerID int    `json:"playerId"`
}

// ============================================================================
// JOIN GAME (join_game)
// ============================================================================
// tygo:generate
type JoinGameRequest struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

// tygo:generate
type JoinGameResponse struct {
	Success  bool   `json:"success"`
	Token    string `json:"token"`
	PlayerID int    `json:"playerId"`
	Message  string `json:"message,omitempty"`
}

// ============================================================================
// SET READY (set_ready)
// ============================================================================
// tygo:generate
type SetReadyRequest struct {
	Ready bool `json:"ready"`
}

// ============================================================================
// UPDATE PLAYER ORDER (update_player_order)
// ============================================================================
// tygo:generate
type UpdatePlayerOrderRequest struct {
	PlayerOrder [MaxPlayers]string `json:"playerOrder"`
}

// ============================================================================
// LEAVE GAME (leave_game)
// ============================================================================
// tygo:generate
type LeaveGameRequest struct {
	// No fields - token identifies player
}

// ============================================================================
// EXECUTE MOVE (execute_move)
// ============================================================================
// tygo:generate
type MoveRequest struct {
	Type          string                        `json:"type"`
	Melds         []telefunken.Meld             `json:"melds,omitempty"`
	Modifications []telefunken.MeldModification `json:"modifications,omitempty"`
	Discard       *game.Card                    `json:"discard,omitempty"`
}

// ============================================================================
// MOVE RESULT (move_result)
// ============================================================================
// tygo:generate
type MoveResultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ============================================================================
// RECONNECT (reconnect)
// ============================================================================
// tygo:generate
type ReconnectRequest struct {
	Token string `json:"token"`
}

// tygo:generate
type ReconnectResponse struct {
	Success  bool   `json:"success"`
	RoomCode string `json:"roomCode"`
	PlayerID int    `json:"playerId"`
	Message  string `json:"message,omitempty"`
}

// ============================================================================
// PLAYER STATUS (player_disconnected / player_reconnected broadcasts)
// ============================================================================
// tygo:generate
type PlayerStatusNotification struct {
	PlayerID  int    `json:"playerId"`
	Username  string `json:"username"`
	Connected bool   `json:"connected"`
}

// tygo:generate
type GamePausedNotification struct {
	Message string `json:"message"`
}

// ============================================================================
// GAME STATE (game_state broadcast)
// ============================================================================
// tygo:generate
type GameStateMessage struct {
	State      *telefunken.ClientState `json:"state,omitempty"`
	PlayerTurn int                     `json:"playerTurn"`
	Deal       int                     `json:"deal"`
	Status     string                  `json:"status"`
}

// ============================================================================
// LOBBY STATE (lobby_update broadcast)
// ============================================================================
// tygo:generate
type LobbyState struct {
	RoomCode    string                  `json:"roomCode"`
	Players     [MaxPlayers]LobbyPlayer `json:"players"`
	PlayerCount int                     `json:"playerCount"`
	RandomOrder bool                    `json:"randomOrder"`
	Status      string                  `json:"status"`
	AllReady    bool                    `json:"allReady"`
}

// tygo:generate
type LobbyPlayer struct {
	Username  string `json:"username"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
	IsYou     bool   `json:"isYou"` // Personalized for each client
}

// ============================================================================
// GAME STARTED (game_started broadcast)
// ============================================================================
// tygo:generate
type GameStartedNotification struct {
	Message string `json:"message"`
}

// ============================================================================
// DEAL CHANGED (deal_changed broadcast)
// ============================================================================
// tygo:generate
type DealChangedNotification struct {
	Deal   int                   `json:"deal"`
	Result telefunken.DealResult `json:"result"`
}

// ============================================================================
// GAME ENDED (game_ended broadcast)
// ============================================================================
// tygo:generate
type GameEndedNotification struct {
	Results []telefunken.DealResult `json:"results"`
	Scores  map[int]int             `json:"scores"`
}
