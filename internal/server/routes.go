package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"telefunken-server/internal/telefunken"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("/", s.HelloWorldHandler)

	mux.HandleFunc("/health", s.healthHandler)

	mux.HandleFunc("/websocket", s.websocketHandler)

	// Wrap the mux with CORS middleware
	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*") // Replace "*" with specific origins if needed
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) HelloWorldHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"message": "Hello World"}
	jsonResp, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(jsonResp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]string{"status": "up"}
	if err := s.pool.Ping(r.Context()); err != nil {
		health["status"] = "down"
		health["error"] = err.Error()
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	resp, err := json.Marshal(health)
	if err != nil {
		http.Error(w, "Failed to marshal health check response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // TODO: make environment-specific
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	log.Printf("New connection: %s", connectionID)
	s.connectionManager.AddConnection(connectionID, socket)
	s.connectionHealth.UpdateActivity(connectionID)
	defer func() {
		token := s.connectionManager.GetTokenByConnection(connectionID)

		// Remove connection
		s.connectionManager.RemoveConnection(connectionID)
		s.rateLimiter.RemoveConnection(connectionID)
		s.connectionHealth.RemoveConnection(connectionID)
		log.Printf("Connection closed: %s", connectionID)

		// If player had a token, mark as disconnected
		if token != "" {
			gamePaused, game, playerID, err := s.gameManager.MarkPlayerDisconnected(token)
			if err != nil {
				// Happens when the player left via leave_game before disconnecting
				if err.Error() != "TOKEN_NOT_FOUND: Invalid session token" {
					log.Printf("Error marking player disconnected: %v", err)
				}
				return
			}

			log.Printf("Player %d (%s) disconnected from game %s",
				playerID, game.Players[playerID].Username, game.RoomCode)

			s.broadcastToLobby(game, "player_disconnected", PlayerStatusNotification{
				PlayerID:  playerID,
				Username:  game.Players[playerID].Username,
				Connected: false,
			})

			if gamePaused {
				s.broadcastToLobby(game, "game_paused", GamePausedNotification{
					Message: fmt.Sprintf("%s disconnected. Game paused.",
						game.Players[playerID].Username),
				})
			}
		}
	}()

	for {
		// Read from client
		msgType, data, err := socket.Read(ctx)

		if err != nil {
			log.Printf("Connection %s read error: %v", connectionID, err)
			return
		}

		if msgType != websocket.MessageText {
			log.Printf("Non-text input from %s", connectionID)
			continue
		}

		s.connectionHealth.UpdateActivity(connectionID)

		if !s.rateLimiter.Allow(connectionID) {
			log.Printf("Rate limited %s", connectionID)
			s.sendError(socket, ctx, "RATE_LIMITED: Too many messages, slow down")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Invalid JSON from %s: %v", connectionID, err)
			s.sendError(socket, ctx, "Invalid JSON")
			continue
		}

		log.Printf("Message Type '%s' from %s", msg.Type, connectionID)

		if err := ValidateMessageType(msg.Type); err != nil {
			log.Printf("Unknown message type '%s' from %s", msg.Type, connectionID)
			s.sendError(socket, ctx, err.Error())
			continue
		}

		// Route the message
		switch msg.Type {
		case "ping":
			s.handlePing(socket, ctx, connectionID, msg.Payload)

		case "create_game":
			s.handleCreateGame(socket, ctx, connectionID, msg.Payload)

		case "join_game":
			s.handleJoinGame(socket, ctx, connectionID, msg.Payload)

		case "reconnect":
			s.handleReconnect(socket, ctx, connectionID, msg.Payload)

		case "set_ready":
			s.handleSetReady(socket, ctx, connectionID, msg.Payload)

		case "update_player_order":
			s.handleUpdatePlayerOrder(socket, ctx, connectionID, msg.Payload)

		case "leave_game":
			s.handleLeaveGame(socket, ctx, connectionID, msg.Payload)

		case "execute_move":
			s.handleExecuteMove(socket, ctx, connectionID, msg.Payload)
		}
	}
}

func (s *Server) handlePing(socket *websocket.Conn, ctx context.Context, connectionID string, msg json.RawMessage) {
	log.Printf("Ping from %s", connectionID)

	// No payload to parse

	// Pong
	response := ServerMessage{
		Type:    "pong",
		Payload: struct{}{},
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send pong to %s: %v", connectionID, err)
	}
}

func (s *Server) sendMessage(socket *websocket.Conn, ctx context.Context, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	return socket.Write(ctx, websocket.MessageText, data)
}

func (s *Server) sendError(socket *websocket.Conn, ctx context.Context, msg string) {
	response := ServerMessage{
		Type: "error",
		Payload: ErrorMessage{
			Message: msg,
		},
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send error message: %v", err)
	}
}

func (s *Server) broadcastToLobby(game *ActiveGame, messageType string, payload interface{}) {
	for _, slot := range game.Players {
		if slot.Token == "" {
			continue // Empty slot
		}

		// Find connection for this token
		connID := s.connectionManager.GetConnectionByToken(slot.Token)
		if connID == "" {
			continue // Player not connected
		}

		conn := s.connectionManager.GetConnection(connID)
		if conn == nil {
			continue
		}

		msg := ServerMessage{
			Type:    messageType,
			Payload: payload,
		}
		// Use background context for broadcasts
		s.sendMessage(conn, context.Background(), msg)
	}
}

func (s *Server) handleCreateGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req CreateGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid create_game payload")
		return
	}

	game, token, err := s.gameManager.CreateGame(req.Username, req.RandomOrder)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	// Store session and token mapping
	s.sessionManager.StoreSession(SessionInfo{
		Token:    token,
		RoomCode: game.RoomCode,
		PlayerID: 0,
		Username: req.Username,
	})
	s.connectionManager.MapToken(token, connectionID)

	response := ServerMessage{
		Type: "game_created",
		Payload: CreateGameResponse{
			RoomCode: game.RoomCode,
			Token:    token,
			PlayerID: 0,
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send game_created: %v", err)
		return
	}

	// Creator should see the initial lobby state
	s.broadcastLobbyUpdate(game)
}

func (s *Server) handleJoinGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req JoinGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid join_game payload")
		return
	}

	game, token, slotID, err := s.gameManager.JoinGame(req.RoomCode, req.Username)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.sessionManager.StoreSession(SessionInfo{
		Token:    token,
		RoomCode: game.RoomCode,
		PlayerID: slotID,
		Username: req.Username,
	})
	s.connectionManager.MapToken(token, connectionID)

	response := ServerMessage{
		Type: "game_joined",
		Payload: JoinGameResponse{
			Success:  true,
			Token:    token,
			PlayerID: slotID,
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send game_joined: %v", err)
		return
	}

	// Broadcast lobby state to ALL players
	s.broadcastLobbyUpdate(game)
}

func (s *Server) handleReconnect(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req ReconnectRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid reconnect payload")
		return
	}

	// Validate session
	session, err := s.sessionManager.GetSession(req.Token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	// Has this token already connected?
	oldConnectionID := s.connectionManager.MapToken(req.Token, connectionID)

	if oldConnectionID != "" && oldConnectionID != connectionID {
		// Disconnect the old socket
		oldConn := s.connectionManager.GetConnection(oldConnectionID)
		if oldConn != nil {
			s.sendMessage(oldConn, context.Background(), ServerMessage{
				Type: "disconnected_elsewhere",
				Payload: struct {
					Message string `json:"message"`
				}{
					Message: "You connected on another device",
				},
			})
			oldConn.Close(websocket.StatusNormalClosure, "Connected from another device")
		}
		s.connectionManager.RemoveConnection(oldConnectionID)
	}

	// Reconnect in gameManager
	game, err := s.gameManager.ReconnectPlayer(req.Token, session.RoomCode, session.PlayerID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	response := ServerMessage{
		Type: "reconnected",
		Payload: ReconnectResponse{
			Success:  true,
			RoomCode: session.RoomCode,
			PlayerID: session.PlayerID,
			Message:  "Successfully reconnected",
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send reconnected response: %v", err)
	}

	// Broadcast to others
	s.broadcastToLobby(game, "player_reconnected", PlayerStatusNotification{
		PlayerID:  session.PlayerID,
		Username:  session.Username,
		Connected: true,
	})

	// If game resumed, broadcast that too
	if game.Status == StatusPlaying && game.Game != nil {
		s.broadcastToLobby(game, "game_resumed", struct {
			Message string `json:"message"`
		}{
			Message: "Game resumed!",
		})
	}

	// The reconnected player needs the current state
	if game.Status == StatusPlaying || game.Status == StatusPaused {
		if seat := game.Seat(session.PlayerID); seat >= 0 {
			state := s.buildGameStateMessage(game, seat)
			s.sendMessage(socket, ctx, ServerMessage{
				Type:    "game_state",
				Payload: state,
			})
		}
	} else if game.Status == StatusLobby {
		lobbyState := s.buildLobbyState(game, req.Token)
		s.sendMessage(socket, ctx, ServerMessage{
			Type:    "lobby_update",
			Payload: lobbyState,
		})
	}
}

func (s *Server) handleSetReady(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req SetReadyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid set_ready payload")
		return
	}

	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_GAME: No active game session")
		return
	}

	game, _, err := s.gameManager.GetGameByToken(token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	game, allReady, err := s.gameManager.SetReady(game.RoomCode, token, req.Ready)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.broadcastLobbyUpdate(game)

	// Everyone ready: deal the first hand
	if allReady {
		if err := s.gameManager.StartGame(game.RoomCode); err != nil {
			log.Printf("Failed to start game: %v", err)
			return
		}

		s.broadcastToLobby(game, "game_started", GameStartedNotification{
			Message: "Game is starting! Get ready to play.",
		})

		// The notification tells the UI the game began; the state shows the cards
		s.broadcastGameState(game)
	}
}

func (s *Server) handleUpdatePlayerOrder(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req UpdatePlayerOrderRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "Invalid update_player_order payload")
		return
	}

	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_GAME: No active game session")
		return
	}

	game, _, err := s.gameManager.GetGameByToken(token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	// Only the creator may rearrange seats; the manager checks that
	game, err = s.gameManager.UpdatePlayerOrder(game.RoomCode, token, req.PlayerOrder)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.broadcastLobbyUpdate(game)
}

func (s *Server) handleLeaveGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_GAME: No active game session")
		return
	}

	game, _, err := s.gameManager.GetGameByToken(token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	game, err = s.gameManager.LeaveGame(game.RoomCode, token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.sessionManager.RemoveSession(token)
	s.connectionManager.UnmapToken(token)

	s.broadcastLobbyUpdate(game)
}

// broadcastLobbyUpdate sends personalized lobby state to all players
func (s *Server) broadcastLobbyUpdate(game *ActiveGame) {
	for _, slot := range game.Players {
		if slot.Token == "" || !slot.Connected {
			continue
		}

		lobbyState := s.buildLobbyState(game, slot.Token)

		connID := s.connectionManager.GetConnectionByToken(slot.Token)
		if connID == "" {
			continue
		}

		conn := s.connectionManager.GetConnection(connID)
		if conn == nil {
			continue
		}

		msg := ServerMessage{
			Type:    "lobby_update",
			Payload: lobbyState,
		}

		// Use background context for broadcasts
		if err := s.sendMessage(conn, context.Background(), msg); err != nil {
			log.Printf("Failed to broadcast to %s: %v", slot.Username, err)
		}
	}
}

// buildLobbyState creates personalized lobby state for a specific player
func (s *Server) buildLobbyState(game *ActiveGame, forToken string) LobbyState {
	players := [MaxPlayers]LobbyPlayer{}
	playerCount := 0

	for i, slot := range game.Players {
		if slot.Username == "" {
			players[i] = LobbyPlayer{} // Empty slot
			continue
		}

		playerCount++
		players[i] = LobbyPlayer{
			Username:  slot.Username,
			Ready:     slot.Ready,
			Connected: slot.Connected,
			IsYou:     slot.Token == forToken,
		}
	}

	// All ready once every seated player is, and enough have joined
	allReady := playerCount >= MinPlayers
	for _, slot := range game.Players {
		if slot.Username != "" && !slot.Ready {
			allReady = false
			break
		}
	}

	return LobbyState{
		RoomCode:    game.RoomCode,
		Players:     players,
		PlayerCount: playerCount,
		RandomOrder: game.Config.RandomOrder,
		Status:      string(game.Status),
		AllReady:    allReady,
	}
}

// broadcastGameState sends each connected player their own view of the game.
func (s *Server) broadcastGameState(game *ActiveGame) {
	// Don't broadcast if game not started yet
	if game.Game == nil {
		log.Printf("Warning: Attempted to broadcast game state before game started")
		return
	}

	for i, slot := range game.Players {
		if slot.Token == "" {
			continue
		}

		if !slot.Connected {
			continue
		}

		seat := game.Seat(i)
		if seat < 0 {
			continue
		}

		state := s.buildGameStateMessage(game, seat)

		connID := s.connectionManager.GetConnectionByToken(slot.Token)
		if connID == "" {
			continue
		}

		conn := s.connectionManager.GetConnection(connID)
		if conn == nil {
			continue
		}

		msg := ServerMessage{
			Type:    "game_state",
			Payload: state,
		}

		if err := s.sendMessage(conn, context.Background(), msg); err != nil {
			log.Printf("Failed to broadcast game state to %s: %v", slot.Username, err)
		}
	}
}

// buildGameStateMessage creates personalized game state for one seat. The
// seat index belongs to the started game, not the lobby slot; callers
// translate with ActiveGame.Seat.
func (s *Server) buildGameStateMessage(game *ActiveGame, seat int) GameStateMessage {
	// Safety check: game must be started
	if game.Game == nil {
		return GameStateMessage{
			Status: string(game.Status),
		}
	}

	clientState := game.Game.GetClientState(seat)

	return GameStateMessage{
		State:      clientState,
		PlayerTurn: game.Game.PlayerTurn,
		Deal:       game.Game.Deal,
		Status:     string(game.Status),
	}
}

// handleExecuteMove processes game moves from players
func (s *Server) handleExecuteMove(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req MoveRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "INVALID_PAYLOAD: Invalid move request")
		return
	}

	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_GAME: No active game session")
		return
	}

	game, playerID, err := s.gameManager.GetGameByToken(token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	if game.Status != StatusPlaying {
		switch game.Status {
		case StatusLobby:
			s.sendError(socket, ctx, "GAME_NOT_STARTED: Game hasn't started yet")
		case StatusPaused:
			s.sendError(socket, ctx, "GAME_PAUSED: Game is paused due to disconnection")
		case StatusCompleted:
			s.sendError(socket, ctx, "GAME_COMPLETED: Game has ended")
		}
		return
	}

	// Seats are assigned at start from the configured order, which may not
	// match lobby slots
	seat := game.Seat(playerID)
	if seat < 0 {
		s.sendError(socket, ctx, "NOT_SEATED: Player is not seated in this game")
		return
	}

	// Capture the deal before the move so the end of a deal is detectable
	previousDeal := game.Game.Deal

	// The player id comes from the session, never from the payload
	move := telefunken.Move{
		PlayerId:      seat,
		Type:          telefunken.MoveType(req.Type),
		Melds:         req.Melds,
		Modifications: req.Modifications,
		Discard:       req.Discard,
	}

	response := game.Game.ExecuteMove(move)

	if !response.Success {
		s.sendMessage(socket, ctx, ServerMessage{
			Type: "move_result",
			Payload: MoveResultResponse{
				Success: false,
				Message: response.Message,
			},
		})
		return
	}

	// Move succeeded - update timestamp
	game.UpdatedAt = time.Now()

	dealEnded := game.Game.Deal != previousDeal

	if dealEnded {
		result := game.Game.DealResults[len(game.Game.DealResults)-1]
		s.broadcastToLobby(game, "deal_changed", DealChangedNotification{
			Deal:   previousDeal, // The deal that just ended
			Result: result,
		})

		if game.Game.State == telefunken.StateFinished {
			game.Status = StatusCompleted

			scores := make(map[int]int, len(game.Game.Players))
			for _, p := range game.Game.Players {
				scores[p.Id] = p.Score
			}

			s.broadcastToLobby(game, "game_ended", GameEndedNotification{
				Results: game.Game.DealResults,
				Scores:  scores,
			})

			log.Printf("Game %s completed after %d deals", game.RoomCode, telefunken.NumDeals)
		}
	}

	// All players need to see the updated state
	s.broadcastGameState(game)

	s.sendMessage(socket, ctx, ServerMessage{
		Type: "move_result",
		Payload: MoveResultResponse{
			Success: true,
		},
	})
}
