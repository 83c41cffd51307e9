package server

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"telefunken-server/internal/telefunken"

	"github.com/google/uuid"
)

const (
	MinPlayers = 2
	MaxPlayers = 4
)

type GameManager struct {
	games     map[string]*ActiveGame
	usedCodes map[string]bool
	mu        sync.RWMutex
}

type ActiveGame struct {
	Game        *telefunken.Game
	RoomCode    string
	Config      LobbyConfig
	Status      GameStatus
	Players     [MaxPlayers]PlayerSlot
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LobbyExpiry time.Time
}

type LobbyConfig struct {
	PlayerOrder [MaxPlayers]string
	RandomOrder bool
}

type PlayerSlot struct {
	Username  string
	Token     string
	Connected bool
	Ready     bool
	JoinedAt  time.Time
}

type GameStatus string

const (
	StatusLobby     GameStatus = "lobby"
	StatusPlaying   GameStatus = "playing"
	StatusPaused    GameStatus = "paused"
	StatusCompleted GameStatus = "completed"
)

func NewGameManager() *GameManager {
	return &GameManager{
		games:     make(map[string]*ActiveGame),
		usedCodes: make(map[string]bool),
	}
}

func (gm *GameManager) CreateGame(username string, randomOrder bool) (*ActiveGame, string, error) {
	if err := gm.validateUsernameFormat(username); err != nil {
		return nil, "", err
	}

	// Generate a Room Code
	gm.mu.Lock()
	roomCode := GenerateRoomCode(gm.usedCodes)
	gm.usedCodes[roomCode] = true
	gm.mu.Unlock()

	// Get a token for the player
	token := uuid.New().String()

	now := time.Now()
	game := &ActiveGame{
		Game:     nil, // Initialize it later, after everyone joins.
		RoomCode: roomCode,
		Status:   StatusLobby,
		Config: LobbyConfig{
			PlayerOrder: [MaxPlayers]string{},
			RandomOrder: randomOrder,
		},
		Players:     [MaxPlayers]PlayerSlot{},
		CreatedAt:   now,
		UpdatedAt:   now,
		LobbyExpiry: now.Add(10 * time.Minute),
	}

	game.Players[0] = PlayerSlot{
		Username:  username,
		Token:     token,
		Connected: true,
		Ready:     false,
		JoinedAt:  now,
	}

	game.Config.PlayerOrder[0] = username

	gm.mu.Lock()
	gm.games[roomCode] = game
	gm.mu.Unlock()

	return game, token, nil
}

func (gm *GameManager) JoinGame(roomCode, username string) (*ActiveGame, string, int, error) {
	roomCode = strings.ToUpper(roomCode)
	if err := ValidateRoomCode(roomCode); err != nil {
		return nil, "", -1, err
	}

	gm.mu.RLock()
	game, exists := gm.games[roomCode]
	gm.mu.RUnlock()

	if !exists {
		return nil, "", -1, errors.New("ROOM_NOT_FOUND: Game not found")
	}

	if game.Status != StatusLobby {
		return nil, "", -1, errors.New("GAME_ALREADY_STARTED: Cannot join game in progress")
	}

	if err := gm.validateUsername(game, username, -1); err != nil {
		return nil, "", -1, err
	}

	slotId := -1
	for i, slot := range game.Players {
		if slot.Username == "" {
			slotId = i
			break
		}
	}

	if slotId == -1 {
		return nil, "", -1, errors.New("ROOM_FULL: Lobby is full")
	}

	token := uuid.New().String()

	now := time.Now()
	game.Players[slotId] = PlayerSlot{
		Username:  username,
		Token:     token,
		Connected: true,
		Ready:     false,
		JoinedAt:  now,
	}
	game.Config.PlayerOrder[slotId] = username
	game.UpdatedAt = now

	return game, token, slotId, nil
}

func (gm *GameManager) SetReady(roomCode, token string, ready bool) (*ActiveGame, bool, error) {
	gm.mu.RLock()
	game, exists := gm.games[roomCode]
	gm.mu.RUnlock()

	if !exists {
		return nil, false, errors.New("ROOM_NOT_FOUND: Game not found")
	}

	if game.Status != StatusLobby {
		return nil, false, errors.New("GAME_ALREADY_STARTED: Cannot change ready state after game starts")
	}

	slotID := -1
	for i, slot := range game.Players {
		if slot.Token == token {
			slotID = i
			break
		}
	}

	if slotID == -1 {
		return nil, false, errors.New("NOT_IN_GAME: Invalid token")
	}

	game.Players[slotID].Ready = ready
	game.UpdatedAt = time.Now()

	allReady := gm.checkAllReady(game)

	return game, allReady, nil
}

func (gm *GameManager) StartGame(roomCode string) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	game, exists := gm.games[roomCode]

	if !exists {
		return errors.New("ROOM_NOT_FOUND: Game not found")
	}

	if game.Status != StatusLobby {
		return errors.New("INVALID_STATUS: Game already started")
	}

	if !gm.checkAllReady(game) {
		return errors.New("NOT_ALL_READY: Cannot start game, not all players ready")
	}

	// Seat the players in the configured order, skipping empty slots
	playerNames := make([]string, 0, MaxPlayers)
	for _, name := range game.Config.PlayerOrder {
		if name != "" {
			playerNames = append(playerNames, name)
		}
	}

	if game.Config.RandomOrder {
		rand.Shuffle(len(playerNames), func(i, j int) {
			playerNames[i], playerNames[j] = playerNames[j], playerNames[i]
		})
	}

	telefunkenGame := telefunken.NewGame(roomCode, playerNames)
	telefunkenGame.Start()

	game.Game = &telefunkenGame
	game.Status = StatusPlaying
	game.UpdatedAt = time.Now()

	return nil
}

func (gm *GameManager) UpdatePlayerOrder(roomCode, creatorToken string, newOrder [MaxPlayers]string) (*ActiveGame, error) {
	gm.mu.RLock()
	game, exists := gm.games[roomCode]
	gm.mu.RUnlock()

	if !exists {
		return nil, errors.New("ROOM_NOT_FOUND: Game not found")
	}

	if game.Status != StatusLobby {
		return nil, errors.New("GAME_ALREADY_STARTED: Cannot change player order after game starts")
	}

	if game.Players[0].Token != creatorToken {
		return nil, errors.New("NOT_CREATOR: Only room creator can update player order")
	}

	if err := gm.validatePlayerOrder(game, newOrder); err != nil {
		return nil, err
	}

	game.Config.PlayerOrder = newOrder
	game.UpdatedAt = time.Now()

	return game, nil
}

func (gm *GameManager) LeaveGame(roomCode, token string) (*ActiveGame, error) {
	gm.mu.RLock()
	game, exists := gm.games[roomCode]
	gm.mu.RUnlock()

	if !exists {
		return nil, errors.New("ROOM_NOT_FOUND: Game not found")
	}

	if game.Status != StatusLobby {
		return nil, errors.New("GAME_STARTED: Use disconnect for active games")
	}

	// Find player
	slotID := -1
	for i, slot := range game.Players {
		if slot.Token == token {
			slotID = i
			break
		}
	}

	if slotID == -1 {
		return nil, errors.New("NOT_IN_GAME: Invalid token")
	}

	// Free the slot entirely so the name can be reused and the lobby can
	// still fill up and start
	game.Players[slotID] = PlayerSlot{}
	game.Config.PlayerOrder[slotID] = ""
	game.UpdatedAt = time.Now()

	if slotID == 0 {
		gm.promoteNewCreator(game)
	}

	return game, nil
}

func (gm *GameManager) GetGame(roomCode string) (*ActiveGame, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	game, exists := gm.games[roomCode]
	if !exists {
		return nil, errors.New("ROOM_NOT_FOUND: Game not found")
	}

	return game, nil
}

func (gm *GameManager) GetGameByToken(token string) (*ActiveGame, int, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	for _, game := range gm.games {
		for i, slot := range game.Players {
			if slot.Token == token {
				return game, i, nil
			}
		}
	}

	return nil, -1, errors.New("TOKEN_NOT_FOUND: Invalid session token")
}

// Seat maps a lobby slot to the player's in-game seat. Seating order can
// differ from slot order: StartGame compacts empty slots and may shuffle,
// so the seat is resolved by username. Returns -1 when the game has not
// started or the slot is empty.
func (g *ActiveGame) Seat(slotID int) int {
	if g.Game == nil || slotID < 0 || slotID >= MaxPlayers {
		return -1
	}
	username := g.Players[slotID].Username
	if username == "" {
		return -1
	}
	for _, p := range g.Game.Players {
		if p.Name == username {
			return p.Id
		}
	}
	return -1
}

func (gm *GameManager) ReconnectPlayer(token, roomCode string, playerID int) (*ActiveGame, error) {
	gm.mu.RLock()
	game, exists := gm.games[roomCode]
	gm.mu.RUnlock()

	if !exists {
		return nil, errors.New("ROOM_NOT_FOUND: Game not found")
	}

	if playerID < 0 || playerID >= MaxPlayers {
		return nil, errors.New("INVALID_PLAYER_ID: Player ID out of range")
	}

	slot := &game.Players[playerID]

	if slot.Token != token {
		return nil, errors.New("TOKEN_MISMATCH: Token does not match player slot")
	}

	if slot.Username == "" {
		return nil, errors.New("INVALID_SLOT: Slot is empty")
	}

	slot.Connected = true
	game.UpdatedAt = time.Now()

	// Resume once everyone is back
	if game.Status == StatusPaused {
		allConnected := true
		for _, s := range game.Players {
			if s.Username != "" && !s.Connected {
				allConnected = false
				break
			}
		}
		if allConnected {
			game.Status = StatusPlaying
		}
	}

	return game, nil
}

func (gm *GameManager) PauseGame(roomCode string) (didPause bool, err error) {
	gm.mu.RLock()
	game, exists := gm.games[roomCode]
	gm.mu.RUnlock()

	if !exists {
		return false, errors.New("ROOM_NOT_FOUND: Game not found")
	}

	if game.Status == StatusPlaying {
		game.Status = StatusPaused
		game.UpdatedAt = time.Now()
		return true, nil
	}
	return false, nil
}

func (gm *GameManager) MarkPlayerDisconnected(token string) (bool, *ActiveGame, int, error) {
	game, playerID, err := gm.GetGameByToken(token)
	if err != nil {
		return false, nil, -1, err
	}

	game.Players[playerID].Connected = false
	game.UpdatedAt = time.Now()

	gamePaused, err := gm.PauseGame(game.RoomCode)
	if err != nil {
		return false, nil, -1, err
	}

	return gamePaused, game, playerID, nil

}

// RemoveGame drops a finished or expired game and frees its room code.
func (gm *GameManager) RemoveGame(roomCode string) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	delete(gm.games, roomCode)
	delete(gm.usedCodes, roomCode)
}

// ActiveGames snapshots the current games for the persistence tasks.
func (gm *GameManager) ActiveGames() []*ActiveGame {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	games := make([]*ActiveGame, 0, len(gm.games))
	for _, g := range gm.games {
		games = append(games, g)
	}
	return games
}

// RestoreGame reinstates a persisted game, reserving its room code. All
// players start disconnected; the game stays paused until they return.
func (gm *GameManager) RestoreGame(game *ActiveGame) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for i := range game.Players {
		game.Players[i].Connected = false
	}
	if game.Status == StatusPlaying {
		game.Status = StatusPaused
	}

	gm.games[game.RoomCode] = game
	gm.usedCodes[game.RoomCode] = true
}

func (gm *GameManager) promoteNewCreator(game *ActiveGame) {
	// Find first connected player in the remaining slots
	newCreatorSlot := -1
	for i := 1; i < MaxPlayers; i++ {
		if game.Players[i].Username != "" && game.Players[i].Connected {
			newCreatorSlot = i
			break
		}
	}

	// If no one left, mark lobby for expiry
	if newCreatorSlot == -1 {
		game.LobbyExpiry = time.Now() // Expire immediately
		return
	}

	// Swap new creator into slot 0
	game.Players[0] = game.Players[newCreatorSlot]

	// Mark old slot as empty
	game.Players[newCreatorSlot] = PlayerSlot{}

	// Update PlayerOrder to reflect new arrangement
	game.Config.PlayerOrder[0] = game.Players[0].Username
	game.Config.PlayerOrder[newCreatorSlot] = ""

	// Unready the promoted player
	game.Players[0].Ready = false
}

func (gm *GameManager) checkAllReady(game *ActiveGame) bool {
	playerCount := 0
	readyCount := 0

	for _, slot := range game.Players {
		if slot.Username != "" {
			playerCount++
			if slot.Ready {
				readyCount++
			}
		}
	}

	return playerCount >= MinPlayers && readyCount == playerCount
}

func (gm *GameManager) validateUsernameFormat(username string) error {
	return ValidateUsername(strings.TrimSpace(username))
}

func (gm *GameManager) validateUsername(game *ActiveGame, username string, skipSlot int) error {
	err := gm.validateUsernameFormat(username)
	if err != nil {
		return err
	}

	for i, slot := range game.Players {
		if i == skipSlot {
			continue
		}
		if slot.Username == username {
			return errors.New("USERNAME_TAKEN: Username already taken")
		}
	}

	return nil
}

func (gm *GameManager) validatePlayerOrder(game *ActiveGame, order [MaxPlayers]string) error {
	// Build set of valid player names (including empty for unfilled slots)
	playerNames := make(map[string]bool)
	playerNames[""] = true // Allow empty strings for unfilled slots
	for _, slot := range game.Players {
		if slot.Username != "" {
			playerNames[slot.Username] = true
		}
	}

	// Check all names in order are valid
	for _, name := range order {
		if !playerNames[name] {
			return errors.New("INVALID_PLAYER: Invalid player name in player order")
		}
	}

	// A player cannot appear in multiple positions; empty slots can repeat
	seenNames := make(map[string]bool)
	for _, name := range order {
		if name != "" {
			if seenNames[name] {
				return errors.New("DUPLICATE_NAME: Player cannot appear in multiple positions")
			}
			seenNames[name] = true
		}
	}

	return nil
}
