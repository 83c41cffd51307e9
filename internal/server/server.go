package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
)

// idleConnectionTimeout is how long a socket may stay silent before the
// cleanup task closes it. Active clients ping well inside this window.
const idleConnectionTimeout = 10 * time.Minute

type Server struct {
	port               int
	pool               *pgxpool.Pool
	connectionManager  *ConnectionManager
	gameManager        *GameManager
	sessionManager     *SessionManager
	persistenceManager *PersistenceManager
	rateLimiter        *RateLimiter
	connectionHealth   *ConnectionHealth
}

func NewServer() (*Server, *http.Server) {
	port, _ := strconv.Atoi(os.Getenv("PORT"))
	if port == 0 {
		port = 8080
	}

	ctx := context.Background()

	// Initialize database
	pool, err := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}

	persistenceManager := NewPersistenceManager(pool)
	if err := persistenceManager.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Initialize game and session managers
	gameManager := NewGameManager()
	sessionManager := NewSessionManager()

	// Load persisted state from database
	if err := loadPersistedState(ctx, persistenceManager, gameManager, sessionManager); err != nil {
		log.Printf("Warning: Failed to load persisted state: %v", err)
		// Don't fatal - allow server to start with empty state
	}

	srv := &Server{
		port:               port,
		pool:               pool,
		connectionManager:  NewConnectionManager(),
		gameManager:        gameManager,
		sessionManager:     sessionManager,
		persistenceManager: persistenceManager,
		rateLimiter:        NewRateLimiter(10, time.Second),
		connectionHealth:   NewConnectionHealth(),
	}

	// Start background tasks
	go srv.periodicSaveTask()
	go srv.cleanupTask()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", srv.port),
		Handler:      srv.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return srv, httpServer
}

// Shutdown persists all games and sessions, then closes the pool.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error
	for _, game := range s.gameManager.ActiveGames() {
		if err := s.persistenceManager.SaveGame(ctx, game); err != nil {
			log.Printf("Shutdown save failed for game %s: %v", game.RoomCode, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	for _, session := range s.sessionManager.GetAllSessions() {
		if err := s.persistenceManager.SaveSession(ctx, session); err != nil {
			log.Printf("Shutdown save failed for session: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s.pool.Close()
	log.Println("Server state persisted, pool closed")
	return firstErr
}

// loadPersistedState restores games and sessions from the database
func loadPersistedState(ctx context.Context, pm *PersistenceManager, gm *GameManager, sm *SessionManager) error {
	// Load all active games
	games, err := pm.LoadAllActiveGames(ctx)
	if err != nil {
		return fmt.Errorf("failed to load games: %w", err)
	}

	for _, game := range games {
		gm.RestoreGame(game)
		log.Printf("Restored game: %s (status: %s)", game.RoomCode, game.Status)
	}

	// Load room codes
	usedCodes, err := pm.LoadUsedRoomCodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load room codes: %w", err)
	}

	gm.mu.Lock()
	for code, inUse := range usedCodes {
		if inUse {
			gm.usedCodes[code] = true
		}
	}
	gm.mu.Unlock()

	// Load all sessions
	sessions, err := pm.LoadAllSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	for _, session := range sessions {
		sm.StoreSession(session)
		// Safe token display (handle short/corrupted tokens)
		tokenDisplay := session.Token
		if len(tokenDisplay) > 8 {
			tokenDisplay = tokenDisplay[:8]
		}
		log.Printf("Restored session: %s -> %s (player %d)", tokenDisplay, session.RoomCode, session.PlayerID)
	}

	log.Printf("Loaded %d games, %d room codes, %d sessions", len(games), len(usedCodes), len(sessions))
	return nil
}

// periodicSaveTask persists all active games every 30 seconds, catching
// state changes that have no explicit save (disconnects, lobby changes).
func (s *Server) periodicSaveTask() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		// Hold the read lock during the whole save; releasing it earlier
		// lets handlers mutate a game while json.Marshal is reading it
		s.gameManager.mu.RLock()

		savedCount := 0
		for _, game := range s.gameManager.games {
			if err := s.persistenceManager.SaveGame(context.Background(), game); err != nil {
				log.Printf("Periodic save failed for game %s: %v", game.RoomCode, err)
			} else {
				savedCount++
			}
		}

		s.gameManager.mu.RUnlock()

		log.Printf("Periodic save completed: %d games persisted", savedCount)
	}
}

// cleanupTask deletes completed games older than 24 hours, once per hour.
// The delay gives players time to review final scores.
func (s *Server) cleanupTask() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		deleted, err := s.persistenceManager.CleanupOldGames(context.Background(), 24*time.Hour)
		if err != nil {
			log.Printf("Cleanup task failed: %v", err)
			continue
		}

		if deleted > 0 {
			log.Printf("Cleanup task: deleted %d old completed games", deleted)
		}

		s.rateLimiter.Cleanup()

		if swept := s.sweepIdleConnections(idleConnectionTimeout); swept > 0 {
			log.Printf("Cleanup task: closed %d idle connections", swept)
		}
	}
}

// sweepIdleConnections closes sockets that have been silent longer than
// timeout. Closing unblocks the connection's read loop, whose deferred
// cleanup removes the connection from the managers.
func (s *Server) sweepIdleConnections(timeout time.Duration) int {
	swept := 0
	for _, connID := range s.connectionHealth.GetInactiveConnections(timeout) {
		if conn := s.connectionManager.GetConnection(connID); conn != nil {
			conn.Close(websocket.StatusGoingAway, "Idle connection")
		}
		s.connectionHealth.RemoveConnection(connID)
		swept++
	}
	return swept
}
