package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	room_code  TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	game_data  JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	token      TEXT PRIMARY KEY,
	room_code  TEXT NOT NULL REFERENCES games(room_code) ON DELETE CASCADE,
	player_id  INT NOT NULL,
	username   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS room_codes (
	code       TEXT PRIMARY KEY,
	in_use     BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

// PersistenceManager handles saving and loading game state to/from Postgres.
type PersistenceManager struct {
	pool *pgxpool.Pool
}

func NewPersistenceManager(pool *pgxpool.Pool) *PersistenceManager {
	return &PersistenceManager{
		pool: pool,
	}
}

// InitSchema creates the tables if they do not exist yet.
func (pm *PersistenceManager) InitSchema(ctx context.Context) error {
	if _, err := pm.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// SaveGame persists an ActiveGame, inserting or updating as needed.
func (pm *PersistenceManager) SaveGame(ctx context.Context, game *ActiveGame) error {
	gameData, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to serialize game: %w", err)
	}

	query := `
		INSERT INTO games (room_code, status, game_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (room_code) DO UPDATE
		SET status = EXCLUDED.status,
		    game_data = EXCLUDED.game_data,
		    updated_at = EXCLUDED.updated_at
	`

	_, err = pm.pool.Exec(
		ctx,
		query,
		game.RoomCode,
		string(game.Status),
		gameData,
		game.CreatedAt,
		game.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save game %s: %w", game.RoomCode, err)
	}

	return nil
}

// LoadGame retrieves an ActiveGame by room code.
func (pm *PersistenceManager) LoadGame(ctx context.Context, roomCode string) (*ActiveGame, error) {
	query := `SELECT game_data FROM games WHERE room_code = $1`

	var gameData []byte
	err := pm.pool.QueryRow(ctx, query, roomCode).Scan(&gameData)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("game not found: %s", roomCode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game %s: %w", roomCode, err)
	}

	var game ActiveGame
	if err := json.Unmarshal(gameData, &game); err != nil {
		return nil, fmt.Errorf("failed to deserialize game %s: %w", roomCode, err)
	}

	return &game, nil
}

// LoadAllActiveGames retrieves all games that are not completed.
// Used on server startup to restore in-memory state.
func (pm *PersistenceManager) LoadAllActiveGames(ctx context.Context) ([]*ActiveGame, error) {
	query := `
		SELECT game_data FROM games
		WHERE status != $1
		ORDER BY updated_at DESC
	`

	rows, err := pm.pool.Query(ctx, query, string(StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("failed to query active games: %w", err)
	}
	defer rows.Close()

	var games []*ActiveGame
	for rows.Next() {
		var gameData []byte
		if err := rows.Scan(&gameData); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}

		var game ActiveGame
		if err := json.Unmarshal(gameData, &game); err != nil {
			// Skip the broken row, restore the rest
			log.Printf("Warning: failed to deserialize game: %v", err)
			continue
		}

		games = append(games, &game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game rows: %w", err)
	}

	return games, nil
}

// DeleteGame removes a game. Sessions cascade via the foreign key; the room
// code is marked available for reuse.
func (pm *PersistenceManager) DeleteGame(ctx context.Context, roomCode string) error {
	query := `DELETE FROM games WHERE room_code = $1`

	result, err := pm.pool.Exec(ctx, query, roomCode)
	if err != nil {
		return fmt.Errorf("failed to delete game %s: %w", roomCode, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("game not found: %s", roomCode)
	}

	if err := pm.SaveRoomCode(ctx, roomCode, false); err != nil {
		// Log but don't fail - game is already deleted
		log.Printf("Warning: failed to mark room code %s as unused: %v", roomCode, err)
	}

	return nil
}

// SaveSession persists a player session.
func (pm *PersistenceManager) SaveSession(ctx context.Context, session SessionInfo) error {
	query := `
		INSERT INTO sessions (token, room_code, player_id, username, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO UPDATE
		SET room_code = EXCLUDED.room_code,
		    player_id = EXCLUDED.player_id,
		    username = EXCLUDED.username
	`

	_, err := pm.pool.Exec(
		ctx,
		query,
		session.Token,
		session.RoomCode,
		session.PlayerID,
		session.Username,
		time.Now(),
	)

	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.Token, err)
	}

	return nil
}

// LoadSession retrieves a session by token.
func (pm *PersistenceManager) LoadSession(ctx context.Context, token string) (*SessionInfo, error) {
	query := `SELECT token, room_code, player_id, username FROM sessions WHERE token = $1`

	var session SessionInfo
	err := pm.pool.QueryRow(ctx, query, token).Scan(
		&session.Token,
		&session.RoomCode,
		&session.PlayerID,
		&session.Username,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New("TOKEN_NOT_FOUND: Invalid session token")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", token, err)
	}

	return &session, nil
}

// LoadAllSessions retrieves all sessions.
// Used on server startup to restore SessionManager state.
func (pm *PersistenceManager) LoadAllSessions(ctx context.Context) ([]SessionInfo, error) {
	query := `SELECT token, room_code, player_id, username FROM sessions`

	rows, err := pm.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionInfo
	for rows.Next() {
		var session SessionInfo
		if err := rows.Scan(&session.Token, &session.RoomCode, &session.PlayerID, &session.Username); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return sessions, nil
}

// DeleteSession removes a session.
func (pm *PersistenceManager) DeleteSession(ctx context.Context, token string) error {
	query := `DELETE FROM sessions WHERE token = $1`

	_, err := pm.pool.Exec(ctx, query, token)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", token, err)
	}

	return nil
}

// SaveRoomCode marks a room code as in use or free.
func (pm *PersistenceManager) SaveRoomCode(ctx context.Context, code string, inUse bool) error {
	query := `
		INSERT INTO room_codes (code, in_use, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET in_use = EXCLUDED.in_use
	`

	_, err := pm.pool.Exec(ctx, query, code, inUse, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save room code %s: %w", code, err)
	}

	return nil
}

// LoadUsedRoomCodes retrieves all room codes and their in-use state.
// Used on server startup to restore GameManager state.
func (pm *PersistenceManager) LoadUsedRoomCodes(ctx context.Context) (map[string]bool, error) {
	query := `SELECT code, in_use FROM room_codes`

	rows, err := pm.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query room codes: %w", err)
	}
	defer rows.Close()

	usedCodes := make(map[string]bool)
	for rows.Next() {
		var code string
		var inUse bool
		if err := rows.Scan(&code, &inUse); err != nil {
			return nil, fmt.Errorf("failed to scan room code row: %w", err)
		}
		usedCodes[code] = inUse
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating room code rows: %w", err)
	}

	return usedCodes, nil
}

// CleanupOldGames deletes completed games older than the given duration and
// frees their room codes.
func (pm *PersistenceManager) CleanupOldGames(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	// Collect the room codes first so they can be freed afterwards
	selectQuery := `SELECT room_code FROM games WHERE status = $1 AND updated_at < $2`
	rows, err := pm.pool.Query(ctx, selectQuery, string(StatusCompleted), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to query old games: %w", err)
	}

	var roomCodes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan room code: %w", err)
		}
		roomCodes = append(roomCodes, code)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating old game rows: %w", err)
	}

	deleteQuery := `DELETE FROM games WHERE status = $1 AND updated_at < $2`
	result, err := pm.pool.Exec(ctx, deleteQuery, string(StatusCompleted), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old games: %w", err)
	}

	for _, code := range roomCodes {
		if err := pm.SaveRoomCode(ctx, code, false); err != nil {
			// Log but continue - don't fail cleanup because of room code updates
			log.Printf("Warning: failed to mark room code %s as unused: %v", code, err)
		}
	}

	return int(result.RowsAffected()), nil
}
