package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// GameRow is an archived (terminal) game. SessionJSON holds the full
// final state; the other columns exist for querying.
type GameRow struct {
	ID             string
	ConversationID string
	State          string
	WinnerID       string
	SessionJSON    string
	CreatedAt      time.Time
	CompletedAt    time.Time
}

// Store handles SQLite persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			state           TEXT NOT NULL,
			winner_id       TEXT NOT NULL DEFAULT '',
			session_json    TEXT NOT NULL,
			created_at      DATETIME NOT NULL,
			completed_at    DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_games_conversation
			ON games (conversation_id, completed_at DESC);
	`)
	return err
}

// SaveGame upserts an archived game.
func (s *Store) SaveGame(row GameRow) error {
	_, err := s.db.Exec(`
		INSERT INTO games (id, conversation_id, state, winner_id, session_json, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			winner_id = excluded.winner_id,
			session_json = excluded.session_json,
			completed_at = excluded.completed_at
	`, row.ID, row.ConversationID, row.State, row.WinnerID, row.SessionJSON, row.CreatedAt, row.CompletedAt)
	return err
}

// GetGame retrieves an archived game by id.
func (s *Store) GetGame(id string) (*GameRow, error) {
	row := s.db.QueryRow(`
		SELECT id, conversation_id, state, winner_id, session_json, created_at, completed_at
		FROM games WHERE id = ?
	`, id)
	var gr GameRow
	if err := row.Scan(&gr.ID, &gr.ConversationID, &gr.State, &gr.WinnerID, &gr.SessionJSON, &gr.CreatedAt, &gr.CompletedAt); err != nil {
		return nil, err
	}
	return &gr, nil
}

// ListGames returns a conversation's archived games, newest first.
// limit <= 0 means no limit.
func (s *Store) ListGames(conversationID string, limit int) ([]GameRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, conversation_id, state, winner_id, session_json, created_at, completed_at
		FROM games WHERE conversation_id = ?
		ORDER BY completed_at DESC LIMIT ?
	`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []GameRow
	for rows.Next() {
		var gr GameRow
		if err := rows.Scan(&gr.ID, &gr.ConversationID, &gr.State, &gr.WinnerID, &gr.SessionJSON, &gr.CreatedAt, &gr.CompletedAt); err != nil {
			return nil, err
		}
		result = append(result, gr)
	}
	return result, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
