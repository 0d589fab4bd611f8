package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/leadertalk/leadertalk/internal/domain"
)

// TurnRepository handles chat turn persistence. Turns are append-only and
// every operation scopes by the full (leader, session, user) triple so one
// user's history is never visible or deletable through another's request.
type TurnRepository struct {
	db *DB
}

// NewTurnRepository creates a new turn repository
func NewTurnRepository(db *DB) *TurnRepository {
	return &TurnRepository{db: db}
}

// Create persists a turn and returns its id
func (r *TurnRepository) Create(turn *domain.ChatTurn) (string, error) {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}

	_, err := r.db.Exec(`
		INSERT INTO chat_turns (id, user_id, leader_id, session_id, user_input, ai_response, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, turn.ID, turn.UserID, turn.LeaderID, turn.SessionID,
		turn.UserInput, turn.AIResponse, turn.Timestamp)
	if err != nil {
		return "", err
	}

	return turn.ID, nil
}

// List retrieves all turns for (leader, session, user) in chronological order
func (r *TurnRepository) List(leaderID, sessionID, userID string) ([]*domain.ChatTurn, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, leader_id, session_id, user_input, ai_response, timestamp
		FROM chat_turns
		WHERE leader_id = ? AND session_id = ? AND user_id = ?
		ORDER BY timestamp ASC
	`, leaderID, sessionID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*domain.ChatTurn
	for rows.Next() {
		turn := &domain.ChatTurn{}
		if err := rows.Scan(&turn.ID, &turn.UserID, &turn.LeaderID, &turn.SessionID,
			&turn.UserInput, &turn.AIResponse, &turn.Timestamp); err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}

	return turns, rows.Err()
}

// Clear deletes all turns for (leader, session, user) and returns the count
func (r *TurnRepository) Clear(leaderID, sessionID, userID string) (int, error) {
	result, err := r.db.Exec(`
		DELETE FROM chat_turns
		WHERE leader_id = ? AND session_id = ? AND user_id = ?
	`, leaderID, sessionID, userID)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
