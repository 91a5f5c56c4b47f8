package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Score struct {
	ID         string    `json:"id"`
	GameID     string    `json:"game_id"`
	SessionID  *string   `json:"session_id,omitempty"`
	Score      int64     `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
}

type InsertScoreInput struct {
	GameID    string
	SessionID string
	Score     int64
}

// InsertScore appends a score event. Score rows are immutable once written.
func (db *DB) InsertScore(input InsertScoreInput) (*Score, error) {
	id := NewID()
	var sessionPtr *string
	if input.SessionID != "" {
		sessionPtr = &input.SessionID
	}
	recordedAt := time.Now().UTC()
	_, err := db.Exec(`
		INSERT INTO scores (id, game_id, session_id, score, recorded_at)
		VALUES (?, ?, ?, ?, ?)`, id, input.GameID, sessionPtr, input.Score, recordedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting score: %w", err)
	}
	return &Score{
		ID:         id,
		GameID:     input.GameID,
		SessionID:  sessionPtr,
		Score:      input.Score,
		RecordedAt: recordedAt,
	}, nil
}

// TopScores returns up to n scores for a game, highest first. Ties are broken
// by insertion order (rowid), so the ranking is stable across reads.
func (db *DB) TopScores(gameID string, n int) ([]*Score, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := db.Query(`
		SELECT id, game_id, session_id, score, recorded_at
		FROM scores WHERE game_id = ?
		ORDER BY score DESC, rowid ASC
		LIMIT ?`, gameID, n)
	if err != nil {
		return nil, fmt.Errorf("querying top scores: %w", err)
	}
	defer rows.Close()

	var scores []*Score
	for rows.Next() {
		s := &Score{}
		var session sql.NullString
		if err := rows.Scan(&s.ID, &s.GameID, &session, &s.Score, &s.RecordedAt); err != nil {
			return nil, err
		}
		if session.Valid {
			s.SessionID = &session.String
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// GetScoreBySession returns the score recorded for a session. Session IDs are
// not enforced unique; under duplicates the earliest insert wins.
func (db *DB) GetScoreBySession(sessionID string) (*Score, error) {
	s := &Score{}
	var session sql.NullString
	err := db.QueryRow(`
		SELECT id, game_id, session_id, score, recorded_at
		FROM scores WHERE session_id = ?
		ORDER BY rowid ASC LIMIT 1`, sessionID).Scan(
		&s.ID, &s.GameID, &session, &s.Score, &s.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.Valid {
		s.SessionID = &session.String
	}
	return s, nil
}
