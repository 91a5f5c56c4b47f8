package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// GetThreshold returns the configured threshold for a game, or ErrNotFound
// when none has been set.
func (db *DB) GetThreshold(gameID string) (float64, error) {
	var value float64
	err := db.QueryRow(`SELECT value FROM thresholds WHERE game_id = ?`, gameID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("querying threshold: %w", err)
	}
	return value, nil
}

// SetThreshold writes the threshold for a game as a single atomic upsert.
// The PRIMARY KEY on game_id guarantees at most one row per game even under
// concurrent writers; there is no read-then-write window.
func (db *DB) SetThreshold(gameID string, value float64) error {
	_, err := db.Exec(`
		INSERT INTO thresholds (game_id, value, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(game_id) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`, gameID, value)
	if err != nil {
		return fmt.Errorf("upserting threshold: %w", err)
	}
	return nil
}
