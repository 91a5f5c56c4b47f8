package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Game struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (db *DB) ListGames() ([]*Game, error) {
	rows, err := db.Query(`
		SELECT id, name, description, created_at
		FROM games ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing games: %w", err)
	}
	defer rows.Close()

	var games []*Game
	for rows.Next() {
		g := &Game{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (db *DB) GetGame(id string) (*Game, error) {
	g := &Game{}
	err := db.QueryRow(`
		SELECT id, name, description, created_at
		FROM games WHERE id = ?`, id).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (db *DB) CreateGame(name, description string) (*Game, error) {
	id := NewID()
	_, err := db.Exec(`
		INSERT INTO games (id, name, description)
		VALUES (?, ?, ?)`, id, name, description)
	if err != nil {
		return nil, fmt.Errorf("creating game: %w", err)
	}
	return &Game{ID: id, Name: name, Description: description}, nil
}
