package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type User struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	FullName   string     `json:"full_name,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

type CreateUserInput struct {
	Username     string
	FullName     string
	PasswordHash string
}

func (db *DB) CreateUser(input CreateUserInput) (*User, error) {
	id := NewID()
	_, err := db.Exec(`
		INSERT INTO users (id, username, full_name, password_hash)
		VALUES (?, ?, ?, ?)`, id, input.Username, input.FullName, input.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return &User{
		ID:       id,
		Username: input.Username,
		FullName: input.FullName,
	}, nil
}

func (db *DB) GetUserByUsername(username string) (*User, string, error) {
	u := &User{}
	var lastSeen sql.NullTime
	var passwordHash string
	err := db.QueryRow(`
		SELECT id, username, full_name, password_hash, created_at, last_seen_at
		FROM users WHERE username = ?`, username).Scan(
		&u.ID, &u.Username, &u.FullName, &passwordHash, &u.CreatedAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if lastSeen.Valid {
		u.LastSeenAt = &lastSeen.Time
	}
	return u, passwordHash, nil
}

func (db *DB) GetUserByID(id string) (*User, error) {
	u := &User{}
	var lastSeen sql.NullTime
	err := db.QueryRow(`
		SELECT id, username, full_name, created_at, last_seen_at
		FROM users WHERE id = ?`, id).Scan(
		&u.ID, &u.Username, &u.FullName, &u.CreatedAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastSeen.Valid {
		u.LastSeenAt = &lastSeen.Time
	}
	return u, nil
}

// TouchLastSeen updates the user's last_seen_at timestamp.
func (db *DB) TouchLastSeen(userID string) error {
	_, err := db.Exec("UPDATE users SET last_seen_at = datetime('now') WHERE id = ?", userID)
	return err
}
