package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EMGRecord is one telemetry capture from the device. The channel sequences
// are persisted as JSON array text.
type EMGRecord struct {
	ID            string    `json:"id"`
	GameID        string    `json:"game_id"`
	SessionID     *string   `json:"session_id,omitempty"`
	MotorSpeeds   []float64 `json:"motor_speeds"`
	MotorAngles   []float64 `json:"motor_angles"`
	SignalOutputs []float64 `json:"signal_outputs"`
	RecordedAt    time.Time `json:"recorded_at"`
}

type InsertEMGInput struct {
	GameID        string
	SessionID     string
	MotorSpeeds   []float64
	MotorAngles   []float64
	SignalOutputs []float64
}

// InsertEMG appends a telemetry record. EMG rows are immutable once written.
func (db *DB) InsertEMG(input InsertEMGInput) (*EMGRecord, error) {
	id := NewID()
	var sessionPtr *string
	if input.SessionID != "" {
		sessionPtr = &input.SessionID
	}
	speeds, err := marshalSeq(input.MotorSpeeds)
	if err != nil {
		return nil, err
	}
	angles, err := marshalSeq(input.MotorAngles)
	if err != nil {
		return nil, err
	}
	outputs, err := marshalSeq(input.SignalOutputs)
	if err != nil {
		return nil, err
	}

	recordedAt := time.Now().UTC()
	_, err = db.Exec(`
		INSERT INTO emg_records (id, game_id, session_id, motor_speeds, motor_angles, signal_outputs, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, input.GameID, sessionPtr, speeds, angles, outputs, recordedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting emg record: %w", err)
	}
	return &EMGRecord{
		ID:            id,
		GameID:        input.GameID,
		SessionID:     sessionPtr,
		MotorSpeeds:   input.MotorSpeeds,
		MotorAngles:   input.MotorAngles,
		SignalOutputs: input.SignalOutputs,
		RecordedAt:    recordedAt,
	}, nil
}

// GetEMGBySession returns the telemetry recorded for a session. Like score
// lookups, duplicates resolve to the earliest insert.
func (db *DB) GetEMGBySession(sessionID string) (*EMGRecord, error) {
	row := db.QueryRow(`
		SELECT id, game_id, session_id, motor_speeds, motor_angles, signal_outputs, recorded_at
		FROM emg_records WHERE session_id = ?
		ORDER BY rowid ASC LIMIT 1`, sessionID)
	rec, err := scanEMG(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// RecentEMG returns the latest telemetry records, newest first.
func (db *DB) RecentEMG(limit int) ([]*EMGRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, game_id, session_id, motor_speeds, motor_angles, signal_outputs, recorded_at
		FROM emg_records
		ORDER BY recorded_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying emg records: %w", err)
	}
	defer rows.Close()

	var records []*EMGRecord
	for rows.Next() {
		rec, err := scanEMG(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEMG(row rowScanner) (*EMGRecord, error) {
	rec := &EMGRecord{}
	var session sql.NullString
	var speeds, angles, outputs string
	err := row.Scan(&rec.ID, &rec.GameID, &session, &speeds, &angles, &outputs, &rec.RecordedAt)
	if err != nil {
		return nil, err
	}
	if session.Valid {
		rec.SessionID = &session.String
	}
	if err := json.Unmarshal([]byte(speeds), &rec.MotorSpeeds); err != nil {
		return nil, fmt.Errorf("decoding motor_speeds: %w", err)
	}
	if err := json.Unmarshal([]byte(angles), &rec.MotorAngles); err != nil {
		return nil, fmt.Errorf("decoding motor_angles: %w", err)
	}
	if err := json.Unmarshal([]byte(outputs), &rec.SignalOutputs); err != nil {
		return nil, fmt.Errorf("decoding signal_outputs: %w", err)
	}
	return rec, nil
}

func marshalSeq(seq []float64) (string, error) {
	if seq == nil {
		seq = []float64{}
	}
	b, err := json.Marshal(seq)
	if err != nil {
		return "", fmt.Errorf("encoding channel sequence: %w", err)
	}
	return string(b), nil
}
