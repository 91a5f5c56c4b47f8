package db

import "time"

// SessionResult joins the score and EMG record sharing a session key. It is
// assembled on read and never stored.
type SessionResult struct {
	EMGID         string    `json:"emg_id"`
	ScoreID       string    `json:"score_id"`
	GameID        string    `json:"game_id"`
	SessionID     string    `json:"session_id"`
	Score         int64     `json:"score"`
	MotorSpeeds   []float64 `json:"motor_speeds"`
	MotorAngles   []float64 `json:"motor_angles"`
	SignalOutputs []float64 `json:"signal_outputs"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// GetSessionResult merges the score and telemetry for one game session.
// Returns ErrNotFound when either side is missing.
func (db *DB) GetSessionResult(sessionID string) (*SessionResult, error) {
	emg, err := db.GetEMGBySession(sessionID)
	if err != nil {
		return nil, err
	}
	score, err := db.GetScoreBySession(sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{
		EMGID:         emg.ID,
		ScoreID:       score.ID,
		GameID:        emg.GameID,
		SessionID:     sessionID,
		Score:         score.Score,
		MotorSpeeds:   emg.MotorSpeeds,
		MotorAngles:   emg.MotorAngles,
		SignalOutputs: emg.SignalOutputs,
		RecordedAt:    score.RecordedAt,
	}, nil
}
