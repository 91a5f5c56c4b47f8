package db

import (
	"errors"
	"testing"
)

func TestGetSessionResult(t *testing.T) {
	database := openTestDB(t)

	if _, err := database.InsertScore(InsertScoreInput{GameID: "g1", SessionID: "sess-1", Score: 88}); err != nil {
		t.Fatalf("InsertScore: %v", err)
	}
	if _, err := database.InsertEMG(InsertEMGInput{
		GameID:      "g1",
		SessionID:   "sess-1",
		MotorSpeeds: []float64{3.1},
	}); err != nil {
		t.Fatalf("InsertEMG: %v", err)
	}

	result, err := database.GetSessionResult("sess-1")
	if err != nil {
		t.Fatalf("GetSessionResult: %v", err)
	}
	if result.Score != 88 {
		t.Errorf("expected score 88, got %d", result.Score)
	}
	if result.GameID != "g1" || result.SessionID != "sess-1" {
		t.Errorf("identity fields wrong: %+v", result)
	}
	if len(result.MotorSpeeds) != 1 || result.MotorSpeeds[0] != 3.1 {
		t.Errorf("telemetry not merged: %v", result.MotorSpeeds)
	}
}

func TestGetSessionResultMissingEither(t *testing.T) {
	database := openTestDB(t)

	// Nothing recorded at all.
	if _, err := database.GetSessionResult("none"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown session, got %v", err)
	}

	// Score only, no telemetry.
	if _, err := database.InsertScore(InsertScoreInput{GameID: "g1", SessionID: "score-only", Score: 10}); err != nil {
		t.Fatalf("InsertScore: %v", err)
	}
	if _, err := database.GetSessionResult("score-only"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound with missing telemetry, got %v", err)
	}

	// Telemetry only, no score.
	if _, err := database.InsertEMG(InsertEMGInput{GameID: "g1", SessionID: "emg-only"}); err != nil {
		t.Fatalf("InsertEMG: %v", err)
	}
	if _, err := database.GetSessionResult("emg-only"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound with missing score, got %v", err)
	}
}
