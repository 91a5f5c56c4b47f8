package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/playtrack/internal/auth"
	"github.com/hazyhaar/playtrack/internal/config"
	"github.com/hazyhaar/playtrack/internal/db"
	"github.com/hazyhaar/playtrack/internal/notify"
)

func newTestAPI(t *testing.T) (*API, *http.ServeMux) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.Auth.JWTSecret = "test-secret"
	hub := notify.NewHub(cfg.Stream.SubscriberBuffer)
	t.Cleanup(hub.Close)

	a := New(database, auth.New(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiryMin), hub, cfg)
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return a, mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func registerTestUser(t *testing.T, mux *http.ServeMux) string {
	t.Helper()

	w := doJSON(t, mux, "POST", "/auth/register", "", map[string]string{
		"username": "therapist1",
		"password": "long-enough-pw",
		"fullName": "Test Therapist",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding register response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("register returned empty token")
	}
	return resp.Token
}

func TestRegisterValidation(t *testing.T) {
	_, mux := newTestAPI(t)

	cases := []struct {
		name string
		body map[string]string
		want int
	}{
		{"missing password", map[string]string{"username": "someone"}, http.StatusBadRequest},
		{"short username", map[string]string{"username": "ab", "password": "long-enough-pw"}, http.StatusBadRequest},
		{"bad characters", map[string]string{"username": "bad name!", "password": "long-enough-pw"}, http.StatusBadRequest},
		{"short password", map[string]string{"username": "someone", "password": "short"}, http.StatusBadRequest},
		{"valid", map[string]string{"username": "someone", "password": "long-enough-pw"}, http.StatusCreated},
	}
	for _, tc := range cases {
		w := doJSON(t, mux, "POST", "/auth/register", "", tc.body)
		if w.Code != tc.want {
			t.Errorf("%s: expected %d, got %d: %s", tc.name, tc.want, w.Code, w.Body.String())
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	_, mux := newTestAPI(t)
	registerTestUser(t, mux)

	w := doJSON(t, mux, "POST", "/auth/register", "", map[string]string{
		"username": "therapist1",
		"password": "long-enough-pw",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate username, got %d", w.Code)
	}
}

func TestLogin(t *testing.T) {
	_, mux := newTestAPI(t)
	registerTestUser(t, mux)

	w := doJSON(t, mux, "POST", "/auth/login", "", map[string]string{
		"username": "therapist1",
		"password": "long-enough-pw",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, mux, "POST", "/auth/login", "", map[string]string{
		"username": "therapist1",
		"password": "wrong-password",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", w.Code)
	}

	w = doJSON(t, mux, "POST", "/auth/login", "", map[string]string{
		"username": "ghost",
		"password": "long-enough-pw",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown user, got %d", w.Code)
	}
}

func TestAuthGate(t *testing.T) {
	_, mux := newTestAPI(t)
	token := registerTestUser(t, mux)

	// No token at all.
	w := doJSON(t, mux, "GET", "/games", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	// Token present but invalid.
	w = doJSON(t, mux, "GET", "/games", "not-a-real-token", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for invalid token, got %d", w.Code)
	}

	// Valid token.
	w = doJSON(t, mux, "GET", "/games", token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", w.Code)
	}
}

func TestListGames(t *testing.T) {
	_, mux := newTestAPI(t)
	token := registerTestUser(t, mux)

	w := doJSON(t, mux, "GET", "/games", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var games []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&games); err != nil {
		t.Fatalf("decoding games: %v", err)
	}
	if len(games) == 0 {
		t.Error("expected seeded games in catalog")
	}
}

func TestScoreSubmissionAndRanking(t *testing.T) {
	_, mux := newTestAPI(t)
	token := registerTestUser(t, mux)

	for _, s := range []int{50, 90, 70} {
		w := doJSON(t, mux, "POST", "/score", token, map[string]any{
			"gameId": "g1", "sessionId": "", "score": s,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("submit score %d: expected 201, got %d: %s", s, w.Code, w.Body.String())
		}
	}

	w := doJSON(t, mux, "GET", "/topScores/g1", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("topScores: expected 200, got %d", w.Code)
	}
	var scores []struct {
		Score int64 `json:"score"`
	}
	if err := json.NewDecoder(w.Body).Decode(&scores); err != nil {
		t.Fatalf("decoding scores: %v", err)
	}
	want := []int64{90, 70, 50}
	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	for i, s := range scores {
		if s.Score != want[i] {
			t.Errorf("position %d: expected %d, got %d", i, want[i], s.Score)
		}
	}
}

func TestScoreValidation(t *testing.T) {
	_, mux := newTestAPI(t)
	token := registerTestUser(t, mux)

	// Fractional score is rejected, not coerced.
	w := doJSON(t, mux, "POST", "/score", token, map[string]any{"gameId": "g1", "score": 12.5})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for fractional score, got %d", w.Code)
	}

	// Non-numeric score.
	w = doJSON(t, mux, "POST", "/score", token, map[string]any{"gameId": "g1", "score": "high"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric score, got %d", w.Code)
	}

	// Missing game.
	w = doJSON(t, mux, "POST", "/score", token, map[string]any{"score": 10})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing gameId, got %d", w.Code)
	}

	// Negative scores are accepted.
	w = doJSON(t, mux, "POST", "/score", token, map[string]any{"gameId": "g1", "score": -5})
	if w.Code != http.StatusCreated {
		t.Errorf("expected 201 for negative score, got %d", w.Code)
	}
}

func TestTopScoresLimitValidation(t *testing.T) {
	_, mux := newTestAPI(t)
	token := registerTestUser(t, mux)

	w := doJSON(t, mux, "GET", "/topScores/g1?limit=abc", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric limit, got %d", w.Code)
	}
	w = doJSON(t, mux, "GET", "/topScores/g1?limit=0", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for zero limit, got %d", w.Code)
	}
}

func TestThresholdEndpoints(t *testing.T) {
	_, mux := newTestAPI(t)
	token := registerTestUser(t, mux)

	// Missing threshold is a 404, not a crash.
	w := doJSON(t, mux, "GET", "/threshold/g1", token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before set, got %d", w.Code)
	}

	w = doJSON(t, mux, "PUT", "/threshold", token, map[string]any{"gameId": "g1", "threshold": 0.5})
	if w.Code != http.StatusOK {
		t.Fatalf("set threshold: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, mux, "PUT", "/threshold", token, map[string]any{"gameId": "g1", "threshold": 0.8})
	if w.Code != http.StatusOK {
		t.Fatalf("overwrite threshold: expected 200, got %d", w.Code)
	}

	w = doJSON(t, mux, "GET", "/threshold/g1", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get threshold: expected 200, got %d", w.Code)
	}
	var value float64
	if err := json.NewDecoder(w.Body).Decode(&value); err != nil {
		t.Fatalf("decoding threshold value: %v", err)
	}
	if value != 0.8 {
		t.Errorf("expected bare value 0.8, got %v", value)
	}

	// Missing fields.
	w = doJSON(t, mux, "PUT", "/threshold", token, map[string]any{"threshold": 0.5})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing gameId, got %d", w.Code)
	}
	w = doJSON(t, mux, "PUT", "/threshold", token, map[string]any{"gameId": "g1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing threshold, got %d", w.Code)
	}
}

func TestSaveEMGAndSessionResult(t *testing.T) {
	_, mux := newTestAPI(t)
	token := registerTestUser(t, mux)

	// No records yet: explicit 404 instead of a fault.
	w := doJSON(t, mux, "GET", "/getGameSessionResult/sess-1", token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", w.Code)
	}

	w = doJSON(t, mux, "POST", "/saveEMGdetails", token, map[string]any{
		"gameId":        "g1",
		"sessionId":     "sess-1",
		"motorSpeeds":   []float64{1.0, 1.2},
		"motorAngles":   []float64{15, 30},
		"signalOutputs": []float64{0.4},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("saveEMGdetails: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Only one side present: still 404.
	w = doJSON(t, mux, "GET", "/getGameSessionResult/sess-1", token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with missing score side, got %d", w.Code)
	}

	w = doJSON(t, mux, "POST", "/score", token, map[string]any{
		"gameId": "g1", "sessionId": "sess-1", "score": 64,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit score: expected 201, got %d", w.Code)
	}

	w = doJSON(t, mux, "GET", "/getGameSessionResult/sess-1", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("session result: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result struct {
		GameID      string    `json:"game_id"`
		SessionID   string    `json:"session_id"`
		Score       int64     `json:"score"`
		MotorSpeeds []float64 `json:"motor_speeds"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decoding session result: %v", err)
	}
	if result.Score != 64 || result.GameID != "g1" || result.SessionID != "sess-1" {
		t.Errorf("unexpected session result: %+v", result)
	}
	if len(result.MotorSpeeds) != 2 {
		t.Errorf("telemetry missing from session result: %+v", result)
	}
}

func TestRecentEMG(t *testing.T) {
	_, mux := newTestAPI(t)
	token := registerTestUser(t, mux)

	for i := 0; i < 3; i++ {
		w := doJSON(t, mux, "POST", "/saveEMGdetails", token, map[string]any{"gameId": "g1"})
		if w.Code != http.StatusCreated {
			t.Fatalf("saveEMGdetails: expected 201, got %d", w.Code)
		}
	}

	w := doJSON(t, mux, "GET", "/EMGdetails", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("EMGdetails: expected 200, got %d", w.Code)
	}
	var records []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("decoding records: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}
}

func TestHealthz(t *testing.T) {
	_, mux := newTestAPI(t)

	w := doJSON(t, mux, "GET", "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
