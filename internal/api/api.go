// Core API struct and HTTP handlers: auth, game catalog, scores, thresholds,
// EMG telemetry, session results.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/playtrack/internal/auth"
	"github.com/hazyhaar/playtrack/internal/config"
	"github.com/hazyhaar/playtrack/internal/db"
	"github.com/hazyhaar/playtrack/internal/notify"
)

// usernameRe validates username format: ASCII alphanumeric, underscore, hyphen only.
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// maxBodySize is the maximum HTTP body size for write endpoints. EMG captures
// are the largest payloads and stay well under this.
const maxBodySize = 512 * 1024 // 512KB

type API struct {
	db        *db.DB
	metricsDB *db.MetricsDB
	auth      *auth.Auth
	hub       *notify.Hub
	stream    config.StreamConfig

	authLimiter *RateLimiter
}

func New(database *db.DB, a *auth.Auth, hub *notify.Hub, cfg *config.Config) *API {
	window := time.Duration(cfg.RateLimit.AuthWindowSec) * time.Second
	return &API{
		db:          database,
		auth:        a,
		hub:         hub,
		stream:      cfg.Stream,
		authLimiter: NewRateLimiter(cfg.RateLimit.AuthRequests, window),
	}
}

// SetMetricsDB sets the metrics database for request/stream accounting.
func (a *API) SetMetricsDB(mdb *db.MetricsDB) {
	a.metricsDB = mdb
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	// Auth
	mux.HandleFunc("POST /auth/register", RateLimitMiddleware(a.authLimiter, a.handleRegister))
	mux.HandleFunc("POST /auth/login", RateLimitMiddleware(a.authLimiter, a.handleLogin))

	// Games
	mux.HandleFunc("GET /games", a.handleListGames)

	// Scores
	mux.HandleFunc("GET /topScores/{gameId}", a.handleTopScores)
	mux.HandleFunc("POST /score", a.handleSubmitScore)

	// Thresholds
	mux.HandleFunc("GET /threshold/{gameId}", a.handleGetThreshold)
	mux.HandleFunc("PUT /threshold", a.handleSetThreshold)

	// EMG telemetry
	mux.HandleFunc("POST /saveEMGdetails", a.handleSaveEMG)
	mux.HandleFunc("GET /EMGdetails", a.handleRecentEMG)

	// Session results
	mux.HandleFunc("GET /getGameSessionResult/{sessionId}", a.handleSessionResult)

	// Live feeds (no auth: device dashboards connect before login)
	mux.HandleFunc("GET /streamScores", a.handleStreamScores)
	mux.HandleFunc("GET /streamEMG", a.handleStreamEMG)

	// Health
	mux.HandleFunc("GET /healthz", a.handleHealthz)
}

// requireAuth validates the bearer token and writes the error response itself
// when the gate fails. Missing token is 401, present-but-invalid is 403.
func (a *API) requireAuth(w http.ResponseWriter, r *http.Request) *auth.Claims {
	claims := a.auth.ExtractClaims(r)
	if claims != nil {
		return claims
	}
	if auth.HasBearer(r) {
		jsonError(w, "forbidden", http.StatusForbidden)
	} else {
		jsonError(w, "authentication required", http.StatusUnauthorized)
	}
	return nil
}

// --- Auth ---

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		FullName string `json:"fullName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		jsonError(w, "username and password are required", http.StatusBadRequest)
		return
	}
	if len(req.Username) < 3 || len(req.Username) > 30 {
		jsonError(w, "username must be 3-30 characters", http.StatusBadRequest)
		return
	}
	if !usernameRe.MatchString(req.Username) {
		jsonError(w, "username must contain only ASCII letters, digits, underscore or hyphen", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		jsonError(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	hash, err := a.auth.HashPassword(req.Password)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	user, err := a.db.CreateUser(db.CreateUserInput{
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: hash,
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			jsonError(w, "username already taken", http.StatusConflict)
			return
		}
		slog.Error("creating user", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	token, err := a.auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	jsonResp(w, http.StatusCreated, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, passwordHash, err := a.db.GetUserByUsername(req.Username)
	if err != nil {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	if !a.auth.CheckPassword(passwordHash, req.Password) {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := a.auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	go a.db.TouchLastSeen(user.ID)

	jsonResp(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// --- Games ---

func (a *API) handleListGames(w http.ResponseWriter, r *http.Request) {
	if a.requireAuth(w, r) == nil {
		return
	}

	games, err := a.db.ListGames()
	if err != nil {
		slog.Error("listing games", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if games == nil {
		games = []*db.Game{}
	}
	jsonResp(w, http.StatusOK, games)
}

// --- Scores ---

func (a *API) handleTopScores(w http.ResponseWriter, r *http.Request) {
	if a.requireAuth(w, r) == nil {
		return
	}

	gameID := r.PathValue("gameId")
	if gameID == "" {
		jsonError(w, "gameId is required", http.StatusBadRequest)
		return
	}

	n := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if parsed > 100 {
			parsed = 100
		}
		n = parsed
	}

	scores, err := a.db.TopScores(gameID, n)
	if err != nil {
		slog.Error("querying top scores", "error", err, "game_id", gameID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if scores == nil {
		scores = []*db.Score{}
	}
	jsonResp(w, http.StatusOK, scores)
}

func (a *API) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	if a.requireAuth(w, r) == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req struct {
		GameID    string      `json:"gameId"`
		SessionID string      `json:"sessionId"`
		Score     json.Number `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.GameID == "" {
		jsonError(w, "gameId is required", http.StatusBadRequest)
		return
	}
	// Scores are integers; fractional or non-numeric input is rejected rather
	// than coerced so it can never corrupt the ranking order.
	value, err := req.Score.Int64()
	if err != nil {
		jsonError(w, "score must be an integer", http.StatusBadRequest)
		return
	}

	score, err := a.db.InsertScore(db.InsertScoreInput{
		GameID:    req.GameID,
		SessionID: req.SessionID,
		Score:     value,
	})
	if err != nil {
		slog.Error("inserting score", "error", err, "game_id", req.GameID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	a.hub.Publish(notify.TopicScores, score)

	jsonResp(w, http.StatusCreated, score)
}

// --- Thresholds ---

func (a *API) handleGetThreshold(w http.ResponseWriter, r *http.Request) {
	if a.requireAuth(w, r) == nil {
		return
	}

	gameID := r.PathValue("gameId")
	if gameID == "" {
		jsonError(w, "gameId is required", http.StatusBadRequest)
		return
	}

	value, err := a.db.GetThreshold(gameID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			jsonError(w, "threshold not found", http.StatusNotFound)
			return
		}
		slog.Error("querying threshold", "error", err, "game_id", gameID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Bare numeric value, as device clients expect.
	jsonResp(w, http.StatusOK, value)
}

func (a *API) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	if a.requireAuth(w, r) == nil {
		return
	}

	var req struct {
		GameID    string   `json:"gameId"`
		Threshold *float64 `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.GameID == "" {
		jsonError(w, "gameId is required", http.StatusBadRequest)
		return
	}
	if req.Threshold == nil {
		jsonError(w, "threshold is required", http.StatusBadRequest)
		return
	}

	if err := a.db.SetThreshold(req.GameID, *req.Threshold); err != nil {
		slog.Error("upserting threshold", "error", err, "game_id", req.GameID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- EMG telemetry ---

func (a *API) handleSaveEMG(w http.ResponseWriter, r *http.Request) {
	if a.requireAuth(w, r) == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req struct {
		GameID        string    `json:"gameId"`
		SessionID     string    `json:"sessionId"`
		MotorSpeeds   []float64 `json:"motorSpeeds"`
		MotorAngles   []float64 `json:"motorAngles"`
		SignalOutputs []float64 `json:"signalOutputs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if strings.Contains(err.Error(), "too large") {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.GameID == "" {
		jsonError(w, "gameId is required", http.StatusBadRequest)
		return
	}

	rec, err := a.db.InsertEMG(db.InsertEMGInput{
		GameID:        req.GameID,
		SessionID:     req.SessionID,
		MotorSpeeds:   req.MotorSpeeds,
		MotorAngles:   req.MotorAngles,
		SignalOutputs: req.SignalOutputs,
	})
	if err != nil {
		slog.Error("inserting emg record", "error", err, "game_id", req.GameID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	a.hub.Publish(notify.TopicEMG, rec)

	jsonResp(w, http.StatusCreated, rec)
}

func (a *API) handleRecentEMG(w http.ResponseWriter, r *http.Request) {
	if a.requireAuth(w, r) == nil {
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	records, err := a.db.RecentEMG(limit)
	if err != nil {
		slog.Error("querying emg records", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*db.EMGRecord{}
	}
	jsonResp(w, http.StatusOK, records)
}

// --- Session results ---

func (a *API) handleSessionResult(w http.ResponseWriter, r *http.Request) {
	if a.requireAuth(w, r) == nil {
		return
	}

	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		jsonError(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	result, err := a.db.GetSessionResult(sessionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			jsonError(w, "session result not found", http.StatusNotFound)
			return
		}
		slog.Error("assembling session result", "error", err, "session_id", sessionID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	jsonResp(w, http.StatusOK, result)
}

// --- Health ---

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := a.db.Ping(); err != nil {
		jsonError(w, "database unreachable", http.StatusServiceUnavailable)
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helpers ---

func jsonResp(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
