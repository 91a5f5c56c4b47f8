// Package mcp registers the core playtrack tools on an MCP server so
// clinician tooling can query scores and tune thresholds without going
// through the HTTP API.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/playtrack/internal/db"
	"github.com/hazyhaar/playtrack/pkg/audit"
	"github.com/hazyhaar/playtrack/pkg/kit"
)

// NewServer creates an MCPServer with all core playtrack tools registered.
// auditLog and metricsDB are both optional.
func NewServer(database *db.DB, auditLog audit.Logger, metricsDB *db.MetricsDB) *server.MCPServer {
	srv := server.NewMCPServer(
		"playtrack",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	metrics := &toolMetrics{mdb: metricsDB}

	registerListGames(srv, database, metrics)
	registerTopScores(srv, database, metrics)
	registerSubmitScore(srv, database, auditLog, metrics)
	registerGetThreshold(srv, database, metrics)
	registerSetThreshold(srv, database, auditLog, metrics)
	registerSessionResult(srv, database, metrics)

	return srv
}

// toolMetrics records per-call timing into the metrics database.
type toolMetrics struct {
	mdb *db.MetricsDB
}

func (m *toolMetrics) wrap(name string, endpoint kit.Endpoint) kit.Endpoint {
	if m.mdb == nil {
		return endpoint
	}
	return func(ctx context.Context, request any) (any, error) {
		start := time.Now()
		resp, err := endpoint(ctx, request)
		m.mdb.RecordMCPCall(name, int(time.Since(start).Milliseconds()), err == nil, kit.GetUserID(ctx))
		return resp, err
	}
}

// --- list_games ---

func registerListGames(srv *server.MCPServer, database *db.DB, metrics *toolMetrics) {
	schema, _ := json.Marshal(map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	})
	tool := mcp.NewToolWithRawSchema("list_games", "List the game catalog", schema)

	kit.RegisterMCPTool(srv, tool, metrics.wrap("list_games", func(ctx context.Context, request any) (any, error) {
		return database.ListGames()
	}), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: struct{}{}}, nil
	})
}

// --- top_scores ---

func registerTopScores(srv *server.MCPServer, database *db.DB, metrics *toolMetrics) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"game_id": map[string]string{"type": "string", "description": "Game to rank"},
			"limit":   map[string]any{"type": "integer", "description": "Max results", "default": 10},
		},
		"required": []string{"game_id"},
	})
	tool := mcp.NewToolWithRawSchema("top_scores", "Get the highest scores for a game, descending", schema)

	kit.RegisterMCPTool(srv, tool, metrics.wrap("top_scores", func(ctx context.Context, request any) (any, error) {
		r := request.(*topScoresReq)
		if r.GameID == "" {
			return nil, fmt.Errorf("game_id is required")
		}
		scores, err := database.TopScores(r.GameID, r.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"scores": scores, "count": len(scores)}, nil
	}), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		return &kit.MCPDecodeResult{Request: &topScoresReq{
			GameID: stringArg(args, "game_id"),
			Limit:  intArg(args, "limit", 10),
		}}, nil
	})
}

type topScoresReq struct {
	GameID string `json:"game_id"`
	Limit  int    `json:"limit"`
}

// --- submit_score ---

func registerSubmitScore(srv *server.MCPServer, database *db.DB, auditLog audit.Logger, metrics *toolMetrics) {
	var endpoint kit.Endpoint = func(ctx context.Context, request any) (any, error) {
		r := request.(*submitScoreReq)
		if r.GameID == "" {
			return nil, fmt.Errorf("game_id is required")
		}
		return database.InsertScore(db.InsertScoreInput{
			GameID:    r.GameID,
			SessionID: r.SessionID,
			Score:     r.Score,
		})
	}
	if auditLog != nil {
		endpoint = audit.Middleware(auditLog, "submit_score")(endpoint)
	}
	endpoint = metrics.wrap("submit_score", endpoint)

	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"game_id":    map[string]string{"type": "string", "description": "Game the score belongs to"},
			"session_id": map[string]string{"type": "string", "description": "Optional game session ID"},
			"score":      map[string]any{"type": "integer", "description": "Score value"},
		},
		"required": []string{"game_id", "score"},
	})
	tool := mcp.NewToolWithRawSchema("submit_score", "Record a score for a game session", schema)

	kit.RegisterMCPTool(srv, tool, endpoint, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		return &kit.MCPDecodeResult{Request: &submitScoreReq{
			GameID:    stringArg(args, "game_id"),
			SessionID: stringArg(args, "session_id"),
			Score:     int64(intArg(args, "score", 0)),
		}}, nil
	})
}

type submitScoreReq struct {
	GameID    string `json:"game_id"`
	SessionID string `json:"session_id"`
	Score     int64  `json:"score"`
}

// --- get_threshold ---

func registerGetThreshold(srv *server.MCPServer, database *db.DB, metrics *toolMetrics) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"game_id": map[string]string{"type": "string", "description": "Game to look up"},
		},
		"required": []string{"game_id"},
	})
	tool := mcp.NewToolWithRawSchema("get_threshold", "Get the configured motor threshold for a game", schema)

	kit.RegisterMCPTool(srv, tool, metrics.wrap("get_threshold", func(ctx context.Context, request any) (any, error) {
		r := request.(*thresholdReq)
		value, err := database.GetThreshold(r.GameID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"game_id": r.GameID, "value": value}, nil
	}), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		return &kit.MCPDecodeResult{Request: &thresholdReq{GameID: stringArg(args, "game_id")}}, nil
	})
}

type thresholdReq struct {
	GameID string `json:"game_id"`
}

// --- set_threshold ---

func registerSetThreshold(srv *server.MCPServer, database *db.DB, auditLog audit.Logger, metrics *toolMetrics) {
	var endpoint kit.Endpoint = func(ctx context.Context, request any) (any, error) {
		r := request.(*setThresholdReq)
		if r.GameID == "" {
			return nil, fmt.Errorf("game_id is required")
		}
		if err := database.SetThreshold(r.GameID, r.Value); err != nil {
			return nil, err
		}
		return map[string]string{"status": "ok"}, nil
	}
	if auditLog != nil {
		endpoint = audit.Middleware(auditLog, "set_threshold")(endpoint)
	}
	endpoint = metrics.wrap("set_threshold", endpoint)

	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"game_id": map[string]string{"type": "string", "description": "Game to configure"},
			"value":   map[string]any{"type": "number", "description": "Threshold value"},
		},
		"required": []string{"game_id", "value"},
	})
	tool := mcp.NewToolWithRawSchema("set_threshold", "Set the motor threshold for a game (atomic upsert)", schema)

	kit.RegisterMCPTool(srv, tool, endpoint, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		return &kit.MCPDecodeResult{Request: &setThresholdReq{
			GameID: stringArg(args, "game_id"),
			Value:  floatArg(args, "value", 0),
		}}, nil
	})
}

type setThresholdReq struct {
	GameID string  `json:"game_id"`
	Value  float64 `json:"value"`
}

// --- session_result ---

func registerSessionResult(srv *server.MCPServer, database *db.DB, metrics *toolMetrics) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"session_id": map[string]string{"type": "string", "description": "Game session ID"},
		},
		"required": []string{"session_id"},
	})
	tool := mcp.NewToolWithRawSchema("session_result", "Get the combined score and EMG telemetry for a game session", schema)

	kit.RegisterMCPTool(srv, tool, metrics.wrap("session_result", func(ctx context.Context, request any) (any, error) {
		r := request.(*sessionResultReq)
		if r.SessionID == "" {
			return nil, fmt.Errorf("session_id is required")
		}
		return database.GetSessionResult(r.SessionID)
	}), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		return &kit.MCPDecodeResult{Request: &sessionResultReq{SessionID: stringArg(args, "session_id")}}, nil
	})
}

type sessionResultReq struct {
	SessionID string `json:"session_id"`
}

// --- helpers ---

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return def
	}
}

func floatArg(args map[string]any, key string, def float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return def
	}
}
