// MetricsDB is a separate SQLite database for native metrics (HTTP requests,
// MCP tool calls, live-stream sessions). Kept apart from the primary store so
// metric writes never contend with score/telemetry inserts.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type MetricsDB struct {
	*sql.DB
}

func OpenMetrics(path string) (*MetricsDB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating metrics data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening metrics database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging metrics database: %w", err)
	}

	db := &MetricsDB{sqlDB}
	if err := db.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating metrics database: %w", err)
	}

	return db, nil
}

func (db *MetricsDB) migrate() error {
	_, err := db.Exec(metricsSchema)
	return err
}

const metricsSchema = `
-- HTTP request metrics
CREATE TABLE IF NOT EXISTS http_requests (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    method      TEXT NOT NULL,
    path        TEXT NOT NULL,
    status_code INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    user_id     TEXT,
    timestamp   INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_http_req_ts ON http_requests(timestamp);
CREATE INDEX IF NOT EXISTS idx_http_req_path ON http_requests(path);

-- MCP tool call metrics
CREATE TABLE IF NOT EXISTS mcp_calls (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    tool_name   TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,
    success     INTEGER NOT NULL DEFAULT 1,
    user_id     TEXT,
    timestamp   INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_mcp_calls_ts ON mcp_calls(timestamp);
CREATE INDEX IF NOT EXISTS idx_mcp_calls_tool ON mcp_calls(tool_name);

-- Live stream sessions (SSE subscriptions)
CREATE TABLE IF NOT EXISTS stream_sessions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    topic       TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,
    events_sent INTEGER NOT NULL DEFAULT 0,
    timestamp   INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_stream_sessions_ts ON stream_sessions(timestamp);
`

// RecordHTTPRequest logs an HTTP request metric.
func (db *MetricsDB) RecordHTTPRequest(method, path string, statusCode, durationMs int, userID string) {
	_, _ = db.Exec(`INSERT INTO http_requests (method, path, status_code, duration_ms, user_id)
		VALUES (?, ?, ?, ?, ?)`, method, path, statusCode, durationMs, userID)
}

// RecordMCPCall logs an MCP tool call metric.
func (db *MetricsDB) RecordMCPCall(toolName string, durationMs int, success bool, userID string) {
	s := 1
	if !success {
		s = 0
	}
	_, _ = db.Exec(`INSERT INTO mcp_calls (tool_name, duration_ms, success, user_id)
		VALUES (?, ?, ?, ?)`, toolName, durationMs, s, userID)
}

// RecordStreamSession logs a completed SSE subscription.
func (db *MetricsDB) RecordStreamSession(topic string, durationMs, eventsSent int) {
	_, _ = db.Exec(`INSERT INTO stream_sessions (topic, duration_ms, events_sent)
		VALUES (?, ?, ?)`, topic, durationMs, eventsSent)
}
