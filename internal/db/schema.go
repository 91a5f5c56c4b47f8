package db

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    username      TEXT UNIQUE NOT NULL,
    full_name     TEXT DEFAULT '',
    password_hash TEXT NOT NULL,
    created_at    DATETIME DEFAULT (datetime('now')),
    last_seen_at  DATETIME
);

CREATE TABLE IF NOT EXISTS games (
    id          TEXT PRIMARY KEY,
    name        TEXT UNIQUE NOT NULL,
    description TEXT DEFAULT '',
    created_at  DATETIME DEFAULT (datetime('now'))
);

-- Score events are append-only: never updated or deleted.
CREATE TABLE IF NOT EXISTS scores (
    id          TEXT PRIMARY KEY,
    game_id     TEXT NOT NULL,
    session_id  TEXT,
    score       INTEGER NOT NULL,
    recorded_at DATETIME DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_scores_game ON scores(game_id, score DESC);
CREATE INDEX IF NOT EXISTS idx_scores_session ON scores(session_id) WHERE session_id IS NOT NULL;

-- EMG telemetry, append-only. Channel sequences are stored as JSON arrays.
CREATE TABLE IF NOT EXISTS emg_records (
    id             TEXT PRIMARY KEY,
    game_id        TEXT NOT NULL,
    session_id     TEXT,
    motor_speeds   TEXT NOT NULL DEFAULT '[]',
    motor_angles   TEXT NOT NULL DEFAULT '[]',
    signal_outputs TEXT NOT NULL DEFAULT '[]',
    recorded_at    DATETIME DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_emg_session ON emg_records(session_id) WHERE session_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_emg_time ON emg_records(recorded_at);

-- One live threshold per game, mutated only via atomic upsert.
CREATE TABLE IF NOT EXISTS thresholds (
    game_id    TEXT PRIMARY KEY,
    value      REAL NOT NULL,
    updated_at DATETIME DEFAULT (datetime('now'))
);
`

// seedGames is the built-in catalog the device ships with. INSERT OR IGNORE
// keeps restarts idempotent.
const seedGames = `
INSERT OR IGNORE INTO games (id, name, description) VALUES
    ('game_balloon', 'Balloon Pop', 'Grip-strength balloon popping'),
    ('game_rowing', 'River Rowing', 'Sustained contraction rowing course'),
    ('game_maze', 'Motor Maze', 'Fine motor control maze navigation');
`
