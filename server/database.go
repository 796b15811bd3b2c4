package main

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// PilotRow represents a pilot account
type PilotRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// RunRow is one arena run, from server start to shutdown
type RunRow struct {
	ID          int64
	Seed        int64
	Capacity    int
	Frames      uint64
	Destroyed   int
	Collected   int
	VehicleHits int
	StartedAt   time.Time
	EndedAt     sql.NullTime
}

// RunSummary holds the totals written when a run ends
type RunSummary struct {
	Frames      uint64
	Destroyed   int
	Collected   int
	VehicleHits int
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pilots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed INTEGER NOT NULL DEFAULT 0,
		capacity INTEGER NOT NULL DEFAULT 0,
		frames INTEGER NOT NULL DEFAULT 0,
		destroyed INTEGER NOT NULL DEFAULT 0,
		collected INTEGER NOT NULL DEFAULT 0,
		vehicle_hits INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		ended_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		event_type TEXT NOT NULL,
		frame INTEGER NOT NULL,
		kind TEXT NOT NULL DEFAULT '',
		x REAL NOT NULL DEFAULT 0,
		y REAL NOT NULL DEFAULT 0,
		pilot_id INTEGER,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS checkpoints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		frame INTEGER NOT NULL,
		data BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, event_type);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// CreatePilot creates a pilot account and returns its ID
func (db *DB) CreatePilot(username, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO pilots (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetPilotByUsername returns a pilot by username, or nil when absent
func (db *DB) GetPilotByUsername(username string) (*PilotRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM pilots WHERE username = ?",
		username,
	)
	p := &PilotRow{}
	err := row.Scan(&p.ID, &p.Username, &p.PassHash, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM pilots WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// GetSetting returns a stored setting, or "" when unset
func (db *DB) GetSetting(key string) string {
	var v string
	if err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v); err != nil {
		if err != sql.ErrNoRows {
			log.Printf("DB setting %s: %v", key, err)
		}
		return ""
	}
	return v
}

// SetSetting stores a setting, replacing any previous value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// StartRun records the start of an arena run and returns its ID
func (db *DB) StartRun(seed int64, capacity int) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO runs (seed, capacity) VALUES (?, ?)",
		seed, capacity,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FinishRun writes the totals of a run and stamps its end time
func (db *DB) FinishRun(runID int64, s RunSummary) error {
	_, err := db.conn.Exec(`
		UPDATE runs SET
			frames = ?,
			destroyed = ?,
			collected = ?,
			vehicle_hits = ?,
			ended_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		int64(s.Frames), s.Destroyed, s.Collected, s.VehicleHits, runID,
	)
	return err
}

// GetRun returns a run by ID, or nil when absent
func (db *DB) GetRun(runID int64) (*RunRow, error) {
	row := db.conn.QueryRow(
		`SELECT id, seed, capacity, frames, destroyed, collected, vehicle_hits, started_at, ended_at
		 FROM runs WHERE id = ?`,
		runID,
	)
	r := &RunRow{}
	var frames int64
	err := row.Scan(&r.ID, &r.Seed, &r.Capacity, &frames, &r.Destroyed, &r.Collected, &r.VehicleHits, &r.StartedAt, &r.EndedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	r.Frames = uint64(frames)
	return r, err
}

// RecentRuns returns the latest runs, newest first
func (db *DB) RecentRuns(limit int) ([]RunRow, error) {
	rows, err := db.conn.Query(
		`SELECT id, seed, capacity, frames, destroyed, collected, vehicle_hits, started_at, ended_at
		 FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RunRow
	for rows.Next() {
		var r RunRow
		var frames int64
		if err := rows.Scan(&r.ID, &r.Seed, &r.Capacity, &frames, &r.Destroyed, &r.Collected, &r.VehicleHits, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, err
		}
		r.Frames = uint64(frames)
		result = append(result, r)
	}
	return result, rows.Err()
}

// SaveCheckpoint stores a world checkpoint for a run
func (db *DB) SaveCheckpoint(runID int64, frame uint64, data []byte) error {
	_, err := db.conn.Exec(
		"INSERT INTO checkpoints (run_id, frame, data) VALUES (?, ?, ?)",
		runID, int64(frame), data,
	)
	return err
}

// LatestCheckpoint returns the newest stored checkpoint, or nil when none
func (db *DB) LatestCheckpoint() ([]byte, error) {
	var data []byte
	err := db.conn.QueryRow("SELECT data FROM checkpoints ORDER BY id DESC LIMIT 1").Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return data, err
}
