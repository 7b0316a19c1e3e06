package main

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// historyLog persists one row per CLI invocation to a local SQLite
// file, wrapping database/sql around the pure-Go modernc.org/sqlite
// driver. It is ambient host storage (the core never touches it) for
// the -history flag.
type historyLog struct {
	db *sql.DB
}

type runRecord struct {
	Name      string
	OptLevel  string
	StartedAt time.Time
	EndedAt   time.Time
	State     string
	ErrorMsg  string
}

func openHistoryLog(path string) (*historyLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	opt_level TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT NOT NULL,
	state TEXT NOT NULL,
	error_msg TEXT NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &historyLog{db: db}, nil
}

func (h *historyLog) Append(r runRecord) error {
	_, err := h.db.Exec(
		`INSERT INTO runs (name, opt_level, started_at, ended_at, state, error_msg) VALUES (?, ?, ?, ?, ?, ?)`,
		r.Name, r.OptLevel, r.StartedAt.Format(time.RFC3339Nano), r.EndedAt.Format(time.RFC3339Nano), r.State, r.ErrorMsg,
	)
	return err
}

func (h *historyLog) Close() error {
	return h.db.Close()
}
